package util

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s", e.msg)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

// Is matches against the taxonomy code as well as the wrapped cause, so
// errors.Is(err, ErrNotFound) works on wrapped service errors.
func (e *Error) Is(target error) bool {
	if errors.Is(e.code, target) {
		return true
	}
	return e.orig != nil && errors.Is(e.orig, target)
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

var (
	ErrInternalServerError = errors.New("internal Server Error")
	ErrNotFound            = errors.New("your requested Item is not found")
	ErrConflict            = errors.New("your Item already exist")
	ErrBadParamInput       = errors.New("given Param is not valid")

	ErrProviderUnavailable = errors.New("geospatial provider unavailable")
	ErrDataUnavailable     = errors.New("safety data unavailable for location")
	ErrModelNotTrained     = errors.New("safety model not trained yet")
	ErrRetrainRejected     = errors.New("retrained model rejected by regression guard")
	ErrPathNotFound        = errors.New("no path found between stops")
	ErrOptimizationTimeout = errors.New("optimization deadline exceeded")
)

var MessageInternalServerError string = "internal server error"

func SecondsToMinutes(seconds float64) float64 {
	return seconds / 60
}

func Abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

func StringToFloat64(str string) (float64, error) {
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return val, nil
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// Clamp bounds val into [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr)) // should do on the copy )
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}

func StopConcurrentOperation(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func AssertPanic(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
