package storage

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// ModelStore persists the active safety model version so a restart keeps
// scoring with the last accepted weights instead of the rule-based fallback.
type ModelStore struct {
	filename string
}

func NewModelStore(filename string) *ModelStore {
	return &ModelStore{filename: filename}
}

// Save active version header + weight row.
func (ms *ModelStore) Save(mv *safety.ModelVersion) error {
	f, err := os.Create(ms.filename)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.ModelStore.Save: create %s", ms.filename)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	weights := mv.GetWeights()
	fmt.Fprintf(w, "%d %d %f %f %d\n", mv.GetId(), mv.GetSampleCount(),
		mv.GetMAE(), mv.GetR2(), mv.GetTrainedAt().Unix())
	fmt.Fprintf(w, "%d\n", len(weights))
	for i, weight := range weights {
		if _, err := fmt.Fprintf(w, "%f", weight); err != nil {
			return util.WrapErrorf(err, util.ErrInternalServerError,
				"storage.ModelStore.Save: write weights")
		}
		if i < len(weights)-1 {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "\n")
	return nil
}

// Load restore the persisted version. found=false when no file exists yet.
func (ms *ModelStore) Load() (*safety.ModelVersion, bool, error) {
	f, err := os.Open(ms.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.ModelStore.Load: open %s", ms.filename)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var (
		id, sampleCount, numWeights int
		mae, r2                     float64
		trainedAtUnix               int64
	)
	if _, err := fmt.Fscanf(r, "%d %d %f %f %d\n", &id, &sampleCount, &mae, &r2,
		&trainedAtUnix); err != nil {
		return nil, false, util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.ModelStore.Load: parse header")
	}
	if _, err := fmt.Fscanf(r, "%d\n", &numWeights); err != nil {
		return nil, false, util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.ModelStore.Load: parse weight count")
	}
	if numWeights != safety.NumFeatures+1 {
		return nil, false, util.WrapErrorf(nil, util.ErrInternalServerError,
			"storage.ModelStore.Load: expected %d weights, got %d",
			safety.NumFeatures+1, numWeights)
	}

	weights := make([]float64, numWeights)
	for i := 0; i < numWeights; i++ {
		if _, err := fmt.Fscanf(r, "%f", &weights[i]); err != nil {
			return nil, false, util.WrapErrorf(err, util.ErrInternalServerError,
				"storage.ModelStore.Load: parse weight %d", i)
		}
	}

	mv := safety.NewModelVersion(id, weights, time.Unix(trainedAtUnix, 0),
		sampleCount, mae, r2)
	return mv, true, nil
}
