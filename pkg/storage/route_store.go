package storage

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// RouteRecord durable snapshot of one tracked route: enough to resume state
// machines after a restart, without the per-leg geometry.
type RouteRecord struct {
	RouteId   string
	VersionId string
	State     string
	Degraded  bool
	StopOrder []string
	Delivered []string
}

// RouteStore persists tracked route snapshots as a line-oriented text file,
// three lines per route.
type RouteStore struct {
	filename string
}

func NewRouteStore(filename string) *RouteStore {
	return &RouteStore{filename: filename}
}

func (rs *RouteStore) Save(records []RouteRecord) error {
	f, err := os.Create(rs.filename)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.RouteStore.Save: create %s", rs.filename)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintf(w, "%d\n", len(records))
	for _, rec := range records {
		degraded := 0
		if rec.Degraded {
			degraded = 1
		}
		fmt.Fprintf(w, "%s %s %s %d\n", rec.RouteId, rec.VersionId, rec.State, degraded)
		fmt.Fprintf(w, "%s\n", strings.Join(rec.StopOrder, " "))
		fmt.Fprintf(w, "%s\n", strings.Join(rec.Delivered, " "))
	}
	return nil
}

func (rs *RouteStore) Load() ([]RouteRecord, error) {
	f, err := os.Open(rs.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.RouteStore.Load: open %s", rs.filename)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var count int
	if _, err := fmt.Fscanf(r, "%d\n", &count); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError,
			"storage.RouteStore.Load: parse record count")
	}

	records := make([]RouteRecord, 0, count)
	for i := 0; i < count; i++ {
		var rec RouteRecord
		var degraded int
		if _, err := fmt.Fscanf(r, "%s %s %s %d\n", &rec.RouteId, &rec.VersionId,
			&rec.State, &degraded); err != nil {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError,
				"storage.RouteStore.Load: parse route header %d", i)
		}
		rec.Degraded = degraded == 1

		orderLine, err := r.ReadString('\n')
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError,
				"storage.RouteStore.Load: parse stop order %d", i)
		}
		rec.StopOrder = splitFields(orderLine)

		deliveredLine, err := r.ReadString('\n')
		if err != nil && deliveredLine == "" {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError,
				"storage.RouteStore.Load: parse delivered stops %d", i)
		}
		rec.Delivered = splitFields(deliveredLine)

		records = append(records, rec)
	}
	return records, nil
}

func splitFields(line string) []string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return []string{}
	}
	return fields
}
