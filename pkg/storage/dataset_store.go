package storage

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// LoadCrimeRecords read the crime dataset file: a count line followed by one
// "lat lon severity occurredAtUnix" line per incident. a missing file is not
// an error, the extractor degrades to regional defaults.
func LoadCrimeRecords(filename string) ([]safety.CrimeRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
			"storage.LoadCrimeRecords: open %s", filename)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var count int
	if _, err := fmt.Fscanf(r, "%d\n", &count); err != nil {
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
			"storage.LoadCrimeRecords: parse record count")
	}

	records := make([]safety.CrimeRecord, 0, count)
	for i := 0; i < count; i++ {
		var (
			lat, lon, severity float64
			occurredAtUnix     int64
		)
		if _, err := fmt.Fscanf(r, "%f %f %f %d\n", &lat, &lon, &severity,
			&occurredAtUnix); err != nil {
			return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
				"storage.LoadCrimeRecords: parse record %d", i)
		}
		records = append(records, safety.CrimeRecord{
			Coord:      geo.NewCoordinate(lat, lon),
			Severity:   util.Clamp(severity, 0, 1),
			OccurredAt: time.Unix(occurredAtUnix, 0),
		})
	}
	return records, nil
}

// LoadSafeZones read the safe zone dataset file: a count line followed by one
// "id lat lon name" line per zone. names must not contain spaces.
func LoadSafeZones(filename string) ([]safety.SafeZone, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
			"storage.LoadSafeZones: open %s", filename)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var count int
	if _, err := fmt.Fscanf(r, "%d\n", &count); err != nil {
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
			"storage.LoadSafeZones: parse zone count")
	}

	zones := make([]safety.SafeZone, 0, count)
	for i := 0; i < count; i++ {
		var (
			id, name string
			lat, lon float64
		)
		if _, err := fmt.Fscanf(r, "%s %f %f %s\n", &id, &lat, &lon, &name); err != nil {
			return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
				"storage.LoadSafeZones: parse zone %d", i)
		}
		zones = append(zones, safety.SafeZone{
			Id:    id,
			Name:  name,
			Coord: geo.NewCoordinate(lat, lon),
		})
	}
	return zones, nil
}
