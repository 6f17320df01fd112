package muf

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/koalabang/MUFCR6K2025/internal/common"
)

// geoTolerance is the half-width, in degrees, of the box around each
// station centroid used by the coordinate fallback.
const geoTolerance = 0.5

// Resolver classifies raw upstream records onto the two canonical
// stations. Name substrings are authoritative; coordinates are only a
// fallback for records whose name gives nothing away.
type Resolver struct {
	log *zap.Logger
}

func NewResolver(log *zap.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve walks the records in order and returns at most one measurement
// per canonical station. When several records map to the same station the
// last one processed wins. The second return value counts records skipped
// because neither their name nor their coordinates could be read.
func (r *Resolver) Resolve(records []StationRecord) (map[StationID]Measurement, int) {
	resolved := make(map[StationID]Measurement, len(canonicalStations))
	skipped := 0

	for _, rec := range records {
		id, ok := classify(rec)
		if !ok {
			if !rec.Station.Latitude.Valid || !rec.Station.Longitude.Valid {
				skipped++
			}
			continue
		}

		resolved[id] = Measurement{
			Station: id,
			Name:    rec.Station.Name,
			Lat:     rec.Station.Latitude.Value,
			Lon:     rec.Station.Longitude.Value,
			MUFD:    rec.MUFD,
		}
		r.log.Debug("station resolved",
			zap.String("station", string(id)),
			zap.String("upstream_name", rec.Station.Name),
			zap.Float64p("mufd", rec.MUFD))
	}

	if skipped > 0 {
		r.log.Debug("records skipped as unreadable", zap.Int("count", skipped))
	}
	return resolved, skipped
}

// classify applies the two-step heuristic: name substring match first,
// then centroid proximity. First station checked wins any tie.
func classify(rec StationRecord) (StationID, bool) {
	name := strings.ToLower(rec.Station.Name)
	for _, st := range canonicalStations {
		if common.HasAny(name, st.Names...) {
			return st.ID, true
		}
	}

	if !rec.Station.Latitude.Valid || !rec.Station.Longitude.Valid {
		return "", false
	}
	lat := rec.Station.Latitude.Value
	lon := rec.Station.Longitude.Value
	for _, st := range canonicalStations {
		if math.Abs(lat-st.Lat) < geoTolerance && math.Abs(lon-st.Lon) < geoTolerance {
			return st.ID, true
		}
	}
	return "", false
}
