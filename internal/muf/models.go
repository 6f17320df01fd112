package muf

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status marks whether a point is recent enough to be trusted by consumers.
type Status string

const (
	StatusFresh Status = "OK"
	StatusStale Status = "STALE"
)

// Point is one aggregated MUF observation for both tracked stations.
// Avg is set only when both station values are present.
type Point struct {
	Roquetes   *float64  `json:"roquetes"`
	Arenosillo *float64  `json:"arenosillo"`
	Avg        *float64  `json:"avg"`
	Timestamp  time.Time `json:"ts"` // always UTC
	Status     Status    `json:"status"`
}

// Series is the column-oriented view of a window of points,
// shaped for direct consumption by chart frontends.
type Series struct {
	Timestamps []time.Time `json:"timestamps"`
	Roquetes   []*float64  `json:"roquetes"`
	Arenosillo []*float64  `json:"arenosillo"`
	Avg        []*float64  `json:"avg"`
}

// StationID identifies one of the two tracked ionosonde sites.
type StationID string

const (
	StationRoquetes   StationID = "roquetes"
	StationArenosillo StationID = "arenosillo"
)

// stationProfile describes how a canonical station is recognized in the
// upstream feed: by name substring first, by centroid proximity second.
type stationProfile struct {
	ID       StationID
	Lat, Lon float64
	Names    []string
}

// Resolution order matters: Roquetes is checked first, and a record inside
// both tolerance boxes stays with the first station checked.
var canonicalStations = []stationProfile{
	{ID: StationRoquetes, Lat: 40.8, Lon: 0.5, Names: []string{"roquetes", "ebre"}},
	{ID: StationArenosillo, Lat: 37.1, Lon: -6.7, Names: []string{"arenosillo"}},
}

// Measurement is one station's MUF reading for a single fetch cycle.
type Measurement struct {
	Station StationID
	Name    string
	Lat     float64
	Lon     float64
	MUFD    *float64
}

// StationRecord mirrors one element of the upstream stations.json array.
// The feed is loose about numeric types, so coordinates accept both
// strings and numbers.
type StationRecord struct {
	Station struct {
		Code      string    `json:"code"`
		Name      string    `json:"name"`
		Latitude  FlexFloat `json:"latitude"`
		Longitude FlexFloat `json:"longitude"`
	} `json:"station"`
	MUFD *float64 `json:"mufd"`
}

// FlexFloat unmarshals a JSON number, a numeric string, or null.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.Valid = false
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Loose upstream data: an unparseable coordinate makes the
		// record a non-match, never a batch failure.
		f.Valid = false
		return nil
	}
	f.Value = v
	f.Valid = true
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
