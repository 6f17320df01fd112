package muf

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func record(name string, lat, lon float64, mufd *float64) StationRecord {
	var r StationRecord
	r.Station.Name = name
	r.Station.Latitude = FlexFloat{Value: lat, Valid: true}
	r.Station.Longitude = FlexFloat{Value: lon, Valid: true}
	r.MUFD = mufd
	return r
}

func f(v float64) *float64 { return &v }

func TestResolveNameMatchBeatsGeography(t *testing.T) {
	r := NewResolver(zap.NewNop())

	// Name says Roquetes even though the coordinates are nowhere near.
	resolved, _ := r.Resolve([]StationRecord{
		record("Roquetes (Ebre) relay", -33.0, 151.0, f(12.5)),
	})

	m, ok := resolved[StationRoquetes]
	if !ok {
		t.Fatal("expected a Roquetes match by name")
	}
	if *m.MUFD != 12.5 {
		t.Fatalf("expected mufd 12.5, got %v", *m.MUFD)
	}
	if _, ok := resolved[StationArenosillo]; ok {
		t.Fatal("unexpected Arenosillo match")
	}
}

func TestResolveNameOrderIsDeterministic(t *testing.T) {
	r := NewResolver(zap.NewNop())

	// A name carrying both station substrings stays with the first
	// station checked.
	resolved, _ := r.Resolve([]StationRecord{
		record("roquetes y arenosillo", 0, 0, f(9.0)),
	})

	if _, ok := resolved[StationRoquetes]; !ok {
		t.Fatal("expected first-checked station to win the tie")
	}
	if _, ok := resolved[StationArenosillo]; ok {
		t.Fatal("tie must resolve to a single station")
	}
}

func TestResolveGeographicFallback(t *testing.T) {
	r := NewResolver(zap.NewNop())

	resolved, _ := r.Resolve([]StationRecord{
		record("EA-ionosonde-2", 37.05, -6.8, f(21.0)),
	})

	m, ok := resolved[StationArenosillo]
	if !ok {
		t.Fatal("expected Arenosillo match within centroid tolerance")
	}
	if *m.MUFD != 21.0 {
		t.Fatalf("expected mufd 21.0, got %v", *m.MUFD)
	}
}

func TestResolveNoMatchIsDiscarded(t *testing.T) {
	r := NewResolver(zap.NewNop())

	resolved, skipped := r.Resolve([]StationRecord{
		record("Null Island sounder", 0, 0, f(5.0)),
	})

	if len(resolved) != 0 {
		t.Fatalf("expected no matches, got %d", len(resolved))
	}
	if skipped != 0 {
		t.Fatalf("a readable non-match is not a skip, got %d", skipped)
	}
}

func TestResolveLastWriteWins(t *testing.T) {
	r := NewResolver(zap.NewNop())

	resolved, _ := r.Resolve([]StationRecord{
		record("Roquetes A", 40.8, 0.5, f(10.0)),
		record("Roquetes B", 40.8, 0.5, f(11.0)),
	})

	m, ok := resolved[StationRoquetes]
	if !ok {
		t.Fatal("expected a Roquetes match")
	}
	if *m.MUFD != 11.0 {
		t.Fatalf("expected the later record to win, got %v", *m.MUFD)
	}
}

func TestResolveNilMUFDKept(t *testing.T) {
	r := NewResolver(zap.NewNop())

	resolved, _ := r.Resolve([]StationRecord{
		record("El Arenosillo", 37.1, -6.7, nil),
	})

	m, ok := resolved[StationArenosillo]
	if !ok {
		t.Fatal("expected a match even without a mufd value")
	}
	if m.MUFD != nil {
		t.Fatal("expected mufd to stay absent")
	}
}

func TestResolveSkipsUnreadableRecords(t *testing.T) {
	r := NewResolver(zap.NewNop())

	var broken StationRecord
	broken.Station.Name = "mystery site"
	// Coordinates never parsed: Latitude/Longitude stay invalid.

	resolved, skipped := r.Resolve([]StationRecord{
		broken,
		record("Roquetes", 40.8, 0.5, f(8.0)),
	})

	if skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", skipped)
	}
	if len(resolved) != 1 {
		t.Fatalf("a broken record must not abort the batch, got %d matches", len(resolved))
	}
}

func TestStationRecordUnmarshalFlexibleCoordinates(t *testing.T) {
	payload := `[
		{"station": {"code": "RO041", "name": "Roquetes", "latitude": "40.8", "longitude": "0.5"}, "mufd": 14.2},
		{"station": {"code": "EA036", "name": "El Arenosillo", "latitude": 37.1, "longitude": -6.7}, "mufd": null},
		{"station": {"code": "XX000", "name": "bad", "latitude": "not-a-number", "longitude": ""}, "mufd": 3.0}
	]`

	var records []StationRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if !records[0].Station.Latitude.Valid || records[0].Station.Latitude.Value != 40.8 {
		t.Fatalf("string coordinate not parsed: %+v", records[0].Station.Latitude)
	}
	if !records[1].Station.Longitude.Valid || records[1].Station.Longitude.Value != -6.7 {
		t.Fatalf("numeric coordinate not parsed: %+v", records[1].Station.Longitude)
	}
	if records[1].MUFD != nil {
		t.Fatal("null mufd must decode as absent")
	}
	if records[2].Station.Latitude.Valid {
		t.Fatal("garbage coordinate must decode as invalid, not fail the batch")
	}
	if *records[2].MUFD != 3.0 {
		t.Fatalf("expected mufd 3.0 on the garbage-coordinate record, got %v", *records[2].MUFD)
	}
}
