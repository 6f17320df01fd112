// Package dx pulls recent DX-cluster spots from DXSummit, best effort.
// A failed refresh keeps the previous cache; there are no retries and
// no durable state.
package dx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Two-letter ITU prefixes allocated to Portugal; any callsign starting
// with one of these is treated as Portuguese.
var portuguesePrefixes = []string{"CT", "CR", "CS", "CQ"}

// Spot is one cluster spot involving a Portuguese callsign.
type Spot struct {
	Spotter        string    `json:"spotter"`
	DXCall         string    `json:"dx_call"`
	Frequency      float64   `json:"frequency"`
	Comment        string    `json:"comment"`
	Time           time.Time `json:"time"`
	CountrySpotter *string   `json:"country_spotter"`
	CountryDX      *string   `json:"country_dx"`
}

// SpotList is the cached query result served to clients.
type SpotList struct {
	Spots      []Spot    `json:"spots"`
	LastUpdate time.Time `json:"last_update"`
}

// Fetcher refreshes and caches the spot list.
type Fetcher struct {
	url    string
	client *http.Client
	log    *zap.Logger

	mu    sync.RWMutex
	cache SpotList
}

func NewFetcher(client *http.Client, url string, log *zap.Logger) *Fetcher {
	return &Fetcher{
		url:    url,
		client: client,
		log:    log,
	}
}

// Refresh fetches the feed once. On any failure the previous cache is
// left untouched.
func (f *Fetcher) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("dx feed unavailable", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Warn("dx feed bad status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("dx feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var raw []rawSpot
	if err := json.Unmarshal(body, &raw); err != nil {
		f.log.Warn("dx feed malformed", zap.Error(err))
		return err
	}

	spots := make([]Spot, 0, len(raw))
	for _, r := range raw {
		s, ok := r.toSpot()
		if !ok {
			continue
		}
		spots = append(spots, s)
	}

	f.mu.Lock()
	f.cache = SpotList{Spots: spots, LastUpdate: time.Now().UTC()}
	f.mu.Unlock()

	f.log.Info("dx spots refreshed", zap.Int("spots", len(spots)))
	return nil
}

// Spots returns the cached list; empty with a zero LastUpdate when no
// refresh has succeeded yet.
func (f *Fetcher) Spots() SpotList {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := SpotList{
		Spots:      make([]Spot, len(f.cache.Spots)),
		LastUpdate: f.cache.LastUpdate,
	}
	copy(out.Spots, f.cache.Spots)
	return out
}

type rawSpot struct {
	DECall    string  `json:"de_call"`
	DXCall    string  `json:"dx_call"`
	Frequency float64 `json:"frequency"`
	Info      string  `json:"info"`
	Time      string  `json:"time"`
}

func (r rawSpot) toSpot() (Spot, bool) {
	spotter := strings.TrimSpace(r.DECall)
	dxCall := strings.TrimSpace(r.DXCall)

	spotterPT := isPortuguese(spotter)
	dxPT := isPortuguese(dxCall)
	if !spotterPT && !dxPT {
		return Spot{}, false
	}

	ts := parseSpotTime(r.Time)

	s := Spot{
		Spotter:   spotter,
		DXCall:    dxCall,
		Frequency: r.Frequency,
		Comment:   strings.TrimSpace(r.Info),
		Time:      ts,
	}
	if spotterPT {
		s.CountrySpotter = ptr("Portugal")
	}
	if dxPT {
		s.CountryDX = ptr("Portugal")
	}
	return s, true
}

func isPortuguese(callsign string) bool {
	callsign = strings.ToUpper(callsign)
	for _, prefix := range portuguesePrefixes {
		if strings.HasPrefix(callsign, prefix) {
			return true
		}
	}
	return false
}

// parseSpotTime accepts the DXSummit local format or RFC3339; anything
// else falls back to now.
func parseSpotTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}

func ptr(s string) *string { return &s }
