package muf

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Fetcher abstracts the upstream station feed client.
type Fetcher interface {
	Fetch(ctx context.Context) ([]StationRecord, error)
}

// Store is the contract the in-memory series store must satisfy.
type Store interface {
	Append(roquetes, arenosillo *float64, ts time.Time) Point
	Latest() (Point, bool)
	Range(window time.Duration) []Point
	Size() int
}

// Service runs one fetch-resolve-append cycle per scheduler tick and is
// the query surface for the HTTP and WebSocket layers.
type Service struct {
	fetcher  Fetcher
	resolver *Resolver
	store    Store
	log      *zap.Logger

	now func() time.Time

	// onPoint, when set, is called with every appended point. Used by
	// the live feed; must not block.
	onPoint func(Point)
}

func NewService(fetcher Fetcher, resolver *Resolver, store Store, log *zap.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		resolver: resolver,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// OnPoint registers a callback invoked for every appended point.
// Call before the scheduler starts; not safe to swap concurrently.
func (s *Service) OnPoint(fn func(Point)) {
	s.onPoint = fn
}

// Refresh performs one acquisition cycle. A fetch that exhausts its
// retries skips the append entirely, leaving a gap in the series; the
// error never propagates as fatal to the scheduler.
func (s *Service) Refresh(ctx context.Context) error {
	records, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.log.Warn("no station data this cycle", zap.Error(err))
		return nil
	}

	resolved, skipped := s.resolver.Resolve(records)
	if skipped > 0 {
		s.log.Info("unreadable records in feed", zap.Int("skipped", skipped))
	}

	roquetes := measurementValue(resolved, StationRoquetes)
	arenosillo := measurementValue(resolved, StationArenosillo)

	// Acquisition-time stamping: upstream timestamps are not trusted,
	// the cycle is stamped with the instant the fetch completed.
	point := s.store.Append(roquetes, arenosillo, s.now().UTC())

	s.log.Info("point appended",
		zap.Float64p("roquetes", point.Roquetes),
		zap.Float64p("arenosillo", point.Arenosillo),
		zap.Float64p("avg", point.Avg),
		zap.Time("ts", point.Timestamp),
		zap.Int("window_size", s.store.Size()))

	if s.onPoint != nil {
		s.onPoint(point)
	}
	return nil
}

func measurementValue(resolved map[StationID]Measurement, id StationID) *float64 {
	m, ok := resolved[id]
	if !ok {
		return nil
	}
	return m.MUFD
}

// Latest returns the most recent point, if any.
func (s *Service) Latest() (Point, bool) {
	return s.store.Latest()
}

// SeriesWindow returns the retained points of the last `minutes` minutes
// in column-oriented form.
func (s *Service) SeriesWindow(minutes int) Series {
	points := s.store.Range(time.Duration(minutes) * time.Minute)

	series := Series{
		Timestamps: make([]time.Time, 0, len(points)),
		Roquetes:   make([]*float64, 0, len(points)),
		Arenosillo: make([]*float64, 0, len(points)),
		Avg:        make([]*float64, 0, len(points)),
	}
	for _, p := range points {
		series.Timestamps = append(series.Timestamps, p.Timestamp)
		series.Roquetes = append(series.Roquetes, p.Roquetes)
		series.Arenosillo = append(series.Arenosillo, p.Arenosillo)
		series.Avg = append(series.Avg, p.Avg)
	}
	return series
}
