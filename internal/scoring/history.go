package scoring

import (
	"time"

	"MomentumRotator/internal/model"
)

// History is a bounded, time-ordered price series for one asset.
type History struct {
	maxAge time.Duration
	points []model.PricePoint
}

// NewHistory creates an empty history that keeps maxAge worth of points.
func NewHistory(maxAge time.Duration) *History {
	return &History{maxAge: maxAge}
}

// Add appends a price observation and prunes points older than maxAge
// relative to ts. Observations older than the newest point are rejected.
func (h *History) Add(ts time.Time, price float64) bool {
	if n := len(h.points); n > 0 && ts.Before(h.points[n-1].Time) {
		return false
	}
	h.points = append(h.points, model.PricePoint{Time: ts, Price: price})
	h.prune(ts)
	return true
}

func (h *History) prune(now time.Time) {
	cutoff := now.Add(-h.maxAge)
	i := 0
	for i < len(h.points) && h.points[i].Time.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.points = append(h.points[:0], h.points[i:]...)
	}
}

// Len returns the number of retained points.
func (h *History) Len() int {
	return len(h.points)
}

// Latest returns the newest point.
func (h *History) Latest() (model.PricePoint, bool) {
	if len(h.points) == 0 {
		return model.PricePoint{}, false
	}
	return h.points[len(h.points)-1], true
}

// Oldest returns the oldest retained point.
func (h *History) Oldest() (model.PricePoint, bool) {
	if len(h.points) == 0 {
		return model.PricePoint{}, false
	}
	return h.points[0], true
}

// AtOrBefore returns the most recent point at or before t.
func (h *History) AtOrBefore(t time.Time) (model.PricePoint, bool) {
	for i := len(h.points) - 1; i >= 0; i-- {
		if !h.points[i].Time.After(t) {
			return h.points[i], true
		}
	}
	return model.PricePoint{}, false
}

// Covers reports whether the history reaches back at least horizon from now.
func (h *History) Covers(now time.Time, horizon time.Duration) bool {
	oldest, ok := h.Oldest()
	if !ok {
		return false
	}
	return !oldest.Time.After(now.Add(-horizon))
}
