package scoring

import (
	"time"

	"MomentumRotator/internal/calculator"
	"MomentumRotator/internal/model"
)

// HistoryMargin is kept on top of the longest window so the 4h lookback
// always has a point at or before its horizon.
const HistoryMargin = 5 * time.Minute

// Windows holds the three momentum horizons and their weights.
type Windows struct {
	Short  time.Duration
	Mid    time.Duration
	Long   time.Duration
	WShort float64
	WMid   float64
	WLong  float64
}

// DefaultWindows are the 15m/1h/4h horizons weighted 0.5/0.3/0.2.
func DefaultWindows() Windows {
	return Windows{
		Short:  15 * time.Minute,
		Mid:    time.Hour,
		Long:   4 * time.Hour,
		WShort: 0.5,
		WMid:   0.3,
		WLong:  0.2,
	}
}

// MaxAge is the retention window for every PriceHistory.
func (w Windows) MaxAge() time.Duration {
	longest := w.Short
	if w.Mid > longest {
		longest = w.Mid
	}
	if w.Long > longest {
		longest = w.Long
	}
	return longest + HistoryMargin
}

// Engine converts price observations into per-asset momentum scores.
type Engine struct {
	windows   Windows
	assets    []string
	histories map[string]*History
}

// NewEngine creates an engine tracking the given universe.
func NewEngine(assets []string, windows Windows) *Engine {
	e := &Engine{
		windows:   windows,
		histories: make(map[string]*History),
	}
	e.SetUniverse(assets)
	return e
}

// Windows returns the configured horizons.
func (e *Engine) Windows() Windows {
	return e.windows
}

// SetWindows swaps horizons and weights. Histories are kept and adopt the
// new retention on their next write.
func (e *Engine) SetWindows(w Windows) {
	e.windows = w
	for _, h := range e.histories {
		h.maxAge = w.MaxAge()
	}
}

// Assets returns a copy of the tracked universe.
func (e *Engine) Assets() []string {
	return append([]string(nil), e.assets...)
}

// SetUniverse replaces the tracked universe. New assets start with an empty
// history, removed assets are dropped and the rest keep theirs.
func (e *Engine) SetUniverse(assets []string) {
	next := make(map[string]*History, len(assets))
	ordered := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, dup := next[a]; dup {
			continue
		}
		if h, ok := e.histories[a]; ok {
			next[a] = h
		} else {
			next[a] = NewHistory(e.windows.MaxAge())
		}
		ordered = append(ordered, a)
	}
	e.histories = next
	e.assets = ordered
}

// Update records one price for asset. Unknown assets and non-positive prices
// are ignored.
func (e *Engine) Update(asset string, price float64, ts time.Time) bool {
	h, ok := e.histories[asset]
	if !ok || price <= 0 {
		return false
	}
	return h.Add(ts, price)
}

// UpdatePrices records every universe asset present in prices. Assets missing
// from the map simply do not grow this cycle.
func (e *Engine) UpdatePrices(prices map[string]float64, ts time.Time) int {
	n := 0
	for _, a := range e.assets {
		p, ok := prices[a]
		if !ok {
			continue
		}
		if e.Update(a, p, ts) {
			n++
		}
	}
	return n
}

// ReturnOver returns the return from the most recent price at or before
// now-horizon to the latest price. When no point is old enough the oldest
// available price is used. ok is false only when the asset has no history.
func (e *Engine) ReturnOver(asset string, now time.Time, horizon time.Duration) (float64, bool) {
	h, exists := e.histories[asset]
	if !exists {
		return 0, false
	}
	latest, ok := h.Latest()
	if !ok {
		return 0, false
	}
	past, ok := h.AtOrBefore(now.Add(-horizon))
	if !ok {
		past, _ = h.Oldest()
	}
	r, err := calculator.SimpleReturn(latest.Price, past.Price)
	if err != nil {
		return 0, false
	}
	return r, true
}

// Score returns the weighted momentum score for asset, or nil when any window
// lacks sufficient history.
func (e *Engine) Score(asset string, now time.Time) *float64 {
	return e.row(asset, now).Score
}

// Scores returns one row per universe asset in universe order.
func (e *Engine) Scores(now time.Time) []model.ScoreRow {
	rows := make([]model.ScoreRow, 0, len(e.assets))
	for _, a := range e.assets {
		rows = append(rows, e.row(a, now))
	}
	return rows
}

func (e *Engine) row(asset string, now time.Time) model.ScoreRow {
	row := model.ScoreRow{Asset: asset}
	h, ok := e.histories[asset]
	if !ok {
		return row
	}
	w := e.windows
	horizons := []time.Duration{w.Short, w.Mid, w.Long}
	rets := make([]float64, 0, len(horizons))
	ready := true
	for i, hz := range horizons {
		r, ok := e.ReturnOver(asset, now, hz)
		if !ok {
			ready = false
			continue
		}
		v := r
		switch i {
		case 0:
			row.Ret15m = &v
		case 1:
			row.Ret1h = &v
		case 2:
			row.Ret4h = &v
		}
		if !h.Covers(now, hz) {
			ready = false
		}
		rets = append(rets, r)
	}
	if !ready {
		return row
	}
	score, err := calculator.WeightedSum([]float64{w.WShort, w.WMid, w.WLong}, rets)
	if err != nil {
		return row
	}
	row.Score = &score
	return row
}
