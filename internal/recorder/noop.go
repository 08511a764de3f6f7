package recorder

import "MomentumRotator/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTick(_ *model.PriceSnapshot, _ *float64) error { return nil }
func (n *NoopRecorder) RecordDecision(_ *model.DecisionOutput) error        { return nil }
func (n *NoopRecorder) RecordEquity(_ model.EquityPoint) error              { return nil }
func (n *NoopRecorder) RecordSwitch(_ *model.SwitchRecord) error            { return nil }

func (n *NoopRecorder) LatestEquity(_ int) ([]model.EquityPoint, error)    { return nil, nil }
func (n *NoopRecorder) LatestSwitches(_ int) ([]model.SwitchRecord, error) { return nil, nil }
func (n *NoopRecorder) LatestDecisions(_ int) ([]DecisionRow, error)       { return nil, nil }

func (n *NoopRecorder) Close() error { return nil }
