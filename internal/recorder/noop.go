package recorder

import "github.com/google/uuid"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScreen(run *ScreenRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return run.ID, nil
}

func (n *NoopRecorder) RecordAnalysis(_ *AnalysisEvent) error  { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunSummary, error) { return []RunSummary{}, nil }
func (n *NoopRecorder) Close() error                           { return nil }
