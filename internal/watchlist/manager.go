// Package watchlist remembers each policy's last reported candidates so watch mode
// can call out tickers that entered or left the list.
package watchlist

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"MarketScreener/internal/model"
)

// Change is the difference between two consecutive runs of a policy.
type Change struct {
	// First is true when there was no earlier run to compare against.
	First   bool
	Added   []string
	Removed []string
}

// Empty reports whether the candidate list is unchanged.
func (c Change) Empty() bool {
	return !c.First && len(c.Added) == 0 && len(c.Removed) == 0
}

// Manager handles watch state with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
	log      *zap.Logger
}

// NewManager creates a Manager, loading state from disk. An empty path keeps state in memory only.
func NewManager(filePath string, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	state := &State{Policies: map[model.Policy]PolicySnapshot{}}
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, err
		}
		state = loaded
	}
	return &Manager{state: state, filePath: filePath, log: log}, nil
}

// Observe records the tickers reported by a run and returns what changed since the previous one.
func (m *Manager) Observe(policy model.Policy, runID string, tickers []string) Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.state.Policies[policy]
	change := Change{First: !seen}
	if seen {
		change.Added = missingFrom(tickers, prev.Tickers)
		change.Removed = missingFrom(prev.Tickers, tickers)
	}

	m.state.Policies[policy] = PolicySnapshot{
		RunID:   runID,
		Tickers: append([]string(nil), tickers...),
		At:      time.Now(),
	}
	m.save()
	return change
}

// Last returns the previous snapshot for policy.
func (m *Manager) Last(policy model.Policy) (PolicySnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.Policies[policy]
	return s, ok
}

// save persists state. Caller holds mu.
func (m *Manager) save() {
	if m.filePath == "" {
		return
	}
	if err := SaveState(m.filePath, m.state); err != nil {
		m.log.Error("save watch state", zap.String("path", m.filePath), zap.Error(err))
	}
}

// missingFrom returns the entries of a not present in b, in a's order.
func missingFrom(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	var out []string
	for _, t := range a {
		if _, ok := set[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
