// Package diag is a small in-memory diagnostic registry adapted from
// hotki-world/src/mimic/registry.rs: it records, per scripted scenario,
// which windows were mimicked and which non-compliance quirks they were
// given (clamped size, ignored position, permission-denied, etc.), so
// tests and World.Status() can introspect what a fake scenario actually
// set up without re-deriving it from adapter call traces.
package diag

import "sync"

// Quirk names a single non-compliant-app behavior applied to a mimicked
// window in a test scenario.
type Quirk string

const (
	QuirkClampsSize       Quirk = "clamps_size"
	QuirkIgnoresPosition  Quirk = "ignores_position"
	QuirkPermissionDenied Quirk = "permission_denied"
	QuirkNonResizable     Quirk = "non_resizable"
	QuirkSlowToRespond    Quirk = "slow_to_respond"
)

// WindowInfo records one mimicked window's identity and quirks within a
// scenario.
type WindowInfo struct {
	PID    int32
	ID     uint32
	Quirks []Quirk
}

// Registry is a named set of scenarios, each holding the windows that
// were mimicked within it.
type Registry struct {
	mu        sync.Mutex
	scenarios map[string][]WindowInfo
}

func New() *Registry {
	return &Registry{scenarios: make(map[string][]WindowInfo)}
}

// Record appends a window's mimic metadata to the given scenario.
func (r *Registry) Record(scenario string, w WindowInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[scenario] = append(r.scenarios[scenario], w)
}

// Scenario returns a copy of the recorded windows for a scenario name.
func (r *Registry) Scenario(name string) []WindowInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WindowInfo(nil), r.scenarios[name]...)
}

// Scenarios lists every scenario name currently recorded.
func (r *Registry) Scenarios() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	return names
}

// Reset clears all recorded scenarios.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios = make(map[string][]WindowInfo)
}
