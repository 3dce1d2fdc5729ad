// Package observability implements the near-miss channel described in
// spec.md §7: structured events for states that are notable but not
// wrong enough to raise an error. Callers that would otherwise have no
// way to surface "this looked suspicious but I handled it" route
// through a Hook instead of logging ad hoc.
package observability

import (
	"log/slog"
)

// Hook receives near-miss notices. Notice should never block or fail
// the caller; it's an observability side channel, not a control-flow
// mechanism.
type Hook interface {
	Notice(kind string, fields map[string]any)
}

// SlogHook is the default Hook, logging each notice as a structured
// warning through a component-scoped *slog.Logger.
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook returns a Hook backed by the given logger, tagged with
// component "observability".
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger.With("component", "observability")}
}

// Notice logs fields at warn level, with kind under the "near_miss" key.
func (h *SlogHook) Notice(kind string, fields map[string]any) {
	args := make([]any, 0, len(fields)*2+2)
	args = append(args, "near_miss", kind)
	for k, v := range fields {
		args = append(args, k, v)
	}
	h.logger.Warn("near miss", args...)
}

// NoopHook discards every notice. Used in tests that don't care about
// the observability side channel and don't want to assert against it.
type NoopHook struct{}

func (NoopHook) Notice(string, map[string]any) {}

// RecordingHook collects notices in memory, for tests that assert a
// specific near-miss fired.
type RecordingHook struct {
	Notices []Notice
}

// Notice pairs a kind with its fields, as recorded by RecordingHook.
type Notice struct {
	Kind   string
	Fields map[string]any
}

func (h *RecordingHook) Notice(kind string, fields map[string]any) {
	h.Notices = append(h.Notices, Notice{Kind: kind, Fields: fields})
}

// Has reports whether any recorded notice matches kind.
func (h *RecordingHook) Has(kind string) bool {
	for _, n := range h.Notices {
		if n.Kind == kind {
			return true
		}
	}
	return false
}
