package logvault

import "time"

// Meta is a set of string dimensions attached to every log event
// (project, process, environment and the like).
type Meta map[string]string

// Clone returns a copy of the meta map so the original can be mutated
// by the caller without affecting already emitted events.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a new Meta with entries of other laid over m.
func (m Meta) Merge(other Meta) Meta {
	out := m.Clone()
	if out == nil {
		out = make(Meta, len(other))
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// LogEvent is the unit routed through the notification pipeline. It is
// created once at emission time and never mutated afterwards; every
// transport and channel receives its own copy.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   any       `json:"message"`
	Meta      Meta      `json:"meta,omitempty"`
}

// NewEvent builds a LogEvent stamped with the current time. The meta
// map is copied.
func NewEvent(level Level, message any, meta Meta) LogEvent {
	return LogEvent{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Meta:      meta.Clone(),
	}
}
