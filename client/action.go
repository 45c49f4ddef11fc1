package client

// ActionKind names a mutation issued by the controller.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionToggle ActionKind = "toggle"
	ActionDelete ActionKind = "delete"
)

// ActionState tracks the lifecycle of an optimistic mutation. Every
// mutation is applied locally first (Pending) and either Confirmed by the
// server response or RolledBack to the pre-action state.
type ActionState int

const (
	ActionPending ActionState = iota
	ActionConfirmed
	ActionRolledBack
)

func (s ActionState) String() string {
	switch s {
	case ActionPending:
		return "pending"
	case ActionConfirmed:
		return "confirmed"
	case ActionRolledBack:
		return "rolledback"
	}
	return "unknown"
}

// Action records one optimistic mutation and its outcome.
type Action struct {
	Kind   ActionKind
	TaskID string
	State  ActionState
	Err    error
}

// Notifier receives user-facing status notifications. Implementations
// render them however the surface requires (toast, status bar, log line).
type Notifier interface {
	Successf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopNotifier struct{}

func (noopNotifier) Successf(string, ...any) {}
func (noopNotifier) Errorf(string, ...any)   {}
