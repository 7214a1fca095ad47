package daemon

// Trigger identifies the external event that asked for a drain cycle.
type Trigger int

const (
	// TriggerOnline fires when connectivity is regained.
	TriggerOnline Trigger = iota
	// TriggerOffline fires when connectivity is lost. It carries no
	// drain; it only flips the manager's online state.
	TriggerOffline
	// TriggerVisible fires when the user's session resumes (SIGUSR1).
	TriggerVisible
	// TriggerFocus fires on local data-directory activity, e.g. a CLI
	// invocation in another process enqueued a mutation.
	TriggerFocus
	// TriggerTick fires on the periodic timer.
	TriggerTick
)

// String returns a human-readable representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerOnline:
		return "online"
	case TriggerOffline:
		return "offline"
	case TriggerVisible:
		return "visible"
	case TriggerFocus:
		return "focus"
	case TriggerTick:
		return "tick"
	default:
		return "unknown"
	}
}
