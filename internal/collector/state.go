package collector

// State is the lifecycle position of a Collector run.
type State int

const (
	StateInit State = iota
	StatePolling
	StateArchiving
	StateDone
	StateFailed
	// StateStopped means the run was cancelled before the threshold was reached.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePolling:
		return "polling"
	case StateArchiving:
		return "archiving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateStopped
}
