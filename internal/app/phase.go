package app

// Phase is the lifecycle state of a client session.
type Phase int32

const (
	// PhaseDisconnected means no transport has been established yet.
	PhaseDisconnected Phase = iota
	// PhaseConnected means the transport is up but register has not been sent.
	PhaseConnected
	// PhaseRegistered means register has been sent.
	PhaseRegistered
	// PhaseActive means the input loop is running.
	PhaseActive
	// PhaseUnregistering means the shutdown sequence is in progress.
	PhaseUnregistering
	// PhaseClosed is terminal.
	PhaseClosed
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnected:
		return "connected"
	case PhaseRegistered:
		return "registered"
	case PhaseActive:
		return "active"
	case PhaseUnregistering:
		return "unregistering"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
