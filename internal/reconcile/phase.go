package reconcile

// Op names the kind of asynchronous task being tracked.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpLink   Op = "link"
	OpSend   Op = "send"
)

// Phase is the global task phase. It is exactly one of Idle, Pending or
// Rejected, so busy and failed can never be observed together.
type Phase interface {
	isPhase()
}

// Idle means nothing is in flight and the last task, if any, succeeded.
type Idle struct{}

// Pending means at least one task is in flight.
type Pending struct {
	Op       Op
	InFlight int
}

// Rejected means nothing is in flight and a task failed since the last
// task started.
type Rejected struct {
	Op  Op
	Err error
}

func (Idle) isPhase()     {}
func (Pending) isPhase()  {}
func (Rejected) isPhase() {}

// Busy reports whether p is Pending
func Busy(p Phase) bool {
	_, ok := p.(Pending)
	return ok
}

// Failure returns the error held by a Rejected phase, or nil.
func Failure(p Phase) error {
	if r, ok := p.(Rejected); ok {
		return r.Err
	}
	return nil
}
