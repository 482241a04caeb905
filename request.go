package sketchvm

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

// RunState is the interpreter's execution state (spec §4.5.6 step 3:
// "recording the suspended call site and the previous execution state
// (Running or Stepping)").
type RunState int

const (
	RunStateRunning RunState = iota
	RunStateStepping
	RunStateWaiting
	RunStateComplete
	RunStateTerminated
)

var requestCounter uint64

// newRequestID builds a requestId of the form
// "<funcOrMethod>_<monotonicCounter>_<random>" (spec §4.5.6 step 1),
// unique for the life of the interpreter.
func newRequestID(funcOrMethod string) string {
	n := atomic.AddUint64(&requestCounter, 1)
	return fmt.Sprintf("%s_%d_%d", funcOrMethod, n, rand.Int31())
}

// PendingRequest is the single outstanding external-read request (spec
// §4.5.6, §5 "Concurrency guarantee: at most one request is
// outstanding at a time"). Grounded on google-kati/worker.go's `job`
// (a unit of async work tracked against a result channel) and
// `jobResult`, narrowed from a worker-pool's many concurrent jobs down
// to exactly one, since §5 mandates single-threaded cooperative
// scheduling rather than kati's parallel build graph.
type PendingRequest struct {
	ID           string
	FuncOrMethod string
	Params       []string
	Deadline     time.Time
	Fallback     Value
	PrevState    RunState
}

// PendingSlot holds at most one PendingRequest at a time; Begin
// refuses a second request while one is outstanding, enforcing the
// hard single-outstanding-request invariant at the data-structure
// level rather than relying on callers to check first.
type PendingSlot struct {
	req *PendingRequest
}

func (s *PendingSlot) Occupied() bool { return s.req != nil }

func (s *PendingSlot) Current() *PendingRequest { return s.req }

// Begin installs a new pending request. Returns an error if one is
// already outstanding (spec §5 concurrency guarantee).
func (s *PendingSlot) Begin(funcOrMethod string, params []string, timeout time.Duration, fallback Value, prevState RunState) (*PendingRequest, error) {
	if s.req != nil {
		return nil, newError(KindType, 0, "external read requested while request %q is still outstanding", s.req.ID)
	}
	r := &PendingRequest{
		ID:           newRequestID(funcOrMethod),
		FuncOrMethod: funcOrMethod,
		Params:       params,
		Deadline:     time.Now().Add(timeout),
		Fallback:     fallback,
		PrevState:    prevState,
	}
	s.req = r
	return r, nil
}

// Resolve clears the outstanding request and returns its saved
// previous run state; the returned Value is always the zero Value, the
// caller delivers the host's value itself. Returns false without side
// effects if id does not match the currently awaited request (spec
// §4.5.6 step 4).
func (s *PendingSlot) Resolve(id string) (Value, RunState, bool) {
	if s.req == nil || s.req.ID != id {
		return Value{}, RunStateRunning, false
	}
	prev := s.req.PrevState
	s.req = nil
	return Value{}, prev, true
}

// Fail resolves the outstanding request with an error instead of a
// value; like Resolve, a mismatched id is a no-op.
func (s *PendingSlot) Fail(id string) (RunState, bool) {
	if s.req == nil || s.req.ID != id {
		return RunStateRunning, false
	}
	prev := s.req.PrevState
	s.req = nil
	return prev, true
}

// CheckTimeout reports whether the outstanding request's deadline has
// passed (spec §4.5.6 step 6); the caller is responsible for
// substituting req.Fallback and restoring req.PrevState.
func (s *PendingSlot) CheckTimeout(now time.Time) (*PendingRequest, bool) {
	if s.req == nil {
		return nil, false
	}
	if now.Before(s.req.Deadline) {
		return nil, false
	}
	req := s.req
	s.req = nil
	return req, true
}

func (s *PendingSlot) Clear() { s.req = nil }
