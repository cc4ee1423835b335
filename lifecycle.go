package ingest

import (
	"fmt"
	"runtime/debug"
)

// Phase is one state of a RouteLifecycle.
type Phase int

// The recognized RouteLifecycle phases, in the order they run.
const (
	PhasePrepare Phase = iota
	PhaseProcess
	PhaseShutdown
	PhaseDone
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhasePrepare:
		return "prepare"
	case PhaseProcess:
		return "process"
	case PhaseShutdown:
		return "shutdown"
	case PhaseDone:
		return "done"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// RouteLifecycle drives one request through the PREPARE -> PROCESS ->
// SHUTDOWN -> DONE state machine, emitting the framework's three
// well-known events along the way and intercepting any error or panic a
// listener raises so it never escapes the server.
type RouteLifecycle struct {
	server *Server
	event  string
	args   Args

	Phase Phase
}

// NewRouteLifecycle returns a pointer to a new RouteLifecycle for event
// (the route event computed by the router, or a direct literal listener
// name) running against args.
func NewRouteLifecycle(server *Server, event string, args Args) *RouteLifecycle {
	return &RouteLifecycle{server: server, event: event, args: args, Phase: PhasePrepare}
}

// Run drives the lifecycle through every phase to completion, returning the
// final Status. The caller is expected to call args.Response.Dispatch once
// Run returns, regardless of status.
func (lc *RouteLifecycle) Run() Status {
	if status := lc.prepare(); status == StatusAbort {
		return status
	}

	status := lc.process()
	if status == StatusAbort {
		return status
	}

	if s := lc.shutdown(); s == StatusAbort {
		return s
	}

	lc.Phase = PhaseDone
	return status
}

// prepare emits the literal "request" event.
func (lc *RouteLifecycle) prepare() Status {
	lc.Phase = PhasePrepare
	return lc.emit("request")
}

// process emits the route event. If, after emission, the Response carries
// neither a body nor a non-zero code, a NOT_FOUND error is synthesized.
func (lc *RouteLifecycle) process() Status {
	lc.Phase = PhaseProcess
	status := lc.emit(lc.event)
	if status == StatusAbort {
		return status
	}

	res := lc.args.Response
	if res.Body == nil && res.Code == 0 {
		lc.fail(&RouteNotFound{Event: lc.event}, StatusNotFound)
	} else if res.Code == 0 {
		res.SetStatus(int(StatusOK), "")
	}

	return status
}

// shutdown emits the literal "response" event.
func (lc *RouteLifecycle) shutdown() Status {
	lc.Phase = PhaseShutdown
	return lc.emit("response")
}

// emit runs every listener bound to event through the server's dispatch
// tables, recovering any panic and intercepting any returned error so
// neither escapes the lifecycle.
func (lc *RouteLifecycle) emit(event string) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			lc.fail(&FrameworkException{
				Phase: lc.Phase.String(),
				Value: r,
				Stack: debug.Stack(),
			}, StatusError)
			status = StatusError
		}
	}()

	queue := lc.server.Tasks(event)
	s, err := queue.Run(lc.args)
	if err != nil {
		lc.fail(&HandlerException{Event: event, Cause: err, Stack: debug.Stack()}, StatusError)
		return StatusError
	}

	return s
}

// fail upgrades err into the error Response shape and emits the "error"
// event so a user-registered handler can rewrite body/headers before the
// default envelope serialization takes over.
func (lc *RouteLifecycle) fail(err error, status Status) {
	lc.Phase = PhaseErrored
	res := lc.args.Response

	switch e := err.(type) {
	case *FrameworkException:
		res.SetStatus(int(status), "Internal Error")
		res.Error = e.Error()
		res.Stack = parseStack(e.Stack)
	case *HandlerException:
		res.SetStatus(int(status), "Internal Error")
		res.Error = e.Error()
		res.Stack = parseStack(e.Stack)
	case *RouteNotFound:
		res.SetStatus(int(StatusNotFound), "")
		res.Error = e.Error()
	default:
		res.SetStatus(int(StatusError), "Internal Error")
		res.Error = err.Error()
	}

	// Run the "error" listeners directly (bypassing emit) so a panic
	// inside an error handler does not recurse back into fail.
	func() {
		defer func() { recover() }()
		queue := lc.server.Tasks("error")
		queue.Run(lc.args)
	}()
}

// parseStack splits a debug.Stack() dump into individual frame lines.
func parseStack(raw []byte) []string {
	var lines []string
	start := 0
	for i, b := range raw {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(raw[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, string(raw[start:]))
	}
	return lines
}

// StatusResponse is the structured, transport-agnostic view of a Response
// that Server.Call returns.
type StatusResponse struct {
	Code    int
	Status  string
	Results interface{}
	Error   string
	Errors  map[string]string
	Total   int
	Stack   []string
}

// String renders the r for debug logging.
func (r StatusResponse) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Status)
}
