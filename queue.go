package ingest

import "sort"

// Args is the argument tuple a Task receives. It mirrors the task signature
// from the external interface contract: (request, response, context).
type Args struct {
	Request  *Request
	Response *Response
	Context  *Server
}

// Task is the opaque callable unit of work held by a PriorityQueue.
//
// Returning the boolean value false signals ABORT: no subsequent task in the
// queue is invoked, and Run reports StatusAbort. Any other return value,
// including nil, lets the queue continue to the next task. A non-nil error
// is a HandlerException; it is not an ABORT, and it is the caller's (usually
// the RouteLifecycle's) responsibility to intercept it.
type Task func(Args) (interface{}, error)

// entry is a Task together with the priority and insertion order it was
// added with.
type entry struct {
	task     Task
	priority int
	seq      int
}

// PriorityQueue is an ordered collection of Tasks. Tasks run in descending
// priority order; tasks added with equal priority run in the order they were
// added (a stable sort).
type PriorityQueue struct {
	entries []entry
	seq     int
	minSeen int
	maxSeen int
}

// NewPriorityQueue returns a pointer to a new, empty PriorityQueue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Add registers the task at the priority and returns the q for chaining.
// Higher priority values run first.
func (q *PriorityQueue) Add(task Task, priority int) *PriorityQueue {
	if len(q.entries) == 0 {
		q.minSeen, q.maxSeen = priority, priority
	} else {
		if priority < q.minSeen {
			q.minSeen = priority
		}
		if priority > q.maxSeen {
			q.maxSeen = priority
		}
	}

	q.entries = append(q.entries, entry{
		task:     task,
		priority: priority,
		seq:      q.seq,
	})
	q.seq++

	return q
}

// Push adds the task at one less than the lowest priority seen so far,
// guaranteeing it runs last among the current entries.
func (q *PriorityQueue) Push(task Task) *PriorityQueue {
	if len(q.entries) == 0 {
		return q.Add(task, 0)
	}
	return q.Add(task, q.minSeen-1)
}

// Shift adds the task at one more than the highest priority seen so far,
// guaranteeing it runs first among the current entries.
func (q *PriorityQueue) Shift(task Task) *PriorityQueue {
	if len(q.entries) == 0 {
		return q.Add(task, 0)
	}
	return q.Add(task, q.maxSeen+1)
}

// Len returns the number of tasks currently queued.
func (q *PriorityQueue) Len() int {
	return len(q.entries)
}

// Run executes the queued tasks in priority order, passing args to each.
// It halts and returns StatusAbort the moment a task returns the literal
// boolean false. If a task returns a non-nil error, Run halts immediately
// and returns StatusError together with that error. An empty queue reports
// StatusNotFound without invoking anything.
func (q *PriorityQueue) Run(args Args) (Status, error) {
	if len(q.entries) == 0 {
		return StatusNotFound, nil
	}

	ordered := make([]entry, len(q.entries))
	copy(ordered, q.entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].priority > ordered[j].priority
	})

	for _, e := range ordered {
		result, err := e.task(args)
		if err != nil {
			return StatusError, err
		}

		if b, ok := result.(bool); ok && !b {
			return StatusAbort, nil
		}
	}

	return StatusOK, nil
}
