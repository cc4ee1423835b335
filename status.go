package ingest

// Status is the closed set of lifecycle outcomes a PriorityQueue.Run or a
// RouteLifecycle phase can report. It is never itself an exception: ABORT in
// particular is a cooperative signal, not an error.
type Status int

// The recognized Status values. ABORT is not an HTTP-visible code; it only
// ever travels between a Task and the PriorityQueue that invoked it.
const (
	StatusOK       Status = 200
	StatusAbort    Status = 309
	StatusNotFound Status = 404
	StatusError    Status = 500
)

// statusLabels holds the human-readable label for each Status.
var statusLabels = map[Status]string{
	StatusOK:       "OK",
	StatusAbort:    "Abort",
	StatusNotFound: "Not Found",
	StatusError:    "Error",
}

// String returns the human-readable label of the s, or "Unknown" if the s is
// not one of the recognized Status values.
func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Code returns the integer value of the s.
func (s Status) Code() int {
	return int(s)
}
