package ingest

// Status is the processing outcome of a single consumed message.
type Status string

// Message outcome values.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of processing one ingest message.
type Outcome struct {
	id     string
	status Status
	err    error
}

// NewOK creates an outcome for a successfully indexed message.
func NewOK(id string) Outcome { return Outcome{id: id, status: StatusOK} }

// NewSkipped creates an outcome for a message dropped by deduplication.
func NewSkipped(id string) Outcome { return Outcome{id: id, status: StatusSkipped} }

// NewFailed creates an outcome for a message that could not be indexed.
func NewFailed(id string, err error) Outcome {
	return Outcome{id: id, status: StatusFailed, err: err}
}

// ID returns the message identifier.
func (o Outcome) ID() string { return o.id }

// Status returns the processing outcome.
func (o Outcome) Status() Status { return o.status }

// Err returns the error, if any.
func (o Outcome) Err() error { return o.err }

// Failed reports whether the message should go to the dead letter queue.
func (o Outcome) Failed() bool { return o.status == StatusFailed }
