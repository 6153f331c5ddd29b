package queue

// Status is the lifecycle state of a queued upload.
//
//	queued -> uploading -> completed
//	uploading -> retrying -> uploading   (transient failure, retries left)
//	uploading -> failed                  (permanent failure or retries spent)
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Upload is a snapshot of one queue entry.
//
// Error and ErrorKind describe the last failure and are set only while
// retrying or failed. ServerFileID is set once the entry completes.
// Attempts counts dispatches to the transport.
type Upload struct {
	ID           string
	Name         string
	Size         int64
	Payload      Source
	Status       Status
	Progress     float64
	RetryCount   int
	Attempts     int
	Error        string
	ErrorKind    string
	ServerFileID int64
}

// Stats are aggregate counts taken in one critical section.
type Stats struct {
	Total     int
	Queued    int
	Uploading int
	Retrying  int
	Completed int
	Failed    int
}

// Pending counts entries that have not reached a terminal state.
func (s Stats) Pending() int {
	return s.Queued + s.Uploading + s.Retrying
}
