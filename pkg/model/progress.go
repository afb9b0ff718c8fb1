package model

// Status is the lifecycle state of a single transfer.
type Status string

// Transfer states.
const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether no further updates are expected.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// DownloadProgress tracks one active transfer. It is owned by the caller and
// is not safe for concurrent mutation.
type DownloadProgress struct {
	Name       string
	Downloaded int64
	// Total is 0 until the response headers announce a length.
	Total  int64
	Status Status
	Err    error
}

// NewDownloadProgress returns progress in the starting state.
func NewDownloadProgress(name string) *DownloadProgress {
	return &DownloadProgress{Name: name, Status: StatusStarting}
}

// Update records a progress callback and moves the transfer to downloading.
func (p *DownloadProgress) Update(downloaded, total int64) {
	if p.Status.IsTerminal() {
		return
	}
	p.Downloaded = downloaded
	p.Total = total
	p.Status = StatusDownloading
}

// Complete marks the transfer finished.
func (p *DownloadProgress) Complete() {
	if p.Total == 0 {
		p.Total = p.Downloaded
	}
	p.Status = StatusComplete
}

// Fail marks the transfer failed with err.
func (p *DownloadProgress) Fail(err error) {
	p.Status = StatusError
	p.Err = err
}

// Cancel marks the transfer cancelled.
func (p *DownloadProgress) Cancel() {
	p.Status = StatusCancelled
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (p *DownloadProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	pct := float64(p.Downloaded) / float64(p.Total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
