package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveRequest(status int, duration time.Duration) {}
func (n *NoopRecorder) IncResourceCreated()                               {}
func (n *NoopRecorder) IncResourceStatusUpdated()                         {}
func (n *NoopRecorder) IncResourceListCacheHit()                          {}
func (n *NoopRecorder) IncResourceListCacheMiss()                         {}
func (n *NoopRecorder) IncBorrowRequested()                               {}
func (n *NoopRecorder) IncBorrowDuplicate()                               {}
func (n *NoopRecorder) IncBorrowTransition(to string)                     {}
func (n *NoopRecorder) IncBorrowInvalidTransition()                       {}
func (n *NoopRecorder) IncUserRegistered()                                {}
func (n *NoopRecorder) IncLogin(result string)                            {}
func (n *NoopRecorder) IncLogout()                                        {}
func (n *NoopRecorder) IncActivityPublished(result string)                {}
func (n *NoopRecorder) IncActivityProcessed(result string)                {}
func (n *NoopRecorder) SetActivityQueueDepth(depth int64)                 {}
