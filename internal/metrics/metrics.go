// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Activity stream outcomes.
const (
	ActivityPublished    = "success"
	ActivityDropped      = "dropped"
	ActivityStored       = "success"
	ActivityFailed       = "failed"
	ActivityDeadLettered = "dead_lettered"
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// HTTP metrics
	ObserveRequest(status int, duration time.Duration)

	// Resource registry metrics
	IncResourceCreated()
	IncResourceStatusUpdated()
	IncResourceListCacheHit()
	IncResourceListCacheMiss()

	// Borrow workflow metrics
	IncBorrowRequested()
	IncBorrowDuplicate()
	IncBorrowTransition(to string)
	IncBorrowInvalidTransition()

	// Account metrics
	IncUserRegistered()
	IncLogin(result string) // result: "success" or "failure"
	IncLogout()

	// Borrow activity stream metrics
	IncActivityPublished(result string)
	IncActivityProcessed(result string)
	SetActivityQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
