package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Requests               uint64
	RequestsClientError    uint64
	RequestsServerError    uint64
	RequestDurationTotalNs int64

	ResourcesCreated        uint64
	ResourceStatusUpdates   uint64
	ResourceListCacheHits   uint64
	ResourceListCacheMisses uint64

	BorrowsRequested         uint64
	BorrowDuplicates         uint64
	BorrowTransitions        map[string]uint64
	BorrowInvalidTransitions uint64

	UsersRegistered uint64
	LoginSuccesses  uint64
	LoginFailures   uint64
	Logouts         uint64

	ActivityPublished  map[string]uint64
	ActivityProcessed  map[string]uint64
	ActivityQueueDepth int64
}

// InMemoryRecorder keeps counters in process memory. It backs the /metrics
// endpoint and is used directly in tests.
type InMemoryRecorder struct {
	requests               uint64
	requestsClientError    uint64
	requestsServerError    uint64
	requestDurationTotalNs int64

	resourcesCreated        uint64
	resourceStatusUpdates   uint64
	resourceListCacheHits   uint64
	resourceListCacheMisses uint64

	borrowsRequested         uint64
	borrowDuplicates         uint64
	borrowInvalidTransitions uint64

	mu                sync.Mutex
	borrowTransitions map[string]uint64

	usersRegistered uint64
	loginSuccesses  uint64
	loginFailures   uint64
	logouts         uint64

	activityPublished  map[string]uint64
	activityProcessed  map[string]uint64
	activityQueueDepth int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		borrowTransitions: make(map[string]uint64),
		activityPublished: make(map[string]uint64),
		activityProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	transitions := copyCounts(m.borrowTransitions)
	published := copyCounts(m.activityPublished)
	processed := copyCounts(m.activityProcessed)
	m.mu.Unlock()

	return Snapshot{
		Requests:               atomic.LoadUint64(&m.requests),
		RequestsClientError:    atomic.LoadUint64(&m.requestsClientError),
		RequestsServerError:    atomic.LoadUint64(&m.requestsServerError),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),

		ResourcesCreated:        atomic.LoadUint64(&m.resourcesCreated),
		ResourceStatusUpdates:   atomic.LoadUint64(&m.resourceStatusUpdates),
		ResourceListCacheHits:   atomic.LoadUint64(&m.resourceListCacheHits),
		ResourceListCacheMisses: atomic.LoadUint64(&m.resourceListCacheMisses),

		BorrowsRequested:         atomic.LoadUint64(&m.borrowsRequested),
		BorrowDuplicates:         atomic.LoadUint64(&m.borrowDuplicates),
		BorrowTransitions:        transitions,
		BorrowInvalidTransitions: atomic.LoadUint64(&m.borrowInvalidTransitions),

		UsersRegistered: atomic.LoadUint64(&m.usersRegistered),
		LoginSuccesses:  atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:   atomic.LoadUint64(&m.loginFailures),
		Logouts:         atomic.LoadUint64(&m.logouts),

		ActivityPublished:  published,
		ActivityProcessed:  processed,
		ActivityQueueDepth: atomic.LoadInt64(&m.activityQueueDepth),
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ObserveRequest records one served HTTP request.
func (m *InMemoryRecorder) ObserveRequest(status int, duration time.Duration) {
	atomic.AddUint64(&m.requests, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
	switch {
	case status >= http.StatusInternalServerError:
		atomic.AddUint64(&m.requestsServerError, 1)
	case status >= http.StatusBadRequest:
		atomic.AddUint64(&m.requestsClientError, 1)
	}
}

// IncResourceCreated increments the resource created counter.
func (m *InMemoryRecorder) IncResourceCreated() {
	atomic.AddUint64(&m.resourcesCreated, 1)
}

// IncResourceStatusUpdated increments the resource status update counter.
func (m *InMemoryRecorder) IncResourceStatusUpdated() {
	atomic.AddUint64(&m.resourceStatusUpdates, 1)
}

// IncResourceListCacheHit increments the listing cache hit counter.
func (m *InMemoryRecorder) IncResourceListCacheHit() {
	atomic.AddUint64(&m.resourceListCacheHits, 1)
}

// IncResourceListCacheMiss increments the listing cache miss counter.
func (m *InMemoryRecorder) IncResourceListCacheMiss() {
	atomic.AddUint64(&m.resourceListCacheMisses, 1)
}

// IncBorrowRequested increments the borrow request counter.
func (m *InMemoryRecorder) IncBorrowRequested() {
	atomic.AddUint64(&m.borrowsRequested, 1)
}

// IncBorrowDuplicate counts rejected duplicate active requests.
func (m *InMemoryRecorder) IncBorrowDuplicate() {
	atomic.AddUint64(&m.borrowDuplicates, 1)
}

// IncBorrowTransition counts status changes by target status.
func (m *InMemoryRecorder) IncBorrowTransition(to string) {
	m.mu.Lock()
	m.borrowTransitions[to]++
	m.mu.Unlock()
}

// IncBorrowInvalidTransition counts refused status changes.
func (m *InMemoryRecorder) IncBorrowInvalidTransition() {
	atomic.AddUint64(&m.borrowInvalidTransitions, 1)
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin counts login attempts by result.
func (m *InMemoryRecorder) IncLogin(result string) {
	if result == LoginSuccess {
		atomic.AddUint64(&m.loginSuccesses, 1)
		return
	}
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncLogout increments the logout counter.
func (m *InMemoryRecorder) IncLogout() {
	atomic.AddUint64(&m.logouts, 1)
}

// IncActivityPublished counts stream publishes by result.
func (m *InMemoryRecorder) IncActivityPublished(result string) {
	m.mu.Lock()
	m.activityPublished[result]++
	m.mu.Unlock()
}

// IncActivityProcessed counts consumed stream events by result.
func (m *InMemoryRecorder) IncActivityProcessed(result string) {
	m.mu.Lock()
	m.activityProcessed[result]++
	m.mu.Unlock()
}

// SetActivityQueueDepth records pending plus unread stream entries.
func (m *InMemoryRecorder) SetActivityQueueDepth(depth int64) {
	atomic.StoreInt64(&m.activityQueueDepth, depth)
}
