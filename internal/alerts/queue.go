// Package alerts serializes concurrently arriving new-order events into a
// single "currently showing" slot plus an ordered backlog, so the terminal
// presents one incoming order at a time.
package alerts

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

var queuedAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "foodify_agent_alerts_pending",
	Help: "Number of order alerts pending behind the active one",
})

func init() {
	prometheus.MustRegister(queuedAlerts)
}

// Option configures a Queue.
type Option func(*Queue)

// WithDeduplication collapses a pushed order whose id already sits in the
// active slot or the backlog. Off by default: a server resend then produces
// a second visible alert.
func WithDeduplication() Option {
	return func(q *Queue) { q.dedup = true }
}

// Queue holds pending new-order alerts. At most one alert is active; the
// rest wait in strict arrival order.
type Queue struct {
	mu      sync.Mutex
	active  *domain.OrderNotification
	backlog []domain.OrderNotification
	dedup   bool
}

// NewQueue creates an empty alert queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends an order alert. The first alert becomes active immediately;
// later ones queue FIFO behind it. Returns true when the order was taken
// (false only when de-duplication dropped it).
func (q *Queue) Push(order domain.OrderNotification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.dedup && q.holdsLocked(order.ID) {
		return false
	}

	if q.active == nil {
		o := order
		q.active = &o
		return true
	}

	q.backlog = append(q.backlog, order)
	queuedAlerts.Set(float64(len(q.backlog)))
	return true
}

// Active returns the currently presented alert, or false when none.
func (q *Queue) Active() (domain.OrderNotification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return domain.OrderNotification{}, false
	}
	return *q.active, true
}

// Queued returns a copy of the backlog in arrival order.
func (q *Queue) Queued() []domain.OrderNotification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OrderNotification, len(q.backlog))
	copy(out, q.backlog)
	return out
}

// ClearActive drops the active alert and promotes the backlog head, if any.
func (q *Queue) ClearActive() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteLocked()
}

// Remove drops the alert with the given order id wherever it sits. Removing
// the active alert promotes the backlog head; removing a queued alert leaves
// the active slot untouched.
func (q *Queue) Remove(orderID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active != nil && q.active.ID == orderID {
		q.promoteLocked()
		return
	}

	kept := q.backlog[:0]
	for _, o := range q.backlog {
		if o.ID != orderID {
			kept = append(kept, o)
		}
	}
	q.backlog = kept
	queuedAlerts.Set(float64(len(q.backlog)))
}

// Reset clears both the active slot and the backlog. Used on logout.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.active = nil
	q.backlog = nil
	queuedAlerts.Set(0)
}

// Len returns the total number of held alerts, active included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.backlog)
	if q.active != nil {
		n++
	}
	return n
}

func (q *Queue) promoteLocked() {
	if len(q.backlog) == 0 {
		q.active = nil
		return
	}
	head := q.backlog[0]
	q.active = &head
	q.backlog = q.backlog[1:]
	queuedAlerts.Set(float64(len(q.backlog)))
}

func (q *Queue) holdsLocked(orderID int64) bool {
	if q.active != nil && q.active.ID == orderID {
		return true
	}
	for _, o := range q.backlog {
		if o.ID == orderID {
			return true
		}
	}
	return false
}
