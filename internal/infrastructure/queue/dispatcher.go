package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// DedupChecker abstracts the at-most-once store (Redis). A duplicate
// decision id means a delivery attempt was already made and must not be
// repeated.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, decisionID string) (bool, error)
	Mark(ctx context.Context, decisionID string) error
}

// Dispatcher routes decision notifications to a fixed set of workers using
// consistent hashing on the recipient username, so decisions for one user are
// delivered in order. Delivery is fire-and-forget relative to the approval
// transition: a mail failure is logged and counted, never propagated.
type Dispatcher struct {
	workers  []chan ports.DecisionNotification
	notifier ports.Notifier
	dedup    DedupChecker
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, notifier ports.Notifier, dedup DedupChecker, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.DecisionNotification, numWorkers),
		notifier: notifier,
		dedup:    dedup,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.DecisionNotification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a notification to the worker responsible for its recipient.
// It never blocks: when the shard's buffer is full behind a slow delivery, the
// notification is dropped and counted rather than stalling the approval
// transition.
func (d *Dispatcher) Enqueue(n ports.DecisionNotification) {
	i := d.shardIndex(n.Username)
	select {
	case d.workers[i] <- n:
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("username", n.Username).
			Str("decision_id", n.DecisionID).
			Int("worker_id", i).
			Msg("notification queue full, dropping")
		return
	}
	metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.DecisionNotification) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, n)
			metrics.NotificationQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
		}
	}
}

// deliver makes at most one attempt per decision: the dedup key is set before
// the send, so a replayed decision id is skipped rather than re-attempted.
func (d *Dispatcher) deliver(ctx context.Context, n ports.DecisionNotification) {
	isDup, err := d.dedup.IsDuplicate(ctx, n.DecisionID)
	if err != nil {
		d.log.Warn().Err(err).Str("decision_id", n.DecisionID).Msg("dedup check failed, attempting delivery anyway")
	} else if isDup {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		d.log.Debug().Str("decision_id", n.DecisionID).Msg("duplicate notification skipped")
		return
	}

	if markErr := d.dedup.Mark(ctx, n.DecisionID); markErr != nil {
		d.log.Warn().Err(markErr).Str("decision_id", n.DecisionID).Msg("failed to set dedup key")
	}

	if err := d.notifier.NotifyDecision(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("username", n.Username).
			Bool("approved", n.Approved).
			Msg("decision notification failed")
		return
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	d.log.Info().
		Str("username", n.Username).
		Bool("approved", n.Approved).
		Msg("decision notification sent")
}
