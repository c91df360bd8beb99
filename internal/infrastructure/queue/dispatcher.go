package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes assignment requests to a fixed set of workers using
// consistent hashing on the order id, guaranteeing per-order ordering of
// assignment attempts.
type Dispatcher struct {
	workers []chan string
	service ports.AssignmentService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AssignmentService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an order id to the worker responsible for it.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(orderID string) {
	idx := d.shardIndex(orderID)
	d.workers[idx] <- orderID
	metrics.AssignmentQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case orderID, ok := <-ch:
			if !ok {
				return
			}
			metrics.AssignmentQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

			start := time.Now()
			_, err := d.service.Assign(ctx, orderID)
			switch {
			case err == nil:
				metrics.AssignmentDuration.WithLabelValues("assigned").Observe(time.Since(start).Seconds())
			case errors.Is(err, domain.ErrAlreadyAssigned):
				// another attempt won; nothing to do
				d.log.Debug().Str("order_id", orderID).Int("worker_id", id).Msg("order already assigned")
			case errors.Is(err, domain.ErrNoAgentAvailable):
				// the order stays confirmed; a later availability change
				// or manual trigger re-enqueues it
				d.log.Warn().Str("order_id", orderID).Int("worker_id", id).Msg("no agent available")
			default:
				metrics.AssignmentDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
				d.log.Error().Err(err).
					Str("order_id", orderID).
					Int("worker_id", id).
					Msg("assignment failed")
			}
		}
	}
}
