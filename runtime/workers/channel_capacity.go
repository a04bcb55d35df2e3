package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// QueueGauge reports the fill level of a buffered queue.
type QueueGauge interface {
	Len() int
	Cap() int
}

type NamedQueue struct {
	Name  string
	Queue QueueGauge
}

// ChannelCapacityWorker periodically samples the internal queues and warns
// when one is close to full, which means publishers are about to block.
// Reading len and cap is non-blocking so sampling never slows the queue down.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	queues               []NamedQueue
	lowCapacityThreshold int
	metricInterval       time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, queues []NamedQueue,
	lowCapacityThreshold int, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log: log, queues: queues,
		lowCapacityThreshold: lowCapacityThreshold,
		metricInterval:       metricInterval,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel capacity sampling")
			return nil
		case <-ticker.C:
			for _, nq := range w.queues {
				w.Check(nq)
			}
		}
	}
}

// Check returns the capacity left on the queue and warns below the threshold.
func (w ChannelCapacityWorker) Check(nq NamedQueue) int {
	capacity, length := nq.Queue.Cap(), nq.Queue.Len()
	w.log.Debug(fmt.Sprintf("Queue %s usage: %d / %d", nq.Name, length, capacity))
	if capacity <= 0 {
		// Unbuffered
		return 0
	}
	capacityLeft := capacity - length
	if capacityLeft <= w.lowCapacityThreshold {
		w.log.Warn(fmt.Sprintf("Queue %s capacity left : %d", nq.Name, capacityLeft))
	}
	return capacityLeft
}
