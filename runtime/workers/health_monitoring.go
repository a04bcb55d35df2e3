package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ConnectionCounter is implemented by the registry.
type ConnectionCounter interface {
	Counts() (connections int, rooms int)
}

// DeliveryCounter is implemented by the fan-out worker.
type DeliveryCounter interface {
	Stats() (delivered, dropped uint64)
}

// HealthSnapshot is what the health worker logs on every tick.
type HealthSnapshot struct {
	Status      string
	CPU         float64
	RAM         float32
	Connections int
	Rooms       int
	Delivered   uint64
	Dropped     uint64
}

// HealthMonitoringWorker periodically logs the relay process usage along with
// the number of live connections and delivery counters.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	connections    ConnectionCounter
	deliveries     DeliveryCounter
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	connections ConnectionCounter,
	deliveries DeliveryCounter,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		connections:    connections,
		deliveries:     deliveries,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			snapshot, err := w.Snapshot(p)
			if err != nil {
				w.log.Error("Error while reading process usage", "pid", w.pid, "err", err)
				continue
			}
			w.log.Info("Relay health",
				"status", snapshot.Status,
				"cpu", snapshot.CPU,
				"ram", snapshot.RAM,
				"connections", snapshot.Connections,
				"rooms", snapshot.Rooms,
				"delivered", snapshot.Delivered,
				"dropped", snapshot.Dropped,
			)
		}
	}
}

func (w *HealthMonitoringWorker) Snapshot(p *process.Process) (HealthSnapshot, error) {
	status, err := p.Status()
	if err != nil {
		return HealthSnapshot{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return HealthSnapshot{}, err
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return HealthSnapshot{}, err
	}
	snapshot := HealthSnapshot{Status: status, CPU: cpu, RAM: ram}
	snapshot.Connections, snapshot.Rooms = w.connections.Counts()
	snapshot.Delivered, snapshot.Dropped = w.deliveries.Stats()
	return snapshot, nil
}
