package services

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
)

type MetricSample struct {
	CapturedAt        time.Time `json:"capturedAt"`
	HeapUsedBytes     int64     `json:"heapUsedBytes"`
	HeapSysBytes      int64     `json:"heapSysBytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes"`
	ProcessCpuLoad    float64   `json:"processCpuLoad"`
	SystemCpuLoad     float64   `json:"systemCpuLoad"`
}

// SampleMetrics reads process and host gauges. Gauges the host refuses to
// report stay zero.
func SampleMetrics(ctx context.Context, diskPath string) MetricSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	sample := MetricSample{
		CapturedAt:    time.Now().UTC(),
		HeapUsedBytes: int64(ms.HeapAlloc),
		HeapSysBytes:  int64(ms.HeapSys),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.SystemMemoryTotal = int64(vm.Total)
		sample.SystemMemoryUsed = int64(vm.Total - vm.Available)
	}
	usage, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		usage, err = disk.UsageWithContext(ctx, "/")
	}
	if err == nil && usage != nil {
		sample.DiskTotalBytes = int64(usage.Total)
		sample.DiskUsedBytes = int64(usage.Used)
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
			sample.ProcessCpuLoad = pct / 100.0
		}
	}
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		sample.SystemCpuLoad = pcts[0] / 100.0
	}
	return sample
}

func RecordMetrics(ctx context.Context, store *db.Store, sample MetricSample) error {
	_, err := store.Exec(ctx, `
INSERT INTO metric_samples (
  captured_at, heap_used_bytes, heap_sys_bytes, system_memory_total_bytes,
  system_memory_used_bytes, disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.CapturedAt, sample.HeapUsedBytes, sample.HeapSysBytes, sample.SystemMemoryTotal,
		sample.SystemMemoryUsed, sample.DiskTotalBytes, sample.DiskUsedBytes, sample.ProcessCpuLoad, sample.SystemCpuLoad)
	return err
}

// PruneMetrics drops samples older than the retention window.
func PruneMetrics(ctx context.Context, store *db.Store, retention time.Duration) (int64, error) {
	res, err := store.Exec(ctx, `DELETE FROM metric_samples WHERE captured_at < ?`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

// LatestMetrics returns up to limit samples, oldest first.
func LatestMetrics(ctx context.Context, store *db.Store, limit int) ([]MetricSample, error) {
	rows := []models.ServerMetricSample{}
	if err := store.Select(ctx, &rows, `
SELECT id, captured_at, heap_used_bytes, heap_sys_bytes, system_memory_total_bytes,
       system_memory_used_bytes, disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load
FROM metric_samples
ORDER BY captured_at DESC, id DESC
LIMIT ?`, limit); err != nil {
		return nil, err
	}
	items := make([]MetricSample, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		items = append(items, MetricSample{
			CapturedAt:        rows[i].CapturedAt,
			HeapUsedBytes:     rows[i].HeapUsedBytes,
			HeapSysBytes:      rows[i].HeapSysBytes,
			SystemMemoryTotal: rows[i].SystemMemoryTotal,
			SystemMemoryUsed:  rows[i].SystemMemoryUsed,
			DiskTotalBytes:    rows[i].DiskTotalBytes,
			DiskUsedBytes:     rows[i].DiskUsedBytes,
			ProcessCpuLoad:    rows[i].ProcessCpuLoad,
			SystemCpuLoad:     rows[i].SystemCpuLoad,
		})
	}
	return items, nil
}

// MetricsHub fans samples out to connected admin sockets.
type MetricsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan MetricSample
}

func NewMetricsHub() *MetricsHub {
	return &MetricsHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan MetricSample, 16),
	}
}

func (h *MetricsHub) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(sample); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast never blocks; samples are dropped when the hub is behind.
func (h *MetricsHub) Broadcast(sample MetricSample) {
	select {
	case h.ch <- sample:
	default:
	}
}

func (h *MetricsHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *MetricsHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *MetricsHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
