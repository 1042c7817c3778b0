package observability

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats reports the resource usage of the running process.
// Values that can't be read are left out.
func ProcessStats(log *slog.Logger) map[string]any {
	stats := map[string]any{"PID": os.Getpid()}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debug("Error while retrieving process", "err", err)
		return stats
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats["CPU"] = fmt.Sprintf("%.1f%%", cpu)
	}
	if ram, err := p.MemoryPercent(); err == nil {
		stats["RAM"] = fmt.Sprintf("%.1f%%", ram)
	}
	if threads, err := p.NumThreads(); err == nil {
		stats["Threads"] = threads
	}
	return stats
}
