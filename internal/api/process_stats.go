package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats собирает показатели процесса клиента для /api/stats
type ProcessStats struct {
	StartTime time.Time
}

// NewProcessStats начинает отсчёт времени работы
func NewProcessStats() *ProcessStats {
	return &ProcessStats{StartTime: time.Now()}
}

// Uptime возвращает время работы в виде "1д 2ч 3м 4с"
func (ps *ProcessStats) Uptime() string {
	return formatUptime(time.Since(ps.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// CPUPercent возвращает загрузку CPU процессом; при ошибке - загрузку системы
func (ps *ProcessStats) CPUPercent() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if pct, err := proc.CPUPercent(); err == nil {
			return pct, nil
		}
	}
	pcts, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("cpu.Percent: пустой результат")
	}
	return pcts[0], nil
}

// RSSMegabytes возвращает резидентную память процесса в MB
func (ps *ProcessStats) RSSMegabytes() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(mem.RSS) / 1024 / 1024, nil
}

// MemoryDetails возвращает статистику памяти рантайма Go
func (ps *ProcessStats) MemoryDetails() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc_mb":      float64(m.Alloc) / 1024 / 1024,
		"sys_mb":        float64(m.Sys) / 1024 / 1024,
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}
}
