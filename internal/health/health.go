// Package health contains internal helpers for the host section of status reports.
package health

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo describes the host process answering status queries.
type ProcessInfo struct {
	PID        int32  `json:"pid"`
	RSS        uint64 `json:"rss_bytes"`
	Threads    int32  `json:"threads"`
	Goroutines int    `json:"goroutines"`
}

// Snapshot samples the current process. Fields gopsutil cannot read on this
// platform are left zero.
func Snapshot() ProcessInfo {
	info := ProcessInfo{
		PID:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
	}
	p, err := process.NewProcess(info.PID)
	if err != nil {
		return info
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		info.RSS = mem.RSS
	}
	if n, err := p.NumThreads(); err == nil {
		info.Threads = n
	}
	return info
}
