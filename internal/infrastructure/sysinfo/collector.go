// Package sysinfo reads best-effort process and host resource gauges.
package sysinfo

import (
	"runtime"
	"syscall"
	"time"
)

// Resources is a point-in-time reading. Values are informational gauges and
// may be approximate; a zero value means the reading was unavailable.
type Resources struct {
	HeapAllocBytes uint64
	HeapSysBytes   uint64
	Goroutines     int
	CPUCores       int
	DiskTotalBytes uint64
	DiskFreeBytes  uint64
	UptimeSeconds  int64
}

// Collector samples runtime and filesystem statistics.
type Collector struct {
	dataDir string
	started time.Time
}

// New creates a collector; dataDir is the mount whose disk usage is reported.
func New(dataDir string) *Collector {
	return &Collector{dataDir: dataDir, started: time.Now()}
}

// Read samples current resource usage.
func (c *Collector) Read() Resources {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	res := Resources{
		HeapAllocBytes: mem.HeapAlloc,
		HeapSysBytes:   mem.Sys,
		Goroutines:     runtime.NumGoroutine(),
		CPUCores:       runtime.NumCPU(),
		UptimeSeconds:  int64(time.Since(c.started).Seconds()),
	}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(c.dataDir, &fs); err == nil {
		res.DiskTotalBytes = uint64(fs.Bsize) * fs.Blocks
		res.DiskFreeBytes = uint64(fs.Bsize) * fs.Bavail
	}

	return res
}
