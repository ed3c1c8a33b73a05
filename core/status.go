package core

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// Status is the payload served on the operator dashboard's status
// endpoint. Unlike CoordinatorSnapshot (which round-trips through Redis
// for cross-instance visibility), this is read straight off the running
// Coordinator in this process.
type Status struct {
	Queue struct {
		PrecisePending int `json:"precise_pending"`
		QuickPending   int `json:"quick_pending"`
	} `json:"queue"`
	Workers struct {
		FreePrecise int `json:"free_precise"`
		FreeQuick   int `json:"free_quick"`
		Busy        int `json:"busy"`
		Total       int `json:"total"`
	} `json:"workers"`
	InFlightJudges int `json:"in_flight_judges"`
	Memory         struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectStatus builds a Status snapshot from a Coordinator's Snapshot and
// process start time. Safe to call concurrently; Snapshot itself is just a
// value handed out by the scheduler's tick.
func CollectStatus(s Snapshot, startedAt time.Time) Status {
	var st Status
	st.Queue.PrecisePending = s.PrecisePending
	st.Queue.QuickPending = s.QuickPending
	st.Workers.FreePrecise = s.FreePrecise
	st.Workers.FreeQuick = s.FreeQuick
	st.Workers.Busy = s.BusyWorkers
	st.Workers.Total = s.FreePrecise + s.FreeQuick + s.BusyWorkers
	st.InFlightJudges = s.InFlightJudges

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
