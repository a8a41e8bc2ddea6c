// Package metrics samples host and power telemetry into a Snapshot.
//
// Every field of a Snapshot is a Reading: either a value or the error
// that made it unavailable. A failing source degrades its own field and
// never the whole Snapshot.
package metrics

import (
	"time"

	"github.com/flavioheleno/epd2in7/ina219"
	"github.com/flavioheleno/epd2in7/upsplus"
)

// Reading is the outcome of one metric acquisition.
// The zero value is an unavailable reading with no recorded cause.
type Reading[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Ok returns an available reading.
func Ok[T any](v T) Reading[T] {
	return Reading[T]{Value: v, OK: true}
}

// Failed returns an unavailable reading caused by err.
func Failed[T any](err error) Reading[T] {
	return Reading[T]{Err: err}
}

// Usage is a used/total pair in bytes with its percentage.
type Usage struct {
	Used    uint64
	Total   uint64
	Percent float64
}

// Power is the battery HAT telemetry of one cycle.
type Power struct {
	Supply  Reading[ina219.PowerMonitor] // Pi supply rail
	Battery Reading[ina219.PowerMonitor] // Battery, positive current is charging
	UPS     Reading[upsplus.Status]
}

// Snapshot is everything sampled in one cycle. It is not modified after
// Collect returns.
type Snapshot struct {
	Time      time.Time
	Hostname  Reading[string]
	Addresses Reading[[]string]
	CPUTemp   Reading[float64] // °C
	GPUTemp   Reading[float64] // °C
	CPULoad   Reading[float64] // %
	CPUFreq   Reading[int]     // MHz
	RAM       Reading[Usage]
	Swap      Reading[Usage]
	Disk      Reading[Usage]
	Uptime    Reading[time.Duration]

	// Power is nil when no power telemetry is attached.
	Power *Power
}
