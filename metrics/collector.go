package metrics

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultTimeout bounds every source call of a Collector.
	DefaultTimeout = 10 * time.Second
	// DefaultLoadWindow is the CPU load sampling window.
	DefaultLoadWindow = time.Second
)

// Collector builds a Snapshot from its sources. Nil temperature or power
// sources leave their fields unavailable (or Power nil).
type Collector struct {
	System  System
	CPUTemp TemperatureSource
	GPUTemp TemperatureSource
	Power   PowerSource

	DiskPath   string        // "/" when empty
	LoadWindow time.Duration // DefaultLoadWindow when zero
	Timeout    time.Duration // DefaultTimeout when zero

	Now    func() time.Time
	Logger *slog.Logger
}

// NewCollector returns a Collector with the default settings.
func NewCollector(sys System, cpuTemp, gpuTemp TemperatureSource, power PowerSource, logger *slog.Logger) *Collector {
	return &Collector{
		System:  sys,
		CPUTemp: cpuTemp,
		GPUTemp: gpuTemp,
		Power:   power,
		Logger:  logger,
	}
}

// Collect samples every source once. It never fails: a failing source is
// logged and its Reading carries the error.
func (c *Collector) Collect(ctx context.Context) *Snapshot {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	s := &Snapshot{Time: now()}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	window := c.LoadWindow
	if window <= 0 {
		window = DefaultLoadWindow
	}
	path := c.DiskPath
	if path == "" {
		path = "/"
	}
	log := c.logger()

	s.Hostname = measure(ctx, log, "hostname", timeout, c.System.Hostname)
	s.Addresses = measure(ctx, log, "addresses", timeout, c.System.Addresses)
	s.CPUTemp = measureTemp(ctx, log, "cpu temperature", timeout, c.CPUTemp)
	s.GPUTemp = measureTemp(ctx, log, "gpu temperature", timeout, c.GPUTemp)
	s.CPULoad = measure(ctx, log, "cpu load", timeout+window, func(ctx context.Context) (float64, error) {
		return c.System.CPUPercent(ctx, window)
	})
	s.CPUFreq = measure(ctx, log, "cpu frequency", timeout, c.System.CPUFrequency)
	s.RAM = measure(ctx, log, "memory", timeout, c.System.Memory)
	s.Swap = measure(ctx, log, "swap", timeout, c.System.Swap)
	s.Disk = measure(ctx, log, "disk", timeout, func(ctx context.Context) (Usage, error) {
		return c.System.Disk(ctx, path)
	})
	s.Uptime = measure(ctx, log, "uptime", timeout, c.System.Uptime)

	if c.Power != nil {
		// I²C transactions cannot be cancelled.
		p := c.Power.ReadPower(ctx)
		warn(log, "supply monitor", p.Supply.Err)
		warn(log, "battery monitor", p.Battery.Err)
		warn(log, "ups", p.UPS.Err)
		s.Power = &p
	}
	return s
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// measure runs fn under its own timeout and turns the result into a Reading.
func measure[T any](ctx context.Context, log *slog.Logger, name string, timeout time.Duration, fn func(context.Context) (T, error)) Reading[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		warn(log, name, err)
		return Failed[T](err)
	}
	return Ok(v)
}

func measureTemp(ctx context.Context, log *slog.Logger, name string, timeout time.Duration, src TemperatureSource) Reading[float64] {
	if src == nil {
		return Reading[float64]{}
	}
	return measure(ctx, log, name, timeout, src.Temperature)
}

func warn(log *slog.Logger, name string, err error) {
	if err != nil {
		log.Warn("metric unavailable", "metric", name, "err", err)
	}
}
