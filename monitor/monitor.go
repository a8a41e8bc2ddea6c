// Package monitor runs the status panel cycle: wake the panel, sample the
// metrics, draw them, push the frame and put the panel back to sleep.
package monitor

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/flavioheleno/epd2in7/image1bit"
	"github.com/flavioheleno/epd2in7/metrics"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 15 * time.Minute

// Panel is the display. *epd2in7.Dev implements it.
type Panel interface {
	// Init wakes the panel from deep sleep.
	Init() error
	// Clear washes the panel white.
	Clear() error
	// Display converts img to the panel encoding, pushes it and refreshes.
	Display(img image.Image) error
	// Sleep powers the panel down.
	Sleep() error
}

// Collector samples one Snapshot. *metrics.Collector implements it.
type Collector interface {
	Collect(ctx context.Context) *metrics.Snapshot
}

// Renderer draws a Snapshot. *layout.Renderer implements it.
type Renderer interface {
	Render(s *metrics.Snapshot) *image1bit.HorizontalMSB
}

// Opts is the Monitor configuration.
type Opts struct {
	// Interval between the end of a cycle and the start of the next one.
	// DefaultInterval when zero.
	Interval time.Duration
	// Continue is called before each cycle, numbered from 0; Run returns
	// once it reports false. Nil runs forever.
	Continue func(cycle int) bool
	Logger   *slog.Logger
}

// Monitor drives a Panel from a Collector and a Renderer.
type Monitor struct {
	panel     Panel
	collector Collector
	renderer  Renderer

	interval time.Duration
	cont     func(int) bool
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New returns a Monitor. opts may be nil.
func New(p Panel, c Collector, r Renderer, opts *Opts) *Monitor {
	if opts == nil {
		opts = &Opts{}
	}
	m := &Monitor{
		panel:     p,
		collector: c,
		renderer:  r,
		interval:  opts.Interval,
		cont:      opts.Continue,
		log:       opts.Logger,
		sleep:     sleep,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.cont == nil {
		m.cont = func(int) bool { return true }
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// Run cycles until Continue reports false or ctx is done. Cancellation is
// a clean stop and returns nil; a panel error ends the loop with that
// error. There is no drift correction: the interval is slept after each
// cycle whatever the cycle took.
func (m *Monitor) Run(ctx context.Context) error {
	for cycle := 0; m.cont(cycle); cycle++ {
		if cycle > 0 {
			m.log.Debug("sleeping", "interval", m.interval)
			if err := m.sleep(ctx, m.interval); err != nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := m.Cycle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Cycle runs one full update of the panel.
func (m *Monitor) Cycle(ctx context.Context) error {
	start := time.Now()
	if err := m.panel.Init(); err != nil {
		return fmt.Errorf("monitor: init panel: %w", err)
	}
	if err := m.panel.Clear(); err != nil {
		return fmt.Errorf("monitor: clear panel: %w", err)
	}
	m.log.Info("panel cleared", "took", time.Since(start))

	t := time.Now()
	s := m.collector.Collect(ctx)
	m.log.Info("metrics collected", "took", time.Since(t))

	t = time.Now()
	img := m.renderer.Render(s)
	if err := m.panel.Display(img); err != nil {
		return fmt.Errorf("monitor: display: %w", err)
	}
	m.log.Info("panel updated", "took", time.Since(t))

	if err := m.panel.Sleep(); err != nil {
		return fmt.Errorf("monitor: sleep panel: %w", err)
	}
	m.log.Info("cycle done", "took", time.Since(start))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
