// Package layout draws a metrics.Snapshot as the fixed status panel.
//
// The panel is landscape, 264x176 pixels:
//
//	192.168.1.5                 05Mar2024,14:30
//	-------------------------------------------
//	CPU: 48.3°C  GPU: 47.8°C
//	CPU load: 12.5% @ 1500MHz
//	RAM: 1536MB/4.00GB, 37.5%
//	Swap: 0.00/100.00MB, 0.00%
//	Disk: 4.00/32.00GB, 12.50%
//	up 2 days, 3 hours, 4 minutes
//	-------------------------------------------
//	Pi: 5.12V 620mA  Bat: 4.05V 87%
//	Discharging: 310mA 1.26W 30°C
//	Not charging
//
// The last three rows are only drawn when power telemetry is present.
// Unavailable readings are drawn as Placeholder.
package layout

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"github.com/flavioheleno/epd2in7/image1bit"
	"github.com/flavioheleno/epd2in7/ina219"
	"github.com/flavioheleno/epd2in7/metrics"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/physic"
)

// Canvas size.
const (
	Width  = 264
	Height = 176
)

// Placeholder replaces an unavailable value.
const Placeholder = "--"

// TimeFormat is the header timestamp layout.
const TimeFormat = "02Jan2006,15:04"

// Pixel positions. Rows are placed by the top of their line box.
const (
	marginX    = 1
	headerY    = 1
	headerRule = 19
	bodyY      = 22
	pitch      = 14
	powerRule  = 108
	powerY     = 111
	timeGap    = 4 // blank columns between the addresses and the timestamp
)

// Layout is the text of the panel.
type Layout struct {
	Addresses string // header, left
	Time      string // header, right
	Body      []string
	Power     []string // nil without power telemetry
}

// Lines formats s.
func Lines(s *metrics.Snapshot) Layout {
	l := Layout{
		Addresses: addresses(s.Addresses),
		Time:      s.Time.Format(TimeFormat),
		Body: []string{
			fmt.Sprintf("CPU: %s°C  GPU: %s°C", temp(s.CPUTemp), temp(s.GPUTemp)),
			fmt.Sprintf("CPU load: %s%% @ %sMHz", format(s.CPULoad, "%.1f"), format(s.CPUFreq, "%d")),
			ram(s.RAM),
			swap(s.Swap),
			disk(s.Disk),
			uptime(s.Uptime),
		},
	}
	if s.Power != nil {
		l.Power = power(s.Power)
	}
	return l
}

func format[T any](r metrics.Reading[T], verb string) string {
	if !r.OK {
		return Placeholder
	}
	return fmt.Sprintf(verb, r.Value)
}

func temp(r metrics.Reading[float64]) string {
	return format(r, "%.1f")
}

// addresses is empty when no interface has an address.
func addresses(r metrics.Reading[[]string]) string {
	if !r.OK {
		return Placeholder
	}
	return strings.Join(r.Value, " ")
}

func ram(r metrics.Reading[metrics.Usage]) string {
	if !r.OK {
		return "RAM: " + Placeholder
	}
	u := r.Value
	return fmt.Sprintf("RAM: %dMB/%.2fGB, %.1f%%", u.Used>>20, metrics.GiB(u.Total), u.Percent)
}

func swap(r metrics.Reading[metrics.Usage]) string {
	if !r.OK {
		return "Swap: " + Placeholder
	}
	u := r.Value
	return fmt.Sprintf("Swap: %.2f/%.2fMB, %.2f%%", metrics.MiB(u.Used), metrics.MiB(u.Total), u.Percent)
}

func disk(r metrics.Reading[metrics.Usage]) string {
	if !r.OK {
		return "Disk: " + Placeholder
	}
	u := r.Value
	return fmt.Sprintf("Disk: %.2f/%.2fGB, %.2f%%", metrics.GiB(u.Used), metrics.GiB(u.Total), u.Percent)
}

func uptime(r metrics.Reading[time.Duration]) string {
	if !r.OK {
		return "up " + Placeholder
	}
	return metrics.FormatUptime(r.Value)
}

func power(p *metrics.Power) []string {
	volts := func(r metrics.Reading[ina219.PowerMonitor]) string {
		if !r.OK {
			return Placeholder
		}
		return fmt.Sprintf("%.2f", float64(r.Value.Voltage)/float64(physic.Volt))
	}
	supplyCurrent := Placeholder
	if p.Supply.OK {
		supplyCurrent = fmt.Sprintf("%d", milliamps(p.Supply.Value.Current))
	}
	capacity := Placeholder
	batteryTemp := Placeholder
	state := Placeholder
	if p.UPS.OK {
		capacity = fmt.Sprintf("%d", p.UPS.Value.BatteryCapacity)
		batteryTemp = fmt.Sprintf("%d", p.UPS.Value.BatteryTemp)
		state = p.UPS.Value.State.String()
	}

	battery := "Battery: " + Placeholder
	if p.Battery.OK {
		pm := p.Battery.Value
		label := "Battery"
		switch {
		case pm.Current > 0:
			label = "Charging"
		case pm.Current < 0:
			label = "Discharging"
		}
		ma := milliamps(pm.Current)
		if ma < 0 {
			ma = -ma
		}
		battery = fmt.Sprintf("%s: %dmA %.2fW %s°C", label, ma, float64(pm.Power)/float64(physic.Watt), batteryTemp)
	}

	return []string{
		fmt.Sprintf("Pi: %sV %smA  Bat: %sV %s%%", volts(p.Supply), supplyCurrent, volts(p.Battery), capacity),
		battery,
		state,
	}
}

func milliamps(c physic.ElectricCurrent) int64 {
	return int64(c / physic.MilliAmpere)
}

// Renderer draws snapshots onto a fresh canvas.
type Renderer struct {
	fonts *Fonts
}

// NewRenderer returns a Renderer drawing with fonts.
func NewRenderer(fonts *Fonts) *Renderer {
	return &Renderer{fonts: fonts}
}

// Render returns the landscape canvas for s. Text wider than the panel is
// clipped, and the addresses are cut short of the timestamp.
func (r *Renderer) Render(s *metrics.Snapshot) *image1bit.HorizontalMSB {
	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, Width, Height))
	img.Fill(image1bit.White)

	l := Lines(s)
	face := r.fonts.Body
	w := font.MeasureString(face, l.Time).Ceil()
	tx := Width - 1 - w
	drawText(clip{img, image.Rect(0, 0, tx-timeGap, headerRule)}, face, marginX, headerY, l.Addresses)
	drawText(img, face, tx, headerY, l.Time)
	rule(img, headerRule)

	for i, line := range l.Body {
		drawText(img, face, marginX, bodyY+i*pitch, line)
	}
	if l.Power != nil {
		rule(img, powerRule)
		for i, line := range l.Power {
			drawText(img, face, marginX, powerY+i*pitch, line)
		}
	}
	return img
}

// drawText draws s in black with its line box starting at (x, top).
func drawText(dst draw.Image, face font.Face, x, top int, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(top) + face.Metrics().Ascent},
	}
	d.DrawString(s)
}

// clip limits drawing on Image to r.
type clip struct {
	draw.Image
	r image.Rectangle
}

func (c clip) Bounds() image.Rectangle { return c.r.Intersect(c.Image.Bounds()) }

func (c clip) Set(x, y int, col color.Color) {
	if (image.Point{X: x, Y: y}).In(c.r) {
		c.Image.Set(x, y, col)
	}
}

// rule draws a full-width horizontal line at y.
func rule(dst draw.Image, y int) {
	draw.Draw(dst, image.Rect(0, y, Width, y+1), image.Black, image.Point{}, draw.Src)
}
