// Package epd2in7 controls a Waveshare 2.7" e-paper display via SPI.
//
// The panel is a 176x264 bistable monochrome display. It keeps its image
// without power, so the usual pattern is Init, Display, Sleep.
//
// See the examples for how to use this package.
package epd2in7

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/flavioheleno/epd2in7/image1bit"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Native panel resolution, portrait.
const (
	Width  = 176
	Height = 264
)

// Controller commands.
const (
	cmdPanelSetting           = 0x00
	cmdPowerSetting           = 0x01
	cmdPowerOff               = 0x02
	cmdPowerOn                = 0x04
	cmdBoosterSoftStart       = 0x06
	cmdDeepSleep              = 0x07
	cmdDataStartTransmission1 = 0x10
	cmdDisplayRefresh         = 0x12
	cmdDataStartTransmission2 = 0x13
	cmdPartialDisplayRefresh  = 0x16
	cmdLUTVCOM                = 0x20
	cmdLUTWhiteToWhite        = 0x21
	cmdLUTBlackToWhite        = 0x22
	cmdLUTBlackToBlack        = 0x23
	cmdLUTWhiteToBlack        = 0x24
	cmdPLLControl             = 0x30
	cmdVCOMDataInterval       = 0x50
	cmdVCMDCSetting           = 0x82
	cmdPowerOptimization      = 0xF8
)

// Waveform tables for a full refresh.
var (
	lutVCOMDC = [44]byte{
		0x00, 0x00,
		0x00, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x60, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x00, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x12, 0x12, 0x00, 0x00, 0x01,
	}
	lutWW = [42]byte{
		0x40, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x40, 0x14, 0x00, 0x00, 0x00, 0x01,
		0xA0, 0x12, 0x12, 0x00, 0x00, 0x01,
	}
	lutBW = [42]byte{
		0xA0, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x00, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x90, 0x12, 0x12, 0x00, 0x00, 0x01,
	}
	lutBB = [42]byte{
		0x80, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x80, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x50, 0x12, 0x12, 0x00, 0x00, 0x01,
	}
	lutWB = [42]byte{
		0x80, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x80, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x50, 0x12, 0x12, 0x00, 0x00, 0x01,
	}
)

var (
	errHalted      = errors.New("epd2in7: halted")
	errBufferSize  = errors.New("epd2in7: invalid buffer size")
	errBusyTimeout = errors.New("epd2in7: timed out waiting for BUSY")
)

// Opts is the configuration for the e-paper display.
type Opts struct {
	// Landscape makes Bounds 264x176. Images are rotated into the
	// native portrait buffer by Buffer.
	Landscape bool

	// BusyTimeout bounds each wait on the BUSY pin (default: 30s).
	BusyTimeout time.Duration
}

// Dev is the device handle for the e-paper display.
type Dev struct {
	// Communication
	c    conn.Conn   // SPI connection
	dc   gpio.PinOut // Data/Command pin
	rst  gpio.PinOut // Reset pin
	busy gpio.PinIn  // Busy pin, low while the controller is working

	// Display geometry
	rect image.Rectangle // Logical bounds, possibly landscape

	// Canvas for Draw
	next *image1bit.HorizontalMSB

	maxTx       int
	busyTimeout time.Duration
	sleep       func(time.Duration)

	// State: true until Init and again after Sleep
	halted bool
}

// NewSPI creates a new e-paper device connected via SPI.
//
// The SPI port is configured for 4MHz, Mode0 (CPOL=0, CPHA=0), 8-bit transfers.
// The dc (Data/Command) and rst (Reset) pins must be outputs and busy an input.
//
// The controller is not touched until Init is called.
//
// opts can be nil to use defaults (portrait, 30s busy timeout).
func NewSPI(p spi.Port, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if dc == nil || rst == nil || busy == nil {
		return nil, errors.New("epd2in7: dc, rst and busy pins are required")
	}
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd2in7: %w", err)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd2in7: failed to configure BUSY: %w", err)
	}
	return newDev(c, dc, rst, busy, opts), nil
}

func newDev(c conn.Conn, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{
		c:           c,
		dc:          dc,
		rst:         rst,
		busy:        busy,
		rect:        image.Rect(0, 0, Width, Height),
		busyTimeout: opts.BusyTimeout,
		sleep:       time.Sleep,
		halted:      true,
	}
	if opts.Landscape {
		d.rect = image.Rect(0, 0, Height, Width)
	}
	if d.busyTimeout <= 0 {
		d.busyTimeout = 30 * time.Second
	}
	if l, ok := c.(conn.Limits); ok {
		d.maxTx = l.MaxTxSize()
	}
	return d
}

// Init resets the controller and sends the power-up sequence.
//
// It must be called before the first Clear or Display, and again after
// Sleep to wake the panel.
func (d *Dev) Init() error {
	if err := d.reset(); err != nil {
		return err
	}

	steps := []step{
		{cmdPowerSetting, []byte{0x03, 0x00, 0x2B, 0x2B, 0x09}},
		{cmdBoosterSoftStart, []byte{0x07, 0x07, 0x17}},
		{cmdPowerOptimization, []byte{0x60, 0xA5}},
		{cmdPowerOptimization, []byte{0x89, 0xA5}},
		{cmdPowerOptimization, []byte{0x90, 0x00}},
		{cmdPowerOptimization, []byte{0x93, 0x2A}},
		{cmdPowerOptimization, []byte{0xA0, 0xA5}},
		{cmdPowerOptimization, []byte{0xA1, 0x00}},
		{cmdPowerOptimization, []byte{0x73, 0x41}},
		{cmdPartialDisplayRefresh, []byte{0x00}},
	}
	if err := d.sendSteps(steps); err != nil {
		return err
	}

	if err := d.sendCommand(cmdPowerOn); err != nil {
		return err
	}
	if err := d.waitBusy(); err != nil {
		return err
	}

	steps = []step{
		{cmdPanelSetting, []byte{0xAF}},     // KW-BF, KWR-AF, BWROTP
		{cmdPLLControl, []byte{0x3A}},       // 100Hz
		{cmdVCOMDataInterval, []byte{0x57}}, // VCOM and data interval
		{cmdVCMDCSetting, []byte{0x12}},
		{cmdLUTVCOM, lutVCOMDC[:]},
		{cmdLUTWhiteToWhite, lutWW[:]},
		{cmdLUTBlackToWhite, lutBW[:]},
		{cmdLUTBlackToBlack, lutBB[:]},
		{cmdLUTWhiteToBlack, lutWB[:]},
	}
	if err := d.sendSteps(steps); err != nil {
		return err
	}

	d.halted = false
	return nil
}

// reset pulses the RST pin.
func (d *Dev) reset() error {
	seq := []struct {
		l     gpio.Level
		delay time.Duration
	}{
		{gpio.High, 200 * time.Millisecond},
		{gpio.Low, 5 * time.Millisecond},
		{gpio.High, 200 * time.Millisecond},
	}
	for _, s := range seq {
		if err := d.rst.Out(s.l); err != nil {
			return fmt.Errorf("epd2in7: failed to drive RST %s: %w", s.l, err)
		}
		d.sleep(s.delay)
	}
	return nil
}

// waitBusy blocks until the controller releases BUSY or busyTimeout expires.
func (d *Dev) waitBusy() error {
	deadline := time.Now().Add(d.busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return errBusyTimeout
		}
		d.sleep(100 * time.Millisecond)
	}
	return nil
}

// step is a command byte followed by its data bytes.
type step struct {
	cmd  byte
	data []byte
}

func (d *Dev) sendSteps(steps []step) error {
	for _, s := range steps {
		if err := d.sendCommand(s.cmd); err != nil {
			return err
		}
		if err := d.sendData(s.data); err != nil {
			return err
		}
	}
	return nil
}

// sendCommand sends a single command byte.
func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx([]byte{cmd}, nil)
}

// sendData sends data bytes, split to the port's transaction limit.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if d.maxTx > 0 && n > d.maxTx {
			n = d.maxTx
		}
		if err := d.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the image bounds of the display.
// It is 264x176 when Opts.Landscape was set.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Buffer converts img to the controller's frame encoding: 176x264, one bit
// per pixel, most significant bit first, set bits white.
//
// img must be either portrait (176x264) or landscape (264x176). Landscape
// images are rotated so their top edge lies along the panel's left edge.
func Buffer(img image.Image) ([]byte, error) {
	b := img.Bounds()
	native := image1bit.NewHorizontalMSB(image.Rect(0, 0, Width, Height))

	switch {
	case b.Dx() == Width && b.Dy() == Height:
		if src, ok := img.(*image1bit.HorizontalMSB); ok && src.Stride == native.Stride {
			copy(native.Pix, src.Pix)
			return native.Pix, nil
		}
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				if bitAt(img, b.Min.X+x, b.Min.Y+y) == image1bit.Black {
					native.SetBit(x, y, image1bit.Black)
				}
			}
		}
	case b.Dx() == Height && b.Dy() == Width:
		for y := 0; y < Width; y++ {
			for x := 0; x < Height; x++ {
				if bitAt(img, b.Min.X+x, b.Min.Y+y) == image1bit.Black {
					native.SetBit(y, Height-1-x, image1bit.Black)
				}
			}
		}
	default:
		return nil, fmt.Errorf("epd2in7: image is %dx%d, want %dx%d or %dx%d",
			b.Dx(), b.Dy(), Width, Height, Height, Width)
	}
	return native.Pix, nil
}

func bitAt(img image.Image, x, y int) image1bit.Bit {
	if src, ok := img.(*image1bit.HorizontalMSB); ok {
		return src.BitAt(x, y)
	}
	return image1bit.BitModel.Convert(img.At(x, y)).(image1bit.Bit)
}

// Write sends a raw frame in the controller's encoding and refreshes the
// panel. The data must be exactly Width * Height / 8 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, errHalted
	}
	if len(pixels) != Width*Height/8 {
		return 0, errBufferSize
	}
	if err := d.writeFrame(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// writeFrame loads both frame memories and triggers a full refresh.
func (d *Dev) writeFrame(pixels []byte) error {
	old := make([]byte, len(pixels))
	for i := range old {
		old[i] = 0xFF
	}
	if err := d.sendCommand(cmdDataStartTransmission1); err != nil {
		return err
	}
	if err := d.sendData(old); err != nil {
		return err
	}
	if err := d.sendCommand(cmdDataStartTransmission2); err != nil {
		return err
	}
	if err := d.sendData(pixels); err != nil {
		return err
	}
	if err := d.sendCommand(cmdDisplayRefresh); err != nil {
		return err
	}
	return d.waitBusy()
}

// Clear washes the whole panel white.
func (d *Dev) Clear() error {
	if d.halted {
		return errHalted
	}
	white := make([]byte, Width*Height/8)
	for i := range white {
		white[i] = 0xFF
	}
	return d.writeFrame(white)
}

// Display converts img with Buffer, pushes it and refreshes the panel.
func (d *Dev) Display(img image.Image) error {
	if d.halted {
		return errHalted
	}
	buf, err := Buffer(img)
	if err != nil {
		return err
	}
	return d.writeFrame(buf)
}

// Draw draws src onto the panel's canvas and refreshes the whole panel.
// The dst rectangle is in logical (Bounds) coordinates.
//
// E-paper has no cheap partial update on this controller, so every Draw
// is a full refresh.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}
	if d.next == nil {
		d.next = image1bit.NewHorizontalMSB(d.rect)
	}
	draw.Draw(d.next, dst, src, sp, draw.Src)
	return d.Display(d.next)
}

// Sleep powers the panel down into deep sleep. The image stays on screen.
// Init must be called before the panel accepts new frames.
func (d *Dev) Sleep() error {
	if d.halted {
		return nil
	}
	d.halted = true
	if err := d.sendCommand(cmdVCOMDataInterval); err != nil {
		return err
	}
	if err := d.sendData([]byte{0xF7}); err != nil {
		return err
	}
	if err := d.sendCommand(cmdPowerOff); err != nil {
		return err
	}
	if err := d.sendCommand(cmdDeepSleep); err != nil {
		return err
	}
	return d.sendData([]byte{0xA5})
}

// Halt puts the panel into deep sleep.
func (d *Dev) Halt() error {
	return d.Sleep()
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("epd2in7.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
