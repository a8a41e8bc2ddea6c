// Package epd2in7 controls a Waveshare 2.7" e-paper display via SPI.
//
// The panel is a 176×264 bistable monochrome display. Its image persists
// without power, so the driver is built around a short power cycle per update.
// This driver implements the display.Drawer interface from periph.io.
//
// # Display Characteristics
//
// - 1 bit per pixel, black on white
// - Native resolution 176×264 (portrait), optional 264×176 landscape bounds
// - Full refresh only; a refresh takes several seconds and flashes the panel
// - Deep sleep keeps the last image on screen at zero power
//
// # Hardware Connection
//
// Connect the panel to your system via SPI:
//
//	Display Pin → Raspberry Pi
//	GND         → GND
//	VCC         → 3.3V
//	DIN         → GPIO10 (SPI0 MOSI)
//	CLK         → GPIO11 (SPI0 SCLK)
//	CS          → GPIO8 (SPI0 CE0)
//	DC          → GPIO25
//	RST         → GPIO17
//	BUSY        → GPIO24
//
// # Basic Usage
//
//	package main
//
//	import (
//		"image"
//		"image/draw"
//
//		"github.com/flavioheleno/epd2in7"
//		"github.com/flavioheleno/epd2in7/image1bit"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		spiBus, _ := spireg.Open("")
//		defer spiBus.Close()
//
//		dev, _ := epd2in7.NewSPI(spiBus,
//			gpioreg.ByName("GPIO25"), // DC
//			gpioreg.ByName("GPIO17"), // RST
//			gpioreg.ByName("GPIO24"), // BUSY
//			&epd2in7.Opts{Landscape: true},
//		)
//
//		dev.Init()
//		defer dev.Sleep()
//
//		img := image1bit.NewHorizontalMSB(dev.Bounds())
//		draw.Draw(img, image.Rect(0, 80, 264, 96), image.Black, image.Point{}, draw.Src)
//		dev.Display(img)
//	}
//
// # Power Cycle
//
// The controller must be initialized with Init before it accepts frames.
// Sleep powers the charge pumps down and enters deep sleep; after Sleep the
// device reports itself halted and Init must be called again. A long-running
// program should call Init, Display and Sleep for every update instead of
// leaving the panel powered between updates.
//
// # Frame Encoding
//
// Buffer converts any image.Image to the controller's frame memory layout:
// 176 columns × 264 rows, 8 pixels per byte, most significant bit first,
// set bits white. Landscape images (264×176) are rotated so their top edge
// lies along the panel's left edge. Colors are reduced with image1bit.BitModel.
//
// Write accepts an already encoded frame of exactly 5808 bytes.
//
// # Busy Handling
//
// The controller holds BUSY low while it works. Every wait on BUSY is bounded
// by Opts.BusyTimeout (30s by default) and reports an error instead of
// hanging forever when the panel is disconnected.
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// Draw performs a full refresh on every call.
package epd2in7
