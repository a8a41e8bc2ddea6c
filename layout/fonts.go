package layout

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Default font sizes in pixels.
const (
	LargeSize = 24
	BodySize  = 13
)

// Fonts holds the two faces of the panel. Large is reserved for icon and
// image modes; every metric row uses Body.
type Fonts struct {
	Large font.Face
	Body  font.Face
}

// LoadFonts parses a TrueType font and builds the large and body faces at
// the given pixel sizes.
func LoadFonts(ttf []byte, large, body float64) (*Fonts, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("layout: parse font: %w", err)
	}
	if large <= 0 || body <= 0 {
		return nil, fmt.Errorf("layout: invalid font sizes %v/%v", large, body)
	}
	return &Fonts{
		Large: newFace(f, large),
		Body:  newFace(f, body),
	}, nil
}

// DefaultFonts returns Go Regular at LargeSize and BodySize.
func DefaultFonts() (*Fonts, error) {
	return LoadFonts(goregular.TTF, LargeSize, BodySize)
}

// newFace returns a face at 72 DPI, so size is in pixels. Full hinting
// keeps stems on whole pixels for the 1-bit canvas.
func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
