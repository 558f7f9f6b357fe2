package dataset

import "fmt"

// Image carries the pixel dimensions shared by every exposure type.
type Image struct {
	Width  int
	Height int
}

// Dimensions returns the image width and height in pixels.
func (i Image) Dimensions() (width, height int) {
	return i.Width, i.Height
}

// ExposureF is an exposure with 32-bit floating point pixels.
type ExposureF struct{ Image }

// ExposureI is an exposure with 32-bit integer pixels.
type ExposureI struct{ Image }

// ExposureU is an exposure with 16-bit unsigned pixels.
type ExposureU struct{ Image }

// Background is a fitted background model.
type Background struct{}

// Catalog is a source catalog.
type Catalog struct {
	Records int
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int { return c.Records }

// MatchCatalog holds source to reference catalog matches.
type MatchCatalog struct {
	Records int
}

// Len returns the number of matches.
func (m *MatchCatalog) Len() int { return m.Records }

// Sized is implemented by every object with pixel dimensions.
type Sized interface {
	Dimensions() (width, height int)
}

// Lengther is implemented by every object with a record count.
type Lengther interface {
	Len() int
}

// Pixel type codes, following the afw naming.
const (
	PixelFloat = "F"
	PixelInt   = "I"
	PixelUint  = "U"
)

// NewExposure builds an exposure of the given pixel type.
func NewExposure(pixelType string, width, height int) (any, error) {
	img := Image{Width: width, Height: height}
	switch pixelType {
	case PixelFloat:
		return &ExposureF{img}, nil
	case PixelInt:
		return &ExposureI{img}, nil
	case PixelUint:
		return &ExposureU{img}, nil
	}
	return nil, fmt.Errorf("unsupported pixel type %q", pixelType)
}

// TypeName returns a short, human readable name for a fetched object.
func TypeName(obj any) string {
	switch obj.(type) {
	case *ExposureF:
		return "ExposureF"
	case *ExposureI:
		return "ExposureI"
	case *ExposureU:
		return "ExposureU"
	case *Background:
		return "Background"
	case *Catalog:
		return "Catalog"
	case *MatchCatalog:
		return "MatchCatalog"
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%T", obj)
}
