// Package fitstest builds small FITS files for tests.
package fitstest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Builder accumulates HDUs into an in-memory FITS file.
type Builder struct {
	buf bytes.Buffer
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

func card(key string, value any) string {
	var c string
	switch v := value.(type) {
	case string:
		c = fmt.Sprintf("%-8s= %-20s", key, "'"+strings.ReplaceAll(v, "'", "''")+"'")
	case bool:
		l := "F"
		if v {
			l = "T"
		}
		c = fmt.Sprintf("%-8s= %20s", key, l)
	default:
		c = fmt.Sprintf("%-8s= %20v", key, v)
	}
	return fmt.Sprintf("%-80s", c)
}

func (b *Builder) hdu(cards []string, dataBytes int) *Builder {
	var hdr strings.Builder
	for _, c := range cards {
		hdr.WriteString(c)
	}
	hdr.WriteString(fmt.Sprintf("%-80s", "END"))
	for hdr.Len()%2880 != 0 {
		hdr.WriteByte(' ')
	}
	b.buf.WriteString(hdr.String())

	if dataBytes > 0 {
		if rem := dataBytes % 2880; rem != 0 {
			dataBytes += 2880 - rem
		}
		b.buf.Write(make([]byte, dataBytes))
	}
	return b
}

func axesCards(bitpix int, axes []int) ([]string, int) {
	cards := []string{card("BITPIX", bitpix), card("NAXIS", len(axes))}
	size := 0
	if len(axes) > 0 {
		size = abs(bitpix) / 8
	}
	for i, n := range axes {
		cards = append(cards, card(fmt.Sprintf("NAXIS%d", i+1), n))
		size *= n
	}
	return cards, size
}

// Header appends a header-only HDU built from key/value pairs, written in
// order and without data. It is meant for malformed headers the other
// helpers refuse to build.
func (b *Builder) Header(pairs ...any) *Builder {
	cards := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		cards = append(cards, card(pairs[i].(string), pairs[i+1]))
	}
	return b.hdu(cards, 0)
}

// Primary appends a primary HDU. With no axes it holds no data.
func (b *Builder) Primary(bitpix int, axes ...int) *Builder {
	cards, size := axesCards(bitpix, axes)
	cards = append([]string{card("SIMPLE", true)}, cards...)
	cards = append(cards, card("EXTEND", true), card("OBJECT", "it's a test"))
	return b.hdu(cards, size)
}

// Image appends an IMAGE extension.
func (b *Builder) Image(bitpix int, axes ...int) *Builder {
	cards, size := axesCards(bitpix, axes)
	cards = append([]string{card("XTENSION", "IMAGE")}, cards...)
	cards = append(cards, card("PCOUNT", 0), card("GCOUNT", 1))
	return b.hdu(cards, size)
}

// BinTable appends a binary table extension with the given row count.
func (b *Builder) BinTable(rows, rowBytes int) *Builder {
	cards := []string{
		card("XTENSION", "BINTABLE"),
		card("BITPIX", 8),
		card("NAXIS", 2),
		card("NAXIS1", rowBytes),
		card("NAXIS2", rows),
		card("PCOUNT", 0),
		card("GCOUNT", 1),
		card("TFIELDS", 1),
	}
	return b.hdu(cards, rows*rowBytes)
}

// CompressedImage appends a tile compressed image extension.
func (b *Builder) CompressedImage(zbitpix, width, height int) *Builder {
	cards := []string{
		card("XTENSION", "BINTABLE"),
		card("BITPIX", 8),
		card("NAXIS", 2),
		card("NAXIS1", 8),
		card("NAXIS2", height),
		card("PCOUNT", 0),
		card("GCOUNT", 1),
		card("TFIELDS", 1),
		card("ZIMAGE", true),
		card("ZBITPIX", zbitpix),
		card("ZNAXIS", 2),
		card("ZNAXIS1", width),
		card("ZNAXIS2", height),
	}
	return b.hdu(cards, 8*height)
}

// Bytes returns the encoded file.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// WriteFile writes the encoded file to path, creating parent directories.
func (b *Builder) WriteFile(t testing.TB, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
