// Package fits reads FITS headers without loading pixel or table data. It
// understands just enough of the format to walk every HDU in a file and
// expose its keyword values, which is all the validators need to learn an
// image's dimensions and pixel type or a table's row count.
package fits

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	blockSize     = 2880
	cardSize      = 80
	cardsPerBlock = blockSize / cardSize
)

// ErrNotFITS is returned when the first card of a file is not SIMPLE.
var ErrNotFITS = errors.New("not a FITS file")

// Header holds the keyword values of one HDU. String values are stored
// without their quotes.
type Header struct {
	keys   []string
	values map[string]string
}

func newHeader() *Header {
	return &Header{values: make(map[string]string)}
}

func (h *Header) set(key, value string) {
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Keys returns the keywords in file order.
func (h *Header) Keys() []string {
	return h.keys
}

// Has reports whether the keyword is present.
func (h *Header) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// String returns the keyword's value.
func (h *Header) String(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Int returns the keyword's value parsed as an integer.
func (h *Header) Int(key string) (int64, bool) {
	v, ok := h.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns the keyword's value parsed as a FITS logical (T or F).
func (h *Header) Bool(key string) (bool, bool) {
	switch h.values[key] {
	case "T":
		return true, true
	case "F":
		return false, true
	}
	return false, false
}

// ReadFile opens path and returns the header of every HDU in it.
func ReadFile(path string) ([]*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headers, err := ReadHeaders(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return headers, nil
}

// ReadHeaders returns the header of every HDU in r. Data units are skipped,
// by seeking when r supports it.
func ReadHeaders(r io.Reader) ([]*Header, error) {
	var headers []*Header
	block := make([]byte, blockSize)

	for {
		h, err := readHeader(r, block)
		if errors.Is(err, io.EOF) && len(headers) > 0 {
			return headers, nil
		}
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(headers), err)
		}
		if len(headers) == 0 {
			if simple, ok := h.Bool("SIMPLE"); !ok || !simple {
				return nil, ErrNotFITS
			}
		}
		headers = append(headers, h)

		size, err := dataSize(h)
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(headers)-1, err)
		}
		if err := skip(r, padded(size)); err != nil {
			return nil, fmt.Errorf("HDU %d data: %w", len(headers)-1, err)
		}
	}
}

// readHeader consumes header blocks up to and including the one holding END.
// It returns io.EOF only when r is exhausted before the first block.
func readHeader(r io.Reader, block []byte) (*Header, error) {
	h := newHeader()
	first := true
	for {
		if _, err := io.ReadFull(r, block); err != nil {
			if first && errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("truncated header: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		first = false

		for i := 0; i < cardsPerBlock; i++ {
			card := string(block[i*cardSize : (i+1)*cardSize])
			key := strings.TrimRight(card[:8], " ")
			if key == "END" {
				return h, nil
			}
			if card[8:10] != "= " {
				continue
			}
			value, err := parseValue(card[10:])
			if err != nil {
				return nil, fmt.Errorf("keyword %s: %w", key, err)
			}
			h.set(key, value)
		}
	}
}

func parseValue(s string) (string, error) {
	s = strings.TrimLeft(s, " ")
	if !strings.HasPrefix(s, "'") {
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s), nil
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), nil
	}
	return "", errors.New("unterminated string value")
}

// dataSize returns the unpadded size in bytes of the HDU's data unit.
// Negative axes or counts, and sizes that overflow int64, are rejected so a
// corrupt header can never move the reader backwards.
func dataSize(h *Header) (int64, error) {
	naxis, _ := h.Int("NAXIS")
	if naxis < 0 {
		return 0, fmt.Errorf("invalid NAXIS %d", naxis)
	}
	if naxis == 0 {
		return 0, nil
	}
	bitpix, ok := h.Int("BITPIX")
	if !ok {
		return 0, errors.New("missing BITPIX")
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}

	elements := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, ok := h.Int("NAXIS" + strconv.FormatInt(i, 10))
		if !ok {
			return 0, fmt.Errorf("missing NAXIS%d", i)
		}
		if n < 0 {
			return 0, fmt.Errorf("invalid NAXIS%d %d", i, n)
		}
		var err error
		if elements, err = mulSize(elements, n); err != nil {
			return 0, err
		}
	}
	pcount, _ := h.Int("PCOUNT")
	if pcount < 0 {
		return 0, fmt.Errorf("invalid PCOUNT %d", pcount)
	}
	gcount, ok := h.Int("GCOUNT")
	if !ok {
		gcount = 1
	}
	if gcount < 1 {
		return 0, fmt.Errorf("invalid GCOUNT %d", gcount)
	}
	if pcount > math.MaxInt64-elements {
		return 0, errSizeOverflow
	}

	size, err := mulSize(bitpix/8, gcount)
	if err != nil {
		return 0, err
	}
	if size, err = mulSize(size, pcount+elements); err != nil {
		return 0, err
	}
	// Leave room for block padding.
	if size > math.MaxInt64-blockSize {
		return 0, errSizeOverflow
	}
	return size, nil
}

var errSizeOverflow = errors.New("data unit size overflows")

// mulSize multiplies two non-negative sizes.
func mulSize(a, b int64) (int64, error) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, errSizeOverflow
	}
	return a * b, nil
}

func padded(size int64) int64 {
	if rem := size % blockSize; rem != 0 {
		return size + blockSize - rem
	}
	return size
}

func skip(r io.Reader, n int64) error {
	if n < 0 {
		return fmt.Errorf("cannot skip %d bytes backwards", -n)
	}
	if n == 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
