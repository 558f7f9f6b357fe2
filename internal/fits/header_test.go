package fits_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/pipecheck/internal/fits"
	"github.com/specialistvlad/pipecheck/internal/fits/fitstest"
	"github.com/stretchr/testify/require"
)

// onlyReader hides the Seek method so the copy path is exercised.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestReadHeaders_WalksEveryHDU(t *testing.T) {
	t.Parallel()

	data := fitstest.New().
		Primary(8).
		Image(-32, 30, 20).
		BinTable(123, 16).
		Bytes()

	for name, r := range map[string]io.Reader{
		"seeker":     bytes.NewReader(data),
		"plain read": onlyReader{bytes.NewReader(data)},
	} {
		t.Run(name, func(t *testing.T) {
			headers, err := fits.ReadHeaders(r)
			require.NoError(t, err)
			require.Len(t, headers, 3)

			object, ok := headers[0].String("OBJECT")
			require.True(t, ok)
			require.Equal(t, "it's a test", object)

			ext, _ := headers[1].String("XTENSION")
			require.Equal(t, "IMAGE", ext)
			bitpix, ok := headers[1].Int("BITPIX")
			require.True(t, ok)
			require.EqualValues(t, -32, bitpix)

			rows, ok := fits.FindTable(headers)
			require.True(t, ok)
			require.Equal(t, 123, rows)
		})
	}
}

func TestReadHeaders_Errors(t *testing.T) {
	t.Parallel()

	_, err := fits.ReadHeaders(bytes.NewReader(nil))
	require.Error(t, err, "an empty file is not valid")

	notFits := bytes.Repeat([]byte(" "), 2880)
	copy(notFits, "END")
	_, err = fits.ReadHeaders(bytes.NewReader(notFits))
	require.True(t, errors.Is(err, fits.ErrNotFITS), "got %v", err)

	truncated := fitstest.New().Primary(16, 10, 10).Bytes()[:100]
	_, err = fits.ReadHeaders(bytes.NewReader(truncated))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadHeaders_RejectsCorruptSizes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{
			name:    "negative axis",
			data:    fitstest.New().Header("SIMPLE", true, "BITPIX", 8, "NAXIS", 1, "NAXIS1", -2880).Bytes(),
			wantErr: "invalid NAXIS1 -2880",
		},
		{
			name:    "negative NAXIS",
			data:    fitstest.New().Header("SIMPLE", true, "BITPIX", 8, "NAXIS", -1).Bytes(),
			wantErr: "invalid NAXIS -1",
		},
		{
			name: "negative PCOUNT",
			data: fitstest.New().Primary(8).
				Header("XTENSION", "BINTABLE", "BITPIX", 8, "NAXIS", 2, "NAXIS1", 8, "NAXIS2", 0, "PCOUNT", -5760, "GCOUNT", 1).
				Bytes(),
			wantErr: "invalid PCOUNT -5760",
		},
		{
			name: "zero GCOUNT",
			data: fitstest.New().Primary(8).
				Header("XTENSION", "IMAGE", "BITPIX", 8, "NAXIS", 1, "NAXIS1", 10, "PCOUNT", 0, "GCOUNT", 0).
				Bytes(),
			wantErr: "invalid GCOUNT 0",
		},
		{
			name:    "axis product overflows",
			data:    fitstest.New().Header("SIMPLE", true, "BITPIX", -64, "NAXIS", 2, "NAXIS1", int64(1)<<40, "NAXIS2", int64(1)<<40).Bytes(),
			wantErr: "overflows",
		},
		{
			name:    "bytes per element overflow",
			data:    fitstest.New().Header("SIMPLE", true, "BITPIX", -64, "NAXIS", 1, "NAXIS1", int64(math.MaxInt64)/4).Bytes(),
			wantErr: "overflows",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for name, r := range map[string]io.Reader{
				"seeker":     bytes.NewReader(tc.data),
				"plain read": onlyReader{bytes.NewReader(tc.data)},
			} {
				_, err := fits.ReadHeaders(r)
				require.ErrorContains(t, err, tc.wantErr, name)
			}
		})
	}
}

func TestReadFile_NegativeAxisReturns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrupt.fits")
	fitstest.New().Header("SIMPLE", true, "BITPIX", 8, "NAXIS", 1, "NAXIS1", -2880).WriteFile(t, path)

	done := make(chan error, 1)
	go func() {
		_, err := fits.ReadFile(path)
		done <- err
	}()
	select {
	case err := <-done:
		require.ErrorContains(t, err, "invalid NAXIS1")
	case <-time.After(3 * time.Second):
		t.Fatal("ReadFile did not return on a negative axis length")
	}
}

func TestFindImage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		data     []byte
		expected fits.ImageInfo
		found    bool
	}{
		{
			name:     "image in primary HDU",
			data:     fitstest.New().Primary(16, 40, 50).Bytes(),
			expected: fits.ImageInfo{HDU: 0, BitPix: 16, Width: 40, Height: 50},
			found:    true,
		},
		{
			name:     "afw style empty primary then image extension",
			data:     fitstest.New().Primary(8).Image(-32, 2048, 4096).Image(32, 2048, 4096).Bytes(),
			expected: fits.ImageInfo{HDU: 1, BitPix: -32, Width: 2048, Height: 4096},
			found:    true,
		},
		{
			name:     "tile compressed image",
			data:     fitstest.New().Primary(8).CompressedImage(-32, 512, 256).Bytes(),
			expected: fits.ImageInfo{HDU: 1, BitPix: -32, Width: 512, Height: 256, Compressed: true},
			found:    true,
		},
		{
			name:  "table only",
			data:  fitstest.New().Primary(8).BinTable(5, 4).Bytes(),
			found: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			headers, err := fits.ReadHeaders(bytes.NewReader(tc.data))
			require.NoError(t, err)

			info, ok := fits.FindImage(headers)
			require.Equal(t, tc.found, ok)
			require.Equal(t, tc.expected, info)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calexp", "calexp.fits")
	fitstest.New().Primary(8).Image(-32, 8, 8).WriteFile(t, path)

	headers, err := fits.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	require.Contains(t, headers[1].Keys(), "NAXIS2")

	_, err = fits.ReadFile(filepath.Join(t.TempDir(), "missing.fits"))
	require.Error(t, err)
}
