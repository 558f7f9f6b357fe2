package fits

// ImageInfo describes a two-dimensional image HDU.
type ImageInfo struct {
	HDU        int
	BitPix     int
	Width      int
	Height     int
	Compressed bool
}

// FindImage returns the first two-dimensional image in headers. Tile
// compressed images are reported with their uncompressed geometry.
func FindImage(headers []*Header) (ImageInfo, bool) {
	for i, h := range headers {
		if compressed, _ := h.Bool("ZIMAGE"); compressed {
			if naxis, _ := h.Int("ZNAXIS"); naxis != 2 {
				continue
			}
			bitpix, _ := h.Int("ZBITPIX")
			w, _ := h.Int("ZNAXIS1")
			ht, _ := h.Int("ZNAXIS2")
			return ImageInfo{HDU: i, BitPix: int(bitpix), Width: int(w), Height: int(ht), Compressed: true}, true
		}

		if ext, ok := h.String("XTENSION"); ok && ext != "IMAGE" {
			continue
		}
		if naxis, _ := h.Int("NAXIS"); naxis != 2 {
			continue
		}
		bitpix, _ := h.Int("BITPIX")
		w, _ := h.Int("NAXIS1")
		ht, _ := h.Int("NAXIS2")
		return ImageInfo{HDU: i, BitPix: int(bitpix), Width: int(w), Height: int(ht)}, true
	}
	return ImageInfo{}, false
}

// FindTable returns the row count of the first binary table that is not a
// compressed image.
func FindTable(headers []*Header) (rows int, ok bool) {
	for _, h := range headers {
		if ext, _ := h.String("XTENSION"); ext != "BINTABLE" {
			continue
		}
		if compressed, _ := h.Bool("ZIMAGE"); compressed {
			continue
		}
		n, _ := h.Int("NAXIS2")
		return int(n), true
	}
	return 0, false
}
