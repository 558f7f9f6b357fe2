package butler

import (
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/pipecheck/internal/dataid"
	"github.com/specialistvlad/pipecheck/internal/dataset"
	"github.com/specialistvlad/pipecheck/internal/fits"
)

// DataRef names one unit of work and fetches the datasets belonging to it.
type DataRef interface {
	// DataID returns the data ID of the unit of work.
	DataID() dataid.DataID
	// DatasetExists reports whether a dataset of the kind can be fetched.
	DatasetExists(kind dataset.Kind) bool
	// Get fetches the object stored under kind.
	Get(kind dataset.Kind) (any, error)
	// Filename returns the path of the file holding the dataset.
	Filename(kind dataset.Kind) (string, error)
}

type dataRef struct {
	repo *Repository
	id   dataid.DataID
}

func (d *dataRef) DataID() dataid.DataID {
	return d.id
}

func (d *dataRef) DatasetExists(kind dataset.Kind) bool {
	e, err := d.repo.lookup(kind, d.id)
	if err != nil {
		return false
	}
	if e.Object != nil {
		return true
	}
	info, err := os.Stat(e.Filename)
	return err == nil && info.Mode().IsRegular()
}

func (d *dataRef) Filename(kind dataset.Kind) (string, error) {
	e, err := d.repo.lookup(kind, d.id)
	if err != nil {
		return "", err
	}
	return e.Filename, nil
}

func (d *dataRef) Get(kind dataset.Kind) (any, error) {
	e, err := d.repo.lookup(kind, d.id)
	if err != nil {
		return nil, err
	}
	if e.Object != nil {
		return e.Object, nil
	}

	obj, err := readObject(kind, e.Filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s for %s: %w: %v", kind, d.id, ErrDatasetNotFound, err)
		}
		return nil, fmt.Errorf("%s for %s: %w", kind, d.id, err)
	}
	return obj, nil
}

// readObject builds the object for kind from the FITS headers in path.
func readObject(kind dataset.Kind, path string) (any, error) {
	headers, err := fits.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch kind.Class() {
	case dataset.ClassExposure:
		info, ok := fits.FindImage(headers)
		if !ok {
			return nil, fmt.Errorf("%s holds no two-dimensional image", path)
		}
		return exposureFromImage(info)
	case dataset.ClassCatalog, dataset.ClassMatches:
		rows, ok := fits.FindTable(headers)
		if !ok {
			return nil, fmt.Errorf("%s holds no binary table", path)
		}
		if kind.Class() == dataset.ClassMatches {
			return &dataset.MatchCatalog{Records: rows}, nil
		}
		return &dataset.Catalog{Records: rows}, nil
	case dataset.ClassBackground:
		return &dataset.Background{}, nil
	}
	return nil, fmt.Errorf("no reader for dataset type %s", kind)
}

func exposureFromImage(info fits.ImageInfo) (any, error) {
	switch info.BitPix {
	case -32:
		return dataset.NewExposure(dataset.PixelFloat, info.Width, info.Height)
	case 32:
		return dataset.NewExposure(dataset.PixelInt, info.Width, info.Height)
	case 16:
		return dataset.NewExposure(dataset.PixelUint, info.Width, info.Height)
	}
	return nil, fmt.Errorf("unsupported BITPIX %d in HDU %d", info.BitPix, info.HDU)
}
