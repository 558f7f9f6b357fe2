// Package butler is the data-access layer the validators read through. A
// repository is a directory of .hcl files describing datasets: each dataset
// block names its kind, the data ID it belongs to, the file holding it and,
// optionally, an inline description of the object. Data references resolve
// dataset lookups against that catalog and read object metadata from FITS
// files on disk when no inline description is given.
package butler
