// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the closed set of dataset kinds the validators know
// about. Kinds are an enumeration rather than free-form strings so that a
// misspelt dataset name is a compile error in Go code and a parse error on
// the command line or in a repository file.
package dataset

import (
	"fmt"
	"strings"
)

// Kind is a named category of pipeline data product.
type Kind int

const (
	Raw Kind = iota + 1
	Bias
	Dark
	Flat
	Fringe
	Calexp
	CalexpBackground
	IcSrc
	Src
	SrcMatch
)

// Class groups kinds by the shape of object they hold.
type Class int

const (
	ClassExposure Class = iota + 1
	ClassBackground
	ClassCatalog
	ClassMatches
)

var kindNames = map[Kind]string{
	Raw:              "raw",
	Bias:             "bias",
	Dark:             "dark",
	Flat:             "flat",
	Fringe:           "fringe",
	Calexp:           "calexp",
	CalexpBackground: "calexpBackground",
	IcSrc:            "icSrc",
	Src:              "src",
	SrcMatch:         "srcMatch",
}

var kindClasses = map[Kind]Class{
	Raw:              ClassExposure,
	Bias:             ClassExposure,
	Dark:             ClassExposure,
	Flat:             ClassExposure,
	Fringe:           ClassExposure,
	Calexp:           ClassExposure,
	CalexpBackground: ClassBackground,
	IcSrc:            ClassCatalog,
	Src:              ClassCatalog,
	SrcMatch:         ClassMatches,
}

// String returns the pipeline name of the kind, e.g. "calexpBackground".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Class returns the object class stored under the kind.
func (k Kind) Class() Class {
	return kindClasses[k]
}

// ParseKind maps a pipeline dataset name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown dataset type %q", name)
}

// CalibKind is one of the calibration products calibValidation can test.
type CalibKind int

const (
	CalibBias CalibKind = iota + 1
	CalibDark
	CalibFlat
	CalibFringe
)

var calibKinds = []CalibKind{CalibBias, CalibDark, CalibFlat, CalibFringe}

// CalibKinds lists every calibration kind in declaration order.
func CalibKinds() []CalibKind {
	out := make([]CalibKind, len(calibKinds))
	copy(out, calibKinds)
	return out
}

// Kind returns the dataset kind holding this calibration.
func (c CalibKind) Kind() Kind {
	switch c {
	case CalibBias:
		return Bias
	case CalibDark:
		return Dark
	case CalibFlat:
		return Flat
	case CalibFringe:
		return Fringe
	}
	return 0
}

func (c CalibKind) String() string {
	if k := c.Kind(); k != 0 {
		return k.String()
	}
	return fmt.Sprintf("CalibKind(%d)", int(c))
}

// ParseCalibKind maps "bias", "dark", "flat" or "fringe" to a CalibKind.
func ParseCalibKind(name string) (CalibKind, error) {
	for _, c := range calibKinds {
		if c.String() == name {
			return c, nil
		}
	}
	names := make([]string, 0, len(calibKinds))
	for _, c := range calibKinds {
		names = append(names, c.String())
	}
	return 0, fmt.Errorf("invalid calibration type %q: must be one of %s", name, strings.Join(names, ", "))
}
