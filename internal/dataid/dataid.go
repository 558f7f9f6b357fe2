// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the DataID, the key/value identity of one unit of work
// (for example one visit and CCD pair) inside a data repository.
//
// Why a plain map?
//
// Data IDs are open-ended: a camera decides which keys identify a raw
// exposure, and calibration products are identified by a subset of those keys
// (a flat only cares about the filter). Matching is therefore expressed as a
// subset relation between two DataIDs rather than as equality on a fixed
// struct.
package dataid

import (
	"sort"
	"strconv"
	"strings"
)

// DataID maps data ID keys to their canonical string values.
type DataID map[string]string

// Keys returns the data ID keys in sorted order.
func (d DataID) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the data ID as space separated key=value pairs in key order.
func (d DataID) String() string {
	if len(d) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(d))
	for _, k := range d.Keys() {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, " ")
}

// Contains reports whether every key of sub is present in d with an equal
// value. An empty sub is contained in every data ID.
func (d DataID) Contains(sub DataID) bool {
	for k, v := range sub {
		if got, ok := d[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the data ID.
func (d DataID) Clone() DataID {
	out := make(DataID, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Canonical normalizes a data ID value so that "007" and "7" compare equal.
// Non-integer values are returned unchanged.
func Canonical(value string) string {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return value
}
