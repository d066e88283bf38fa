// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SemVer represents a released semantic version, consisting of three
// components. First component indicates the major version. Incrementing
// it represents backward-incompatible changes. Second component is the
// minor version which represents feature additions and changes which
// are backward compatible. The last component is the patch version,
// representing internal changes which are invisible in the API level.
//
// Schema definitions, configuration files, and the engine store
// announce their formats through SemVer values, so loaders can reject
// a format before trying to interpret it. No pre-release suffix is
// considered because unreleased versions are not supposed to be
// persisted and so do not need migration support.
type SemVer [3]uint

// ParseSemVer parses the given string as a strict three-component
// semantic version. In contrast to a lenient parser which may fill
// missing components with zeros, all three dot-separated numeric
// components must be present, so a definition cannot claim version
// "1.2" or "1" ambiguously.
func ParseSemVer(s string) (SemVer, error) {
	var sv SemVer
	err := sv.UnmarshalText([]byte(s))
	return sv, err
}

// UnmarshalText deserializes text byte slice as a string consisting of
// exactly three dot-separated non-negative numbers and fills the sv
// SemVer instance. In case of errors, sv will be left unchanged.
func (sv *SemVer) UnmarshalText(text []byte) (err error) {
	p := strings.Split(string(text), ".")
	if len(p) != 3 {
		return fmt.Errorf("the %q has wrong number of components", text)
	}
	var v [3]int
	for i := 0; i < 3; i++ {
		v[i], err = strconv.Atoi(p[i])
		if err != nil {
			return fmt.Errorf("the %q component is not numeric", p[i])
		}
		if v[i] < 0 {
			return fmt.Errorf("the %q component is negative", p[i])
		}
	}
	(*sv)[0] = uint(v[0])
	(*sv)[1] = uint(v[1])
	(*sv)[2] = uint(v[2])
	return nil
}

// Marshal serializes sv semantic version as its string representation.
// This is required for YAML serialization.
func (sv *SemVer) Marshal() string {
	return sv.String()
}

// MarshalText implements encoding.TextMarshaler interface and
// serializes `sv` semantic version as its string representation.
func (sv *SemVer) MarshalText() ([]byte, error) {
	return []byte(sv.String()), nil
}

// String returns the sv semantic version as a dot-separated string
// consisting of three numbers like major.minor.patch where all numbers
// are non-negative.
func (sv SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", sv[0], sv[1], sv[2])
}

// Underscored returns the sv semantic version with underscores between
// its components, like major_minor_patch, so it can be embedded in SQL
// migration script names which reserve dots for other purposes.
func (sv SemVer) Underscored() string {
	return fmt.Sprintf("%d_%d_%d", sv[0], sv[1], sv[2])
}

// Compare returns -1, 0, or 1 if the sv semantic version is older than,
// equal to, or newer than the `o` version respectively, comparing the
// major, minor, and patch components in order.
func (sv SemVer) Compare(o SemVer) int {
	for i := 0; i < 3; i++ {
		switch {
		case sv[i] < o[i]:
			return -1
		case sv[i] > o[i]:
			return 1
		}
	}
	return 0
}
