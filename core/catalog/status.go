// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package catalog

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an [Entry].
//
// The five states are mutually exclusive. New entries start as Unfinished;
// the merge engine moves entries between states and nothing else does.
type Status uint8

const (
	// Unfinished entries are present in the sources and still need translating.
	Unfinished Status = iota
	// Finished entries carry a translation that has not been flagged for review.
	Finished
	// Fuzzy entries carry a translation made for a previous wording of the source.
	Fuzzy
	// Vanished entries disappeared from the sources but still hold a translation.
	Vanished
	// Obsolete entries disappeared from the sources and hold no translation.
	Obsolete
)

var errUnknownStatus = errors.New("unknown entry status")

var statusNames = [...]string{
	Unfinished: "unfinished",
	Finished:   "finished",
	Fuzzy:      "fuzzy",
	Vanished:   "vanished",
	Obsolete:   "obsolete",
}

// Statuses lists every status in declaration order.
var Statuses = []Status{Unfinished, Finished, Fuzzy, Vanished, Obsolete}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}

	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus is the inverse of [Status.String].
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errUnknownStatus, s)
}

// IsRetired reports whether the entry no longer appears in the sources.
func (s Status) IsRetired() bool {
	return s == Vanished || s == Obsolete
}

// IsActive reports whether the entry was found by the last scan.
func (s Status) IsActive() bool {
	return s == Unfinished || s == Finished || s == Fuzzy
}

// MarshalText implements encoding.TextMarshaler so statuses print by name
// in YAML and JSON output.
func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("%w: %d", errUnknownStatus, uint8(s))
	}

	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
