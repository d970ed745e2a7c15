// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package cr3 locates Canon CR3's UUID box inside `moov` and resolves its
// CMT1/CMT2/CMT3 raw-TIFF-stream ranges, using the same box-walking idiom
// the HEIF resolver shares.
package cr3

import (
	"bytes"
	"fmt"

	"github.com/bep/mediameta/isobmff"
)

// CanonUUID is Canon's fixed UUID identifying the CR3 metadata box.
var CanonUUID = [16]byte{
	0x85, 0xC0, 0xB6, 0x87, 0x82, 0x0F, 0x11, 0xE0,
	0x81, 0x11, 0xF4, 0xCE, 0x46, 0x2B, 0x6A, 0x48,
}

// ErrNoCanonUUID is returned when `moov` contains no box matching
// CanonUUID.
var ErrNoCanonUUID = fmt.Errorf("cr3: no Canon UUID box found in moov")

// ErrMissingCMT is returned when CMT1 is absent; CMT2/CMT3 are optional
// (only a length check applies when present).
var ErrMissingCMT = fmt.Errorf("cr3: CMT1 box missing or too short")

// CMT is one of the three Canon TIFF-stream sub-boxes, given as an offset
// into the `moov`-relative UUID payload (callers add moov's absolute file
// offset to obtain a file-absolute range).
type CMT struct {
	Offset int
	Length int
}

// Streams holds the three CMT ranges relative to the start of the Canon
// UUID box's payload (after the 16-byte UUID itself).
type Streams struct {
	CMT1, CMT2, CMT3 CMT
}

// FindCanonUUID scans the top level of a `moov` box body for the Canon
// UUID box and returns its payload (the bytes after the 16-byte UUID).
func FindCanonUUID(moovBody []byte) ([]byte, bool) {
	found := false
	var payload []byte
	isobmffWalkTop(moovBody, func(b isobmff.Box) bool {
		if b.TypeString() != "uuid" {
			return true
		}
		if len(b.Body) < 16 {
			return true
		}
		if !bytes.Equal(b.Body[:16], CanonUUID[:]) {
			return true
		}
		payload = b.Body[16:]
		found = true
		return false
	})
	return payload, found
}

func isobmffWalkTop(buf []byte, predicate isobmff.Predicate) {
	isobmff.WalkWhile(buf, predicate)
}

// ParseStreams locates CMT1/CMT2/CMT3 inside a Canon UUID payload (as
// returned by FindCanonUUID). CMT1's body must begin with a valid TIFF
// header (checked by the caller via the exif package); here we only
// validate that it is present and at least 8 bytes, matching spec.md's
// "CMT2/CMT3 require only >= 8 bytes" rule — CMT1 gets the same minimum
// length check, with magic validation deferred to the TIFF/EXIF engine.
func ParseStreams(uuidPayload []byte) (Streams, error) {
	var s Streams
	offset := 0

	isobmffWalkTop(uuidPayload, func(b isobmff.Box) bool {
		switch b.TypeString() {
		case "CMT1":
			s.CMT1 = CMT{Offset: offset + b.HeaderSize, Length: len(b.Body)}
		case "CMT2":
			s.CMT2 = CMT{Offset: offset + b.HeaderSize, Length: len(b.Body)}
		case "CMT3":
			s.CMT3 = CMT{Offset: offset + b.HeaderSize, Length: len(b.Body)}
		}
		offset += int(b.Size)
		return true
	})

	if s.CMT1.Length < 8 {
		return s, ErrMissingCMT
	}
	if s.CMT2.Length != 0 && s.CMT2.Length < 8 {
		return s, fmt.Errorf("cr3: CMT2 too short")
	}
	if s.CMT3.Length != 0 && s.CMT3.Length < 8 {
		return s, fmt.Errorf("cr3: CMT3 too short")
	}
	return s, nil
}
