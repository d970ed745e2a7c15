// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package compat

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func app1(payload []byte) []byte {
	seg := []byte{0xFF, 0xE1}
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(payload)+2))
	return append(append(seg, l...), payload...)
}

func TestDecodeJPEGPropagatesNotJPEG(t *testing.T) {
	c := qt.New(t)
	_, err := DecodeJPEG([]byte("not a jpeg"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestDecodeJPEGFindsExifRegion(t *testing.T) {
	c := qt.New(t)
	// A minimal TIFF header goexif can at least attempt to decode; this
	// test only exercises the region-finding seam, not goexif's own
	// decoding correctness.
	tiff := []byte("II*\x00\x08\x00\x00\x00\x00\x00")
	payload := append([]byte("Exif\x00\x00"), tiff...)
	buf := append([]byte{0xFF, 0xD8}, app1(payload)...)
	buf = append(buf, 0xFF, 0xDA, 0x00, 0x02)

	_, err := DecodeJPEG(buf)
	// goexif may reject this minimal TIFF body itself; we only assert the
	// EXIF region was located rather than rejected by this package.
	if err != nil {
		c.Assert(err.Error(), qt.Not(qt.Contains), "jpegseg")
	}
}
