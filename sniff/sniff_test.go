// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package sniff

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func ftypBox(majorBrand string, compatible ...string) []byte {
	body := []byte(majorBrand)
	body = append(body, 0, 0, 0, 0) // minor_version
	for _, c := range compatible {
		body = append(body, []byte(c)...)
	}
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(8+len(body)))
	buf := append(size, []byte("ftyp")...)
	buf = append(buf, body...)
	return buf
}

func TestSniff(t *testing.T) {
	c := qt.New(t)

	c.Run("JPEG", func(c *qt.C) {
		f, err := Sniff([]byte{0xFF, 0xD8, 0xFF, 0xE0})
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, JPEG)
	})

	c.Run("RAF", func(c *qt.C) {
		f, err := Sniff([]byte("FUJIFILMCCD-RAW more bytes here"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, RAF)
	})

	c.Run("TIFF little-endian", func(c *qt.C) {
		f, err := Sniff([]byte("II*\x00\x08\x00\x00\x00"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, TIFF)
	})

	c.Run("TIFF big-endian", func(c *qt.C) {
		f, err := Sniff([]byte("MM\x00*\x00\x00\x00\x08"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, TIFF)
	})

	c.Run("EBML", func(c *qt.C) {
		f, err := Sniff([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x01, 0x02, 0x03})
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, EBML)
	})

	c.Run("HEIC ftyp", func(c *qt.C) {
		f, err := Sniff(ftypBox("heic", "mif1", "miaf"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, HEIF)
	})

	c.Run("CR3 ftyp", func(c *qt.C) {
		f, err := Sniff(ftypBox("crx ", "isom"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, CR3)
	})

	c.Run("QuickTime ftyp", func(c *qt.C) {
		f, err := Sniff(ftypBox("qt  "))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, QuickTime)
	})

	c.Run("MP4 ftyp", func(c *qt.C) {
		f, err := Sniff(ftypBox("isom", "mp42", "avc1"))
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, MP4)
	})

	c.Run("bare wide box implies QuickTime", func(c *qt.C) {
		buf := []byte{0, 0, 0, 8}
		buf = append(buf, []byte("wide")...)
		f, err := Sniff(buf)
		c.Assert(err, qt.IsNil)
		c.Assert(f, qt.Equals, QuickTime)
	})

	c.Run("unrecognized", func(c *qt.C) {
		_, err := Sniff([]byte("not a media file at all"))
		c.Assert(err, qt.Equals, ErrUnrecognizedFileFormat)
	})
}
