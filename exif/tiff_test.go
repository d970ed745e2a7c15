// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseHeader(t *testing.T) {
	c := qt.New(t)

	c.Run("little endian", func(c *qt.C) {
		buf := []byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}
		h, err := ParseHeader(buf)
		c.Assert(err, qt.IsNil)
		c.Assert(h.Order, qt.Equals, binary.ByteOrder(binary.LittleEndian))
		c.Assert(h.IFD0Offset, qt.Equals, uint32(8))
	})

	c.Run("big endian", func(c *qt.C) {
		buf := []byte{'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08}
		h, err := ParseHeader(buf)
		c.Assert(err, qt.IsNil)
		c.Assert(h.Order, qt.Equals, binary.ByteOrder(binary.BigEndian))
	})

	c.Run("bad magic", func(c *qt.C) {
		_, err := ParseHeader([]byte{'X', 'X', 0x00, 0x2A, 0, 0, 0, 8})
		c.Assert(err, qt.Equals, ErrBadMagic)
	})

	c.Run("short buffer", func(c *qt.C) {
		_, err := ParseHeader([]byte{'I', 'I'})
		c.Assert(err, qt.Equals, ErrShortHeader)
	})
}

func TestEntryHeaderInline(t *testing.T) {
	c := qt.New(t)
	e := EntryHeader{Format: FormatUnsignedShort, Count: 1}
	c.Assert(e.Size(), qt.Equals, 2)
	c.Assert(e.Inline(), qt.IsTrue)

	e2 := EntryHeader{Format: FormatASCII, Count: 20}
	c.Assert(e2.Inline(), qt.IsFalse)
}
