// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package bytesx

import (
	"encoding"
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFixedWidthReads(t *testing.T) {
	c := qt.New(t)

	b := []byte{0x00, 0x2A, 0x00, 0x00, 0x01, 0x00}
	c.Assert(U16(binary.BigEndian, b, 0), qt.Equals, uint16(0x002A))
	c.Assert(U32(binary.BigEndian, b, 0), qt.Equals, uint32(0x002A0000))
	c.Assert(BEU16(b[:2]), qt.Equals, uint16(0x002A))
}

func TestCString(t *testing.T) {
	c := qt.New(t)

	c.Assert(CString([]byte("moov\x00trailing")), qt.Equals, "moov")
	c.Assert(CString([]byte("©xyz")), qt.Equals, "©xyz")

	// Non-UTF-8 bytes fall back to byte-as-rune, not replacement characters.
	weird := []byte{0xA9, 'x', 'y', 'z'}
	got := CString(weird)
	c.Assert(len(got) > 0, qt.IsTrue)
}

func TestRat(t *testing.T) {
	c := qt.New(t)

	c.Run("NewRat normalizes sign and gcd", func(c *qt.C) {
		ri, err := NewRat[int32](90, 600)
		c.Assert(err, qt.IsNil)
		c.Assert(ri.Num(), qt.Equals, int32(3))
		c.Assert(ri.Den(), qt.Equals, int32(20))

		ri, err = NewRat[int32](13, -3)
		c.Assert(err, qt.IsNil)
		c.Assert(ri.Num(), qt.Equals, int32(-13))
		c.Assert(ri.Den(), qt.Equals, int32(3))
	})

	c.Run("zero denominator rejected", func(c *qt.C) {
		_, err := NewRat[int32](1, 0)
		c.Assert(err, qt.ErrorMatches, "denominator must be non-zero")
	})

	c.Run("MarshalText/UnmarshalText roundtrip", func(c *qt.C) {
		ru, _ := NewRat[uint32](22, 1)
		text, err := ru.(encoding.TextMarshaler).MarshalText()
		c.Assert(err, qt.IsNil)
		c.Assert(string(text), qt.Equals, "22")

		var r2 Rat[uint32]
		rr := &rat[uint32]{}
		err = rr.UnmarshalText([]byte("31/1"))
		c.Assert(err, qt.IsNil)
		r2 = rr
		c.Assert(r2.Num(), qt.Equals, uint32(31))
	})
}

func TestVInt(t *testing.T) {
	c := qt.New(t)

	c.Run("4-byte id keeps marker", func(c *qt.C) {
		// EBML header ID 0x1A45DFA3 is a 4-byte VINT with marker kept.
		b := []byte{0x1A, 0x45, 0xDF, 0xA3}
		v, w, err := VInt(b, true)
		c.Assert(err, qt.IsNil)
		c.Assert(w, qt.Equals, 4)
		c.Assert(v, qt.Equals, uint64(0x1A45DFA3))
	})

	c.Run("size vint strips marker", func(c *qt.C) {
		// 0x9F == 1001 1111, single octet, value after strip = 0x1F.
		v, w, err := VInt([]byte{0x9F}, false)
		c.Assert(err, qt.IsNil)
		c.Assert(w, qt.Equals, 1)
		c.Assert(v, qt.Equals, uint64(0x1F))
	})

	c.Run("width beyond 8 octets fails", func(c *qt.C) {
		_, err := VIntWidth(0x00)
		c.Assert(err, qt.Equals, ErrVIntTooWide)
	})
}
