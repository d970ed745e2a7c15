// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package cr3

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func box(typ string, body []byte) []byte {
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(8+len(body)))
	b := append(size, []byte(typ)...)
	return append(b, body...)
}

func TestFindCanonUUIDAndParseStreams(t *testing.T) {
	c := qt.New(t)

	cmt1 := append([]byte("MM\x00*"), []byte{0, 0, 0, 8, 0, 0}...)
	cmt2 := []byte("MM\x00*extra___")
	cmt3 := []byte("MM\x00*more____")

	payload := append(append([]byte{}, CanonUUID[:]...), box("CMT1", cmt1)...)
	payload = append(payload, box("CMT2", cmt2)...)
	payload = append(payload, box("CMT3", cmt3)...)

	uuidBox := box("uuid", payload)
	moov := append(box("free", []byte("xx")), uuidBox...)

	found, ok := FindCanonUUID(moov)
	c.Assert(ok, qt.IsTrue)
	c.Assert(len(found) > 0, qt.IsTrue)

	streams, err := ParseStreams(found)
	c.Assert(err, qt.IsNil)
	c.Assert(streams.CMT1.Length, qt.Equals, len(cmt1))
	c.Assert(streams.CMT2.Length, qt.Equals, len(cmt2))
	c.Assert(streams.CMT3.Length, qt.Equals, len(cmt3))
}

func TestFindCanonUUIDNotPresent(t *testing.T) {
	c := qt.New(t)
	moov := box("trak", []byte("no uuid here"))
	_, ok := FindCanonUUID(moov)
	c.Assert(ok, qt.IsFalse)
}

func TestParseStreamsMissingCMT1(t *testing.T) {
	c := qt.New(t)
	_, err := ParseStreams([]byte{})
	c.Assert(err, qt.Equals, ErrMissingCMT)
}
