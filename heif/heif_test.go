// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package heif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func fullBox(typ string, version byte, flags uint32, body []byte) []byte {
	vf := make([]byte, 4)
	binary.BigEndian.PutUint32(vf, (uint32(version)<<24)|(flags&0x00FFFFFF))
	b := append(vf, body...)
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(8+len(b)))
	out := append(size, []byte(typ)...)
	return append(out, b...)
}

func infeV2(itemID uint16, protIdx uint16, itemType string) []byte {
	body := make([]byte, 0, 8)
	idb := make([]byte, 2)
	binary.BigEndian.PutUint16(idb, itemID)
	body = append(body, idb...)
	pb := make([]byte, 2)
	binary.BigEndian.PutUint16(pb, protIdx)
	body = append(body, pb...)
	body = append(body, []byte(itemType)...)
	return fullBox("infe", 2, 0, body)
}

func TestParseMetaResolvesExifRange(t *testing.T) {
	c := qt.New(t)

	iinfBody := make([]byte, 2)
	binary.BigEndian.PutUint16(iinfBody, 1) // entry_count = 1
	iinfBody = append(iinfBody, infeV2(1, 0, "Exif")...)
	iinf := fullBox("iinf", 0, 0, iinfBody)

	// iloc v0: offset_size=4, length_size=4, base_offset_size=0, index_size=0.
	ilocBody := []byte{0x44, 0x00}
	itemCount := make([]byte, 2)
	binary.BigEndian.PutUint16(itemCount, 1)
	ilocBody = append(ilocBody, itemCount...)
	ilocBody = append(ilocBody, 0x00, 0x01) // item_id = 1
	ilocBody = append(ilocBody, 0x00, 0x00) // data_reference_index
	extentCount := []byte{0x00, 0x01}
	ilocBody = append(ilocBody, extentCount...)
	off := make([]byte, 4)
	binary.BigEndian.PutUint32(off, 500)
	ln := make([]byte, 4)
	binary.BigEndian.PutUint32(ln, 200)
	ilocBody = append(ilocBody, off...)
	ilocBody = append(ilocBody, ln...)
	iloc := fullBox("iloc", 0, 0, ilocBody)

	metaBody := append(append([]byte{}, iinf...), iloc...)

	m := ParseMeta(metaBody)
	c.Assert(m.ItemInfos["Exif"].ItemID, qt.Equals, uint32(1))

	offset, length, err := m.ResolveRange("Exif")
	c.Assert(err, qt.IsNil)
	c.Assert(offset, qt.Equals, uint64(500))
	c.Assert(length, qt.Equals, uint64(200))
}

func TestResolveRangeMissingItem(t *testing.T) {
	c := qt.New(t)
	m := Meta{ItemInfos: map[string]ItemInfo{}, ItemLocations: map[uint32]ItemLocation{}}
	_, _, err := m.ResolveRange("Exif")
	c.Assert(err, qt.Equals, ErrItemNotFound)
}

func TestResolveRangeUnsupportedConstruction(t *testing.T) {
	c := qt.New(t)
	m := Meta{
		ItemInfos:     map[string]ItemInfo{"Exif": {ItemID: 1}},
		ItemLocations: map[uint32]ItemLocation{1: {ItemID: 1, ConstructionMethod: ConstructionIdatOffset, Extents: []Extent{{Length: 10}}}},
	}
	_, _, err := m.ResolveRange("Exif")
	c.Assert(err, qt.Equals, ErrUnsupportedConstruction)
}

func TestStripExifHeader(t *testing.T) {
	c := qt.New(t)
	payload := append([]byte{0, 0, 0, 0}, []byte("Exif\x00\x00MM\x00*tail")...)
	tiff, err := StripExifHeader(payload)
	c.Assert(err, qt.IsNil)
	c.Assert(string(tiff), qt.Equals, "MM\x00*tail")
}

func TestTooManyExtentsRejected(t *testing.T) {
	c := qt.New(t)
	ilocBody := []byte{0, 0, 0, 0, 0x44, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00}
	extentCount := make([]byte, 2)
	binary.BigEndian.PutUint16(extentCount, 33)
	ilocBody = append(ilocBody, extentCount...)
	_, err := parseIloc(ilocBody)
	c.Assert(err, qt.Equals, ErrTooManyExtents)
}
