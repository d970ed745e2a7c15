// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package heif resolves the EXIF item inside a HEIF/HEIC/AVIF file's `meta`
// box, following the same iinf/iloc parsing the teacher's HEIF decoder
// performs inline, generalized here into a standalone resolver that
// returns an absolute byte range instead of decoding EXIF itself.
package heif

import (
	"encoding/binary"
	"fmt"

	"github.com/bep/mediameta/isobmff"
)

// MaxExtents rejects an iloc item with an implausible number of extents,
// per the spec's extent_count <= 32 invariant.
const MaxExtents = 32

// ConstructionMethod mirrors HEIF's iloc construction_method field.
type ConstructionMethod int

const (
	ConstructionFileOffset ConstructionMethod = 0
	ConstructionIdatOffset ConstructionMethod = 1
	ConstructionItemOffset ConstructionMethod = 2
)

// ErrUnsupportedConstruction is returned for construction_method values
// other than file-offset (0); callers should skip the item rather than
// fail the whole container.
var ErrUnsupportedConstruction = fmt.Errorf("heif: only construction_method 0 (file offset) is supported")

// ErrTooManyExtents is returned when an iloc item lists more than
// MaxExtents extents.
var ErrTooManyExtents = fmt.Errorf("heif: extent_count exceeds %d", MaxExtents)

// ErrItemNotFound is returned when no iinf entry matches the requested
// item type (e.g. "Exif").
var ErrItemNotFound = fmt.Errorf("heif: no matching item in iinf")

// Extent is one iloc extent: an offset/length pair, optionally indexed
// into an idat box (unused when ConstructionMethod is file-offset).
type Extent struct {
	Index  uint64
	Offset uint64
	Length uint64
}

// ItemLocation is one iloc entry.
type ItemLocation struct {
	ItemID            uint32
	ConstructionMethod ConstructionMethod
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

// ItemInfo is one iinf entry. Meta keys it by item_type; item_name is not
// parsed, so an entry without an item_type is keyed "item-<id>".
type ItemInfo struct {
	ItemID            uint32
	ProtectionIndex   uint16
	ItemType          string
	ContentType       string
}

// Meta is the parsed contents of a top-level `meta` full box: its iinf and
// iloc children, keyed for lookup.
type Meta struct {
	ItemInfos     map[string]ItemInfo // keyed by ItemType (e.g. "Exif")
	ItemLocations map[uint32]ItemLocation
}

// ParseMeta parses the body of a `meta` FullBox (the bytes after its
// version+flags word) into a Meta. Fail-slow: if iinf or iloc cannot be
// found or parsed, ParseMeta returns what it has rather than erroring, so
// callers can still look for other items.
func ParseMeta(body []byte) Meta {
	m := Meta{ItemInfos: map[string]ItemInfo{}, ItemLocations: map[uint32]ItemLocation{}}

	if b, ok := isobmff.FindBoxByType(body, "iinf"); ok {
		m.ItemInfos = parseIinf(b.Body)
	}
	if b, ok := isobmff.FindBoxByType(body, "iloc"); ok {
		if locs, err := parseIloc(b.Body); err == nil {
			m.ItemLocations = locs
		}
	}
	return m
}

// ResolveRange returns the absolute file-offset range of the item whose
// item_type equals typ (e.g. "Exif"). It is the caller's job to turn that
// into a driver.ClearAndSkip token when the range is not yet buffered.
func (m Meta) ResolveRange(typ string) (offset, length uint64, err error) {
	info, ok := m.ItemInfos[typ]
	if !ok {
		return 0, 0, ErrItemNotFound
	}
	loc, ok := m.ItemLocations[info.ItemID]
	if !ok {
		return 0, 0, ErrItemNotFound
	}
	if loc.ConstructionMethod != ConstructionFileOffset {
		return 0, 0, ErrUnsupportedConstruction
	}
	if len(loc.Extents) == 0 {
		return 0, 0, fmt.Errorf("heif: item %d has no extents", info.ItemID)
	}
	// Only single-extent EXIF items are meaningful here; sum would be
	// needed for multi-extent general items, but EXIF is always one blob.
	e := loc.Extents[0]
	return loc.BaseOffset + e.Offset, e.Length, nil
}

func parseIinf(body []byte) map[string]ItemInfo {
	out := map[string]ItemInfo{}
	if len(body) < 4 {
		return out
	}
	version := body[0]
	pos := 4
	var count int
	if version == 0 {
		if len(body) < pos+2 {
			return out
		}
		count = int(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
	} else {
		if len(body) < pos+4 {
			return out
		}
		count = int(binary.BigEndian.Uint32(body[pos:]))
		pos += 4
	}

	rest := body[pos:]
	for range count {
		h, err := isobmff.ParseFullHeader(rest)
		if err != nil {
			return out
		}
		size := h.Size
		if uint64(len(rest)) < size {
			return out
		}
		if h.TypeString() == "infe" {
			if size < uint64(h.HeaderSize+4) {
				return out
			}
			if info, ok := parseInfe(h, rest[h.HeaderSize+4:size]); ok {
				key := info.ItemType
				if key == "" {
					key = fmt.Sprintf("item-%d", info.ItemID)
				}
				out[key] = info
			}
		}
		rest = rest[size:]
	}
	return out
}

func parseInfe(h isobmff.FullHeader, body []byte) (ItemInfo, bool) {
	pos := 0
	var itemID uint32
	if h.Version <= 2 {
		if len(body) < 2 {
			return ItemInfo{}, false
		}
		itemID = uint32(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
	} else {
		if len(body) < 4 {
			return ItemInfo{}, false
		}
		itemID = binary.BigEndian.Uint32(body[pos:])
		pos += 4
	}
	if len(body) < pos+2 {
		return ItemInfo{}, false
	}
	protectionIndex := binary.BigEndian.Uint16(body[pos:])
	pos += 2

	info := ItemInfo{ItemID: itemID, ProtectionIndex: protectionIndex}
	if h.Version >= 2 {
		if len(body) < pos+4 {
			return info, true
		}
		info.ItemType = string(body[pos : pos+4])
	}
	return info, true
}

func parseIloc(body []byte) (map[uint32]ItemLocation, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("heif: iloc body too short")
	}
	version := body[0]
	pos := 4

	if len(body) < pos+2 {
		return nil, fmt.Errorf("heif: iloc body too short")
	}
	sizes := body[pos]
	offsetSize := int(sizes >> 4)
	lengthSize := int(sizes & 0x0F)
	pos++
	sizes2 := body[pos]
	baseOffsetSize := int(sizes2 >> 4)
	indexSize := int(sizes2 & 0x0F)
	pos++

	var itemCount int
	if version < 2 {
		if len(body) < pos+2 {
			return nil, fmt.Errorf("heif: iloc body too short")
		}
		itemCount = int(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
	} else {
		if len(body) < pos+4 {
			return nil, fmt.Errorf("heif: iloc body too short")
		}
		itemCount = int(binary.BigEndian.Uint32(body[pos:]))
		pos += 4
	}

	readUint := func(size int) (uint64, error) {
		if size == 0 {
			return 0, nil
		}
		if len(body) < pos+size {
			return 0, fmt.Errorf("heif: iloc body truncated")
		}
		var v uint64
		for i := range size {
			v = (v << 8) | uint64(body[pos+i])
		}
		pos += size
		return v, nil
	}

	out := make(map[uint32]ItemLocation, itemCount)
	for range itemCount {
		var itemID uint32
		if version < 2 {
			if len(body) < pos+2 {
				return out, fmt.Errorf("heif: iloc body truncated")
			}
			itemID = uint32(binary.BigEndian.Uint16(body[pos:]))
			pos += 2
		} else {
			if len(body) < pos+4 {
				return out, fmt.Errorf("heif: iloc body truncated")
			}
			itemID = binary.BigEndian.Uint32(body[pos:])
			pos += 4
		}

		var method ConstructionMethod
		if version >= 1 {
			if len(body) < pos+2 {
				return out, fmt.Errorf("heif: iloc body truncated")
			}
			method = ConstructionMethod(binary.BigEndian.Uint16(body[pos:]) & 0x000F)
			pos += 2
		}

		if len(body) < pos+2 {
			return out, fmt.Errorf("heif: iloc body truncated")
		}
		dataRefIdx := binary.BigEndian.Uint16(body[pos:])
		pos += 2

		baseOffset, err := readUint(baseOffsetSize)
		if err != nil {
			return out, err
		}

		if len(body) < pos+2 {
			return out, fmt.Errorf("heif: iloc body truncated")
		}
		extentCount := int(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
		if extentCount > MaxExtents {
			return out, ErrTooManyExtents
		}

		loc := ItemLocation{
			ItemID:             itemID,
			ConstructionMethod: method,
			DataReferenceIndex: dataRefIdx,
			BaseOffset:         baseOffset,
		}
		for range extentCount {
			var idx uint64
			if version >= 1 && indexSize > 0 {
				var err error
				idx, err = readUint(indexSize)
				if err != nil {
					return out, err
				}
			}
			off, err := readUint(offsetSize)
			if err != nil {
				return out, err
			}
			ln, err := readUint(lengthSize)
			if err != nil {
				return out, err
			}
			loc.Extents = append(loc.Extents, Extent{Index: idx, Offset: off, Length: ln})
		}
		out[itemID] = loc
	}
	return out, nil
}

// ExifIdentifierLen is the length of the 4-byte offset field that precedes
// the "Exif\0\0" ASCII identifier inside a HEIF EXIF item's payload.
const ExifIdentifierLen = 4

// StripExifHeader removes the 4-byte offset field and the 6-byte
// "Exif\0\0" identifier from a HEIF EXIF item payload, returning the bare
// TIFF stream that follows, ready to hand to the exif package.
func StripExifHeader(payload []byte) ([]byte, error) {
	if len(payload) < ExifIdentifierLen+6 {
		return nil, fmt.Errorf("heif: EXIF item payload too short")
	}
	offset := binary.BigEndian.Uint32(payload[:ExifIdentifierLen])
	start := ExifIdentifierLen + int(offset)
	if start+6 > len(payload) || string(payload[start:start+6]) != "Exif\x00\x00" {
		// Fall back to the common case where offset is 0.
		if string(payload[4:10]) == "Exif\x00\x00" {
			return payload[10:], nil
		}
		return nil, fmt.Errorf("heif: missing Exif\\0\\0 identifier")
	}
	return payload[start+6:], nil
}
