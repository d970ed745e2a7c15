// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package ebml

import "fmt"

// SeekEntry is one SeekHead pointer: an element ID and the absolute byte
// offset (relative to the start of the Segment body) where it lives.
type SeekEntry struct {
	SeekID       uint32
	SeekPosition uint64
}

// FileInfo is what parsing the leading EBML header and Segment/SeekHead
// structure establishes about a WebM/Matroska file, before any Tracks or
// track-metadata extraction happens.
type FileInfo struct {
	DocType    string
	SegmentPos int // offset of the Segment body's first byte within the parsed buffer
	SeekTable  []SeekEntry
	Info       SegmentInfo
}

// ErrInvalidSeekEntry is returned when a SeekHead's Seek entry is
// malformed (wrong sub-element IDs, or a SeekPosition encoded in neither 4
// nor 8 bytes).
var ErrInvalidSeekEntry = fmt.Errorf("ebml: invalid seek entry")

// ParseWebm parses the EBML header and the Segment's SeekHead from buf,
// which must contain the whole EBML header plus enough of the Segment to
// cover the SeekHead element (callers following spec.md's ClearAndSkip
// protocol ask the driver for more bytes and retry when ErrNeedMore is
// returned).
func ParseWebm(buf []byte) (FileInfo, error) {
	docType, n, err := ParseDocType(buf)
	if err != nil {
		return FileInfo{}, err
	}
	rest := buf[n:]

	segHeader, segHeaderLen, err := NextHeader(rest)
	if err != nil {
		return FileInfo{}, err
	}
	if segHeader.ID != IDSegment {
		return FileInfo{}, ErrNotEBML
	}
	segmentBodyStart := n + segHeaderLen
	segBody := rest[segHeaderLen:]

	result := FileInfo{DocType: docType, SegmentPos: segmentBodyStart, Info: SegmentInfo{TimecodeScale: 1_000_000}}
	if infoHeader, infoLen, ok := findElementByID(segBody, IDInfo); ok {
		end := infoLen + infoHeader.DataSize
		if end <= len(segBody) {
			result.Info = ParseInfo(segBody[infoLen:end])
		}
	}

	seekHeadHeader, seekHeadLen, ok := findElementByID(segBody, IDSeekHead)
	if !ok {
		// SeekHead is optional; DocType and Info alone are still a valid result.
		return result, nil
	}

	seekBodyStart := seekHeadLen
	if seekBodyStart+seekHeadHeader.DataSize > len(segBody) {
		return FileInfo{}, ErrNeedMore
	}
	seekBody := segBody[seekBodyStart : seekBodyStart+seekHeadHeader.DataSize]

	entries, err := parseSeekHead(seekBody)
	if err != nil {
		return FileInfo{}, err
	}

	result.SeekTable = entries
	return result, nil
}

// findElementByID scans sibling elements in buf for one with the given
// ID, fail-slow: a parse error on an element it does not care about ends
// the scan rather than erroring, mirroring the isobmff walker's nested-
// scan policy.
func findElementByID(buf []byte, id uint64) (Header, int, bool) {
	pos := 0
	for pos < len(buf) {
		h, n, err := NextHeader(buf[pos:])
		if err != nil {
			return Header{}, 0, false
		}
		if h.ID == id {
			return h, pos + n, true
		}
		pos += n + h.DataSize
	}
	return Header{}, 0, false
}

func parseSeekHead(body []byte) ([]SeekEntry, error) {
	var entries []SeekEntry
	pos := 0
	for pos < len(body) {
		h, n, err := NextHeader(body[pos:])
		if err != nil {
			break
		}
		elemEnd := pos + n + h.DataSize
		if elemEnd > len(body) {
			break
		}
		switch h.ID {
		case IDSeek:
			entry, err := parseSeekEntry(body[pos+n : elemEnd])
			if err == nil {
				entries = append(entries, entry)
			}
		case IDCRC32, IDVoid:
			// Skip without error.
		}
		pos = elemEnd
	}
	return entries, nil
}

func parseSeekEntry(body []byte) (SeekEntry, error) {
	entry := SeekEntry{SeekID: uint32(InvalidElementID)}
	pos := 0
	for pos < len(body) {
		h, n, err := NextHeader(body[pos:])
		if err != nil {
			return entry, ErrInvalidSeekEntry
		}
		elemEnd := pos + n + h.DataSize
		if elemEnd > len(body) {
			return entry, ErrInvalidSeekEntry
		}
		val := body[pos+n : elemEnd]
		switch h.ID {
		case IDSeekID:
			entry.SeekID = uint32(beUint64(val))
		case IDSeekPosition:
			switch len(val) {
			case 4:
				entry.SeekPosition = uint64(beUint32(val))
			case 8:
				entry.SeekPosition = beUint64(val)
			default:
				return entry, ErrInvalidSeekEntry
			}
		default:
			return entry, ErrInvalidSeekEntry
		}
		pos = elemEnd
		if entry.SeekID != uint32(InvalidElementID) && entry.SeekPosition != 0 {
			break
		}
	}
	if entry.SeekID == uint32(InvalidElementID) || entry.SeekPosition == 0 {
		return entry, ErrInvalidSeekEntry
	}
	return entry, nil
}

func beUint32(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = (v << 8) | uint32(c)
	}
	return v
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = (v << 8) | uint64(c)
	}
	return v
}
