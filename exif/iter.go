// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"encoding/binary"
	"fmt"
)

// ErrCycle is returned when an IFD push would revisit an offset the
// iterator has already walked, or the stack would exceed MaxIFDDepth.
var ErrCycle = fmt.Errorf("exif: cyclic or too-deep IFD chain")

type frame struct {
	kind  IFDKind
	base  int // absolute offset of this IFD's 2-byte entry-count field
	index int // next entry index to read, 0-based
	count int

	// topLevel marks a frame belonging to the IFD0/IFD1/IFD2/... chain
	// (as opposed to an Exif or GPS sub-IFD). Only top-level frames chase
	// their trailing "next IFD offset" into a sibling frame, and only
	// top-level frames host ExifOffset/GPSInfo sub-IFD pointers.
	topLevel bool
}

// ExifIter lazily walks IFD0, then the Exif and GPS sub-IFDs it points to,
// yielding one ParsedEntry per call to Next. It guards against cyclic
// sub-IFD offsets with an explicit cursor stack bounded by MaxIFDDepth,
// matching the push decoder's seenIFDs set generalized into a pull shape.
type ExifIter struct {
	data  []byte
	order binary.ByteOrder

	stack []frame
	seen  map[int]bool

	cur ParsedEntry
	err error

	// tzOffset is discovered by a pre-scan of OffsetTime* tags before the
	// caller starts consuming entries, so DateTimeOriginal et al. decode
	// timezone-aware from the first Next() call onward.
	tzOffset string
	scanned  bool
}

// NewIter constructs an ExifIter over a TIFF buffer (header at data[0:8]).
func NewIter(data []byte) (*ExifIter, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	it := &ExifIter{
		data:  data,
		order: h.Order,
		seen:  make(map[int]bool),
	}
	if err := it.pushTopIFD(0, int(h.IFD0Offset)); err != nil {
		return nil, err
	}
	it.prescanTimezone()
	return it, nil
}

// pushTopIFD pushes a frame belonging to the top-level IFD0/IFD1/...
// chain, naming it by its position in that chain.
func (it *ExifIter) pushTopIFD(index int, offset int) error {
	return it.pushFrame(IFDKind(index), offset, true)
}

// pushIFD pushes an Exif or GPS sub-IFD frame.
func (it *ExifIter) pushIFD(kind IFDKind, offset int) error {
	return it.pushFrame(kind, offset, false)
}

func (it *ExifIter) pushFrame(kind IFDKind, offset int, topLevel bool) error {
	if len(it.stack) >= MaxIFDDepth {
		return ErrCycle
	}
	if it.seen[offset] {
		return ErrCycle
	}
	if offset < 0 || offset+2 > len(it.data) {
		return fmt.Errorf("exif: IFD offset %d out of range", offset)
	}
	it.seen[offset] = true
	count := int(it.order.Uint16(it.data[offset : offset+2]))
	it.stack = append(it.stack, frame{kind: kind, base: offset, index: 0, count: count, topLevel: topLevel})
	return nil
}

// nextIFDOffset reads the 4-byte "next IFD offset" trailer that follows
// f's entry table, returning ok=false when it falls outside the buffer.
func (it *ExifIter) nextIFDOffset(f frame) (offset uint32, ok bool) {
	off := f.base + 2 + f.count*12
	if off+4 > len(it.data) {
		return 0, false
	}
	return it.order.Uint32(it.data[off : off+4]), true
}

// prescanTimezone looks, in IFD0, for the ExifOffset sub-IFD pointer, then
// scans inside that sub-IFD for an OffsetTime* tag, without disturbing the
// real iteration state, so time-valued entries the caller reads afterward
// already know the discovered offset.
func (it *ExifIter) prescanTimezone() {
	if it.scanned {
		return
	}
	it.scanned = true
	if len(it.stack) == 0 {
		return
	}
	f := it.stack[len(it.stack)-1]
	entriesStart := f.base + 2
	for i := 0; i < f.count; i++ {
		entryOff := entriesStart + i*12
		if entryOff+12 > len(it.data) {
			break
		}
		eh, err := ParseEntryHeader(it.order, it.data[entryOff:entryOff+12])
		if err != nil {
			break
		}
		if eh.Tag != TagExifOffset {
			continue
		}
		it.scanExifSubIFDForTZ(int(eh.ValueOrOffset))
		return
	}
}

func (it *ExifIter) scanExifSubIFDForTZ(offset int) {
	if offset < 0 || offset+2 > len(it.data) {
		return
	}
	count := int(it.order.Uint16(it.data[offset : offset+2]))
	entriesStart := offset + 2
	for i := 0; i < count; i++ {
		entryOff := entriesStart + i*12
		if entryOff+12 > len(it.data) {
			break
		}
		eh, err := ParseEntryHeader(it.order, it.data[entryOff:entryOff+12])
		if err != nil {
			break
		}
		if !isTZTag(eh.Tag) {
			continue
		}
		v, err := decodeValue(it.order, it.data, eh)
		if err != nil {
			continue
		}
		if v.Ascii != "" {
			it.tzOffset = v.Ascii
			return
		}
	}
}

func isTZTag(tag uint16) bool {
	for _, t := range TZOffsetTags {
		if t == tag {
			return true
		}
	}
	return false
}

// TZOffset returns the timezone offset string (e.g. "+02:00") discovered
// by the pre-scan, or "" if none of the OffsetTime* tags were present.
func (it *ExifIter) TZOffset() string { return it.tzOffset }

// Next advances to the next entry, returning false when the walk is
// exhausted or a fatal error occurred (distinguishable via Err). Entries
// come back in file order: IFD0 entries, with each ExifOffset/GPSInfo
// pointer surfaced as its own entry at the point it is reached before its
// sub-IFD's entries follow; once IFD0 (and its sub-IFDs) are exhausted,
// IFD1's entries follow the same way, and so on for any further chained
// IFD the trailing "next IFD offset" names.
func (it *ExifIter) Next() bool {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.index >= top.count {
			next, ok := it.nextIFDOffset(*top)
			kind, topLevel := top.kind, top.topLevel
			it.stack = it.stack[:len(it.stack)-1]
			if topLevel && ok && next != 0 {
				// A cyclic or out-of-range "next IFD" pointer just ends the
				// chain rather than failing the whole walk.
				_ = it.pushTopIFD(int(kind)+1, int(next))
			}
			continue
		}
		entryOff := top.base + 2 + top.index*12
		top.index++
		if entryOff+12 > len(it.data) {
			it.err = fmt.Errorf("exif: truncated IFD entry table")
			return false
		}
		eh, err := ParseEntryHeader(it.order, it.data[entryOff:entryOff+12])
		if err != nil {
			it.err = err
			return false
		}

		kind := top.kind
		if (eh.Tag == TagExifOffset || eh.Tag == TagGPSInfo) && top.topLevel {
			subKind := IFDExif
			if eh.Tag == TagGPSInfo {
				subKind = IFDGPS
			}
			// Emit the pointer entry itself, with its value the raw
			// sub-IFD offset, so consumers see the hop; push the sub-IFD
			// so the next Next() call descends into it. A cyclic or
			// out-of-range pointer still surfaces the entry, it just
			// doesn't get walked.
			it.cur = ParsedEntry{IFD: kind, Tag: eh.Tag, Value: EntryValue{
				Format:       FormatUnsignedLong,
				Count:        1,
				UnsignedInts: []uint32{eh.ValueOrOffset},
			}}
			_ = it.pushIFD(subKind, int(eh.ValueOrOffset))
			return true
		}

		v, err := decodeValue(it.order, it.data, eh)
		if err != nil {
			// Unsupported/corrupt single entries are skipped; the walk
			// recovers at the next entry.
			continue
		}
		if TimeTags[eh.Tag] && v.Ascii != "" {
			applyTimeDecoding(&v, v.Ascii, it.tzOffset)
		}
		it.cur = ParsedEntry{IFD: kind, Tag: eh.Tag, Value: v}
		return true
	}
	return false
}

// applyTimeDecoding fills v.Time or v.NaiveDateTime for a recognized time
// tag's ASCII value, per the iterator's discovered timezone (if any). raw
// is left in v.Ascii either way, so callers that only want the string
// still get it.
func applyTimeDecoding(v *EntryValue, raw string, tzOffset string) {
	if tzOffset != "" {
		if t, err := ParseTime(raw, tzOffset); err == nil {
			v.Time = t
			return
		}
	}
	if t, err := ParseTime(raw, ""); err == nil {
		v.NaiveDateTime = t
	}
}

// Entry returns the entry produced by the most recent successful Next.
func (it *ExifIter) Entry() ParsedEntry { return it.cur }

// Err returns the error, if any, that stopped iteration early.
func (it *ExifIter) Err() error { return it.err }

// GPS drains any GPSInfo entries from a fresh iterator and assembles a
// GPSInfo. Callers that also want non-GPS tags should run a separate
// NewIter pass; this is a convenience for GPS-only extraction.
func GPS(data []byte) (GPSInfo, error) {
	it, err := NewIter(data)
	if err != nil {
		return GPSInfo{}, err
	}
	var raw gpsRaw
	for it.Next() {
		e := it.Entry()
		if e.IFD != IFDGPS {
			continue
		}
		raw.apply(e.Tag, e.Value)
	}
	if it.Err() != nil {
		return GPSInfo{}, it.Err()
	}
	return raw.assemble()
}
