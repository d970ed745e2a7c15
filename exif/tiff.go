// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package exif implements the TIFF/IFD engine: a lazy, cycle-safe
// iterator over EXIF entries that resolves sub-IFDs (Exif, GPS), performs
// timezone-aware temporal decoding, and assembles GPS coordinates. It is
// grounded in the teacher's push-model metaDecoderEXIF (of which only the
// tag-name tables remain, in internal/imageexif) generalized into a pull
// iterator per spec, and in the original Rust crate's exif_iter.rs state
// machine.
package exif

import (
	"encoding/binary"
	"fmt"
)

// Header is the 8-byte TIFF header.
type Header struct {
	Order     binary.ByteOrder
	IFD0Offset uint32
}

// ErrBadMagic is returned when the TIFF magic number (0x002A) is missing.
var ErrBadMagic = fmt.Errorf("exif: invalid TIFF magic number")

// ErrShortHeader is returned when buf is shorter than 8 bytes.
var ErrShortHeader = fmt.Errorf("exif: buffer too short for TIFF header")

// ParseHeader parses the 8-byte TIFF header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < 8 {
		return Header{}, ErrShortHeader
	}
	var order binary.ByteOrder
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		order = binary.LittleEndian
	case buf[0] == 'M' && buf[1] == 'M':
		order = binary.BigEndian
	default:
		return Header{}, ErrBadMagic
	}
	if order.Uint16(buf[2:4]) != 0x002A {
		return Header{}, ErrBadMagic
	}
	return Header{Order: order, IFD0Offset: order.Uint32(buf[4:8])}, nil
}

// DataFormat is one of the 12 EXIF field type codes.
type DataFormat uint16

const (
	FormatUnsignedByte     DataFormat = 1
	FormatASCII            DataFormat = 2
	FormatUnsignedShort    DataFormat = 3
	FormatUnsignedLong     DataFormat = 4
	FormatUnsignedRational DataFormat = 5
	FormatSignedByte       DataFormat = 6
	FormatUndefined        DataFormat = 7
	FormatSignedShort      DataFormat = 8
	FormatSignedLong       DataFormat = 9
	FormatSignedRational   DataFormat = 10
	FormatFloat            DataFormat = 11
	FormatDouble           DataFormat = 12
)

// componentSize maps each format code to its fixed per-component byte
// width.
var componentSize = map[DataFormat]int{
	FormatUnsignedByte:     1,
	FormatASCII:            1,
	FormatUnsignedShort:    2,
	FormatUnsignedLong:     4,
	FormatUnsignedRational: 8,
	FormatSignedByte:       1,
	FormatUndefined:        1,
	FormatSignedShort:      2,
	FormatSignedLong:       4,
	FormatSignedRational:   8,
	FormatFloat:            4,
	FormatDouble:           8,
}

// ComponentSize returns the byte width of one component of format f, or 0
// for an unrecognized format code.
func ComponentSize(f DataFormat) int { return componentSize[f] }

// EntryHeader is the 12-byte wire-level IFD entry record.
type EntryHeader struct {
	Tag          uint16
	Format       DataFormat
	Count        uint32
	ValueOrOffset uint32 // raw 4-byte slot; inline value or absolute offset
}

// ParseEntryHeader reads one 12-byte entry record at the start of buf.
func ParseEntryHeader(order binary.ByteOrder, buf []byte) (EntryHeader, error) {
	if len(buf) < 12 {
		return EntryHeader{}, fmt.Errorf("exif: short entry record")
	}
	return EntryHeader{
		Tag:           order.Uint16(buf[0:2]),
		Format:        DataFormat(order.Uint16(buf[2:4])),
		Count:         order.Uint32(buf[4:8]),
		ValueOrOffset: order.Uint32(buf[8:12]),
	}, nil
}

// Size returns the total byte size of this entry's value (Count *
// component size). A zero component size (unknown format) yields 0.
func (e EntryHeader) Size() int { return int(e.Count) * ComponentSize(e.Format) }

// Inline reports whether the value fits in the 4-byte ValueOrOffset slot.
func (e EntryHeader) Inline() bool { return e.Size() <= 4 }

// Known sub-IFD pointer tags.
const (
	TagExifOffset uint16 = 0x8769
	TagGPSInfo    uint16 = 0x8825
)

// Known timezone-offset tags. The pre-scan takes the first of these it
// meets in the Exif sub-IFD's entry order; the order here carries no
// priority.
var TZOffsetTags = []uint16{0x9010, 0x9011, 0x9012} // OffsetTime, OffsetTimeOriginal, OffsetTimeDigitized

// Known time-value tags that receive timezone-aware decoding.
var TimeTags = map[uint16]bool{
	0x0132: true, // ModifyDate
	0x9003: true, // DateTimeOriginal
	0x9004: true, // CreateDate (DateTimeDigitized)
}

// MaxIFDDepth bounds the IFD cursor stack. A push that would exceed it is
// refused with ErrCycle and that IFD is not walked; the iterator does not
// restart from IFD0.
const MaxIFDDepth = 8
