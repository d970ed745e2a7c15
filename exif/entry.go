// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/bep/mediameta/bytesx"
)

// IFDKind names which IFD an entry came from. Non-negative values name a
// top-level image IFD by its chain position (IFD0, IFD1, IFD2, ...,
// following each IFD's "next IFD" trailer); IFDExif and IFDGPS are the two
// sub-IFDs reached through a pointer tag in a top-level IFD.
type IFDKind int

const (
	IFD0    IFDKind = 0
	IFD1    IFDKind = 1
	IFDExif IFDKind = -1
	IFDGPS  IFDKind = -2
)

func (k IFDKind) String() string {
	switch k {
	case IFDExif:
		return "Exif"
	case IFDGPS:
		return "GPS"
	}
	if k < 0 {
		return fmt.Sprintf("IFD?%d", int(k))
	}
	return fmt.Sprintf("IFD%d", int(k))
}

// EntryValue holds a decoded IFD entry value. One of the slices (or Ascii)
// is populated, selected by Format; a recognized time tag additionally
// gets Time or NaiveDateTime.
type EntryValue struct {
	Format DataFormat
	Count  uint32

	Ascii             string
	Bytes             []byte
	UnsignedInts      []uint32
	SignedInts        []int32
	UnsignedRationals []bytesx.Rat[uint32]
	SignedRationals   []bytesx.Rat[int32]
	Floats            []float64

	// Time is set, alongside Ascii, for a recognized time tag (TimeTags)
	// when the iterator discovered a timezone offset and the value parsed
	// with it. IsZero() when absent.
	Time time.Time
	// NaiveDateTime is set, alongside Ascii, for a recognized time tag when
	// no timezone offset was available, or the offset-aware parse failed.
	// IsZero() when absent.
	NaiveDateTime time.Time
}

// IsEmpty reports whether v carries no decoded components at all.
func (v EntryValue) IsEmpty() bool {
	return v.Ascii == "" && len(v.Bytes) == 0 && len(v.UnsignedInts) == 0 &&
		len(v.SignedInts) == 0 && len(v.UnsignedRationals) == 0 &&
		len(v.SignedRationals) == 0 && len(v.Floats) == 0 &&
		v.Time.IsZero() && v.NaiveDateTime.IsZero()
}

// ParsedEntry is one fully-resolved IFD entry: its wire header plus its
// decoded value.
type ParsedEntry struct {
	IFD   IFDKind
	Tag   uint16
	Value EntryValue
}

// errUnsupportedFormat is returned internally when a format code is not one
// of the 12 defined types; the caller skips the entry rather than failing
// the whole walk.
var errUnsupportedFormat = fmt.Errorf("exif: unsupported data format")

// decodeValue resolves an entry's value bytes (either the inline 4-byte
// slot or an offset elsewhere in data) and decodes them per h.Format.
func decodeValue(order binary.ByteOrder, data []byte, h EntryHeader) (EntryValue, error) {
	size := h.Size()
	var raw []byte
	if h.Inline() {
		buf := make([]byte, 4)
		order.PutUint32(buf, h.ValueOrOffset)
		raw = buf[:size]
	} else {
		off := int(h.ValueOrOffset)
		if off < 0 || off+size > len(data) {
			return EntryValue{}, fmt.Errorf("exif: entry value out of range")
		}
		raw = data[off : off+size]
	}
	return decodeRaw(order, h.Format, h.Count, raw)
}

func decodeRaw(order binary.ByteOrder, format DataFormat, count uint32, raw []byte) (EntryValue, error) {
	v := EntryValue{Format: format, Count: count}
	switch format {
	case FormatASCII:
		v.Ascii = bytesx.CString(raw)
	case FormatUndefined, FormatUnsignedByte, FormatSignedByte:
		v.Bytes = append([]byte(nil), raw...)
	case FormatUnsignedShort:
		for i := 0; i < int(count); i++ {
			v.UnsignedInts = append(v.UnsignedInts, uint32(order.Uint16(raw[i*2:])))
		}
	case FormatUnsignedLong:
		for i := 0; i < int(count); i++ {
			v.UnsignedInts = append(v.UnsignedInts, order.Uint32(raw[i*4:]))
		}
	case FormatSignedShort:
		for i := 0; i < int(count); i++ {
			v.SignedInts = append(v.SignedInts, int32(int16(order.Uint16(raw[i*2:]))))
		}
	case FormatSignedLong:
		for i := 0; i < int(count); i++ {
			v.SignedInts = append(v.SignedInts, int32(order.Uint32(raw[i*4:])))
		}
	case FormatUnsignedRational:
		for i := 0; i < int(count); i++ {
			num := order.Uint32(raw[i*8:])
			den := order.Uint32(raw[i*8+4:])
			r, err := bytesx.NewRat[uint32](num, den)
			if err != nil {
				continue
			}
			v.UnsignedRationals = append(v.UnsignedRationals, r)
		}
	case FormatSignedRational:
		for i := 0; i < int(count); i++ {
			num := int32(order.Uint32(raw[i*8:]))
			den := int32(order.Uint32(raw[i*8+4:]))
			r, err := bytesx.NewRat[int32](num, den)
			if err != nil {
				continue
			}
			v.SignedRationals = append(v.SignedRationals, r)
		}
	case FormatFloat:
		for i := 0; i < int(count); i++ {
			bits := order.Uint32(raw[i*4:])
			v.Floats = append(v.Floats, float64(math.Float32frombits(bits)))
		}
	case FormatDouble:
		for i := 0; i < int(count); i++ {
			bits := order.Uint64(raw[i*8:])
			v.Floats = append(v.Floats, math.Float64frombits(bits))
		}
	default:
		return EntryValue{}, errUnsupportedFormat
	}
	return v, nil
}

// AsUint returns the first unsigned-int component, if any.
func (v EntryValue) AsUint() (uint32, bool) {
	if len(v.UnsignedInts) == 0 {
		return 0, false
	}
	return v.UnsignedInts[0], true
}

// AsFloat returns the first rational or float component as a float64.
func (v EntryValue) AsFloat() (float64, bool) {
	switch {
	case len(v.UnsignedRationals) > 0:
		return v.UnsignedRationals[0].Float64(), true
	case len(v.SignedRationals) > 0:
		return v.SignedRationals[0].Float64(), true
	case len(v.Floats) > 0:
		return v.Floats[0], true
	}
	return 0, false
}
