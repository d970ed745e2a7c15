// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package isobmff walks ISO Base Media File Format boxes (the nested TLV
// container shared by MP4, QuickTime, HEIF and CR3), lifted out of the
// per-format decoders so HEIF, CR3, MOV and MP4 extraction can all share
// one walker, the way the teacher's HEIF decoder's readBox closures are
// generalized here into free functions.
package isobmff

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// MaxBodyLen caps the box payload length downstream allocators are asked
// to trust.
const MaxBodyLen = 2000 * 1024 * 1024

// Header is a parsed ISO-BMFF box header.
type Header struct {
	Type       [4]byte
	Size       uint64 // total box size, including the header
	HeaderSize int    // 8 for the ordinary case, 16 when Size used the extended 64-bit form
}

// TypeString returns the box type as a 4-character string.
func (h Header) TypeString() string { return string(h.Type[:]) }

// BodyLen returns the payload length, Size minus HeaderSize.
func (h Header) BodyLen() uint64 { return h.Size - uint64(h.HeaderSize) }

// FullHeader is a Header followed by the version+flags word every "full
// box" (fullbox) carries.
type FullHeader struct {
	Header
	Version uint8
	Flags   uint32 // 24-bit value stored in the low 3 bytes
}

// ErrShortBuffer is returned when buf does not contain a complete header.
var ErrShortBuffer = fmt.Errorf("isobmff: buffer too short for box header")

// ErrBoxTooSmall is returned when box_size < header_size.
var ErrBoxTooSmall = fmt.Errorf("isobmff: box size smaller than header size")

// ErrBodyTooLarge is returned when a box body would exceed MaxBodyLen.
var ErrBodyTooLarge = fmt.Errorf("isobmff: box body exceeds maximum allowed length")

// ParseHeader reads a box header from the start of buf. It returns
// ErrShortBuffer (a condition the driver should treat as NeedMore, not a
// hard failure) when buf is too short to contain even the ordinary 8-byte
// header, or the extended 16-byte header when size==1 is signaled.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < 8 {
		return Header{}, ErrShortBuffer
	}
	size32 := binary.BigEndian.Uint32(buf[0:4])
	var h Header
	copy(h.Type[:], buf[4:8])

	switch size32 {
	case 1:
		if len(buf) < 16 {
			return Header{}, ErrShortBuffer
		}
		h.Size = binary.BigEndian.Uint64(buf[8:16])
		h.HeaderSize = 16
	case 0:
		// size == 0 means "box extends to end of file"; callers that need
		// this must special-case it using the source's known length. We
		// surface it as Size == 0 and let the caller decide.
		h.Size = 0
		h.HeaderSize = 8
	default:
		h.Size = uint64(size32)
		h.HeaderSize = 8
	}

	if h.Size != 0 && h.Size < uint64(h.HeaderSize) {
		return Header{}, ErrBoxTooSmall
	}
	if h.Size > MaxBodyLen {
		return Header{}, ErrBodyTooLarge
	}
	return h, nil
}

// ParseFullHeader reads a Header followed by the version+flags word. buf
// must start at the box header and contain at least HeaderSize+4 bytes.
func ParseFullHeader(buf []byte) (FullHeader, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return FullHeader{}, err
	}
	if len(buf) < h.HeaderSize+4 {
		return FullHeader{}, ErrShortBuffer
	}
	vf := binary.BigEndian.Uint32(buf[h.HeaderSize : h.HeaderSize+4])
	return FullHeader{
		Header:  h,
		Version: uint8(vf >> 24),
		Flags:   vf & 0x00FFFFFF,
	}, nil
}

// Box is a fully materialized box: its header plus the raw body bytes,
// all drawn from an in-memory buffer. Unlike Header (a pure parse result),
// Box is only constructed once the body is known to be present in buf.
type Box struct {
	Header
	Body []byte // buf[HeaderSize:Size], relative to the box's own start
}

// Predicate is called once per top-level box during WalkWhile. Returning
// false stops the walk; the box for which it returned false is reported
// back to the caller so callers can resume from it (e.g. to special-case a
// trailing `mdat` whose body they don't want materialized in memory).
type Predicate func(b Box) bool

// WalkWhile walks sibling boxes starting at the beginning of buf, calling
// predicate for each fully-buffered box. It stops at the first box for
// which predicate returns false, or when there is not enough buffered data
// left to read the next header (reported via ok=false, offset pointing at
// the incomplete box so the caller can ask the driver for more bytes there).
//
// Every iteration strictly reduces the remaining slice, satisfying the
// mandatory "cursor advances strictly" guard.
func WalkWhile(buf []byte, predicate Predicate) (remaining []byte, lastOffset int, ok bool) {
	offset := 0
	for len(buf) > 0 {
		h, err := ParseHeader(buf)
		if err != nil {
			return buf, offset, false
		}
		size := h.Size
		if size == 0 {
			size = uint64(len(buf)) // box extends to end of the buffered region
		}
		if uint64(len(buf)) < size {
			return buf, offset, false
		}
		box := Box{Header: h, Body: buf[h.HeaderSize:size]}
		if !predicate(box) {
			return buf, offset, true
		}
		buf = buf[size:]
		offset += int(size)
	}
	return buf, offset, true
}

// FindBox descends a "/"-separated path of box type names (e.g.
// "meta/iinf") starting from the top-level boxes in buf, returning the
// first matching box at the final path segment. Each intermediate segment
// descends into the first box of that type; "fail slow" below
// the first level means a parse error deeper in the tree does not abort
// box collection at shallower levels, matching the nested-scan policy.
func FindBox(buf []byte, path string) (Box, bool) {
	parts := strings.Split(path, "/")
	cur := buf
	var found Box
	for i, want := range parts {
		found = Box{}
		matched := false
		isobmffWalk(cur, func(b Box) bool {
			if b.TypeString() == want {
				found = b
				matched = true
				return false
			}
			return true
		})
		if !matched {
			return Box{}, false
		}
		if i == len(parts)-1 {
			return found, true
		}
		cur = found.Body
	}
	return Box{}, false
}

// FindBoxByType scans only the top level of buf for a box of the given
// type, ignoring (fail-slow) any box it cannot fully parse along the way.
func FindBoxByType(buf []byte, boxType string) (Box, bool) {
	var found Box
	matched := false
	isobmffWalk(buf, func(b Box) bool {
		if b.TypeString() == boxType {
			found = b
			matched = true
			return false
		}
		return true
	})
	return found, matched
}

// isobmffWalk is WalkWhile's fail-slow sibling used for nested scans: a
// box it cannot parse (incomplete or malformed) simply ends the walk
// instead of propagating an error, so already-collected boxes remain
// usable.
func isobmffWalk(buf []byte, predicate Predicate) {
	for len(buf) > 0 {
		h, err := ParseHeader(buf)
		if err != nil {
			return
		}
		size := h.Size
		if size == 0 {
			size = uint64(len(buf))
		}
		if uint64(len(buf)) < size {
			return
		}
		box := Box{Header: h, Body: buf[h.HeaderSize:size]}
		if !predicate(box) {
			return
		}
		buf = buf[size:]
	}
}
