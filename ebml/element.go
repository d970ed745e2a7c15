// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package ebml walks Extensible Binary Meta Language elements, the
// container format Matroska/WebM use, following the variable-length
// integer ID/size encoding the isobmff box walker's fixed-width headers
// don't need.
package ebml

import (
	"fmt"

	"github.com/bep/mediameta/bytesx"
)

// Element IDs this module cares about. Matroska defines many more; only
// the ones needed to confirm DocType and follow SeekHead to Info/Tracks
// are listed here, per spec.md's "simpler variant of the same pattern"
// scoping for this component.
const (
	IDEBMLHeader  uint64 = 0x1A45DFA3
	IDEBMLDocType uint64 = 0x4282

	IDSegment  uint64 = 0x18538067
	IDSeekHead uint64 = 0x114D9B74
	IDInfo     uint64 = 0x1549A966
	IDTracks   uint64 = 0x1654AE6B
	IDCluster  uint64 = 0x1F43B675
	IDCues     uint64 = 0x1C53BB6B

	IDSeek         uint64 = 0x4DBB
	IDSeekID       uint64 = 0x53AB
	IDSeekPosition uint64 = 0x53AC

	IDCRC32 uint64 = 0xBF
	IDVoid  uint64 = 0xEC

	// InvalidElementID marks an as-yet-unresolved seek entry, matching
	// the 0xFF sentinel the original uses (an otherwise invalid VINT id).
	InvalidElementID uint64 = 0xFF
)

// Header is a parsed element ID + data size pair.
type Header struct {
	ID       uint64
	DataSize int
}

// ErrNeedMore signals the caller must supply more buffered bytes before an
// element header (or its declared body) can be read.
var ErrNeedMore = fmt.Errorf("ebml: need more bytes")

// ErrNotEBML is returned when the stream does not begin with the EBML
// header element ID.
var ErrNotEBML = fmt.Errorf("ebml: missing EBML header element")

// NextHeader reads one element header (ID VINT with marker kept, size
// VINT with marker stripped) from the start of buf.
func NextHeader(buf []byte) (h Header, consumed int, err error) {
	id, idWidth, err := bytesx.VInt(buf, true)
	if err != nil {
		if err == bytesx.ErrVIntTooWide {
			return Header{}, 0, err
		}
		return Header{}, 0, ErrNeedMore
	}
	if idWidth > len(buf) {
		return Header{}, 0, ErrNeedMore
	}
	rest := buf[idWidth:]
	size, sizeWidth, err := bytesx.VInt(rest, false)
	if err != nil {
		return Header{}, 0, ErrNeedMore
	}
	return Header{ID: id, DataSize: int(size)}, idWidth + sizeWidth, nil
}

// ParseDocType parses the leading EBML header element from buf and
// returns its DocType string (e.g. "webm" or "matroska") along with the
// number of bytes consumed.
func ParseDocType(buf []byte) (docType string, consumed int, err error) {
	h, headerLen, err := NextHeader(buf)
	if err != nil {
		return "", 0, err
	}
	if h.ID != IDEBMLHeader {
		return "", 0, ErrNotEBML
	}
	total := headerLen + h.DataSize
	if total > len(buf) {
		return "", 0, ErrNeedMore
	}
	body := buf[headerLen:total]

	for len(body) > 0 {
		ch, n, err := NextHeader(body)
		if err != nil {
			break
		}
		if ch.ID == IDEBMLDocType {
			if n+ch.DataSize > len(body) {
				break
			}
			docType = string(body[n : n+ch.DataSize])
			break
		}
		if n+ch.DataSize > len(body) {
			break
		}
		body = body[n+ch.DataSize:]
	}
	return docType, total, nil
}
