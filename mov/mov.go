// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package mov extracts track and item metadata from QuickTime/MP4 movie
// boxes: mvhd/tkhd timing and geometry, the QuickTime meta/keys+meta/ilst
// key-value item list, and the udta location/author text atoms. It builds
// on the isobmff box walker the same way heif and cr3 do.
package mov

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/bep/mediameta/isobmff"
)

// macEpochOffset is the number of seconds between the QuickTime/Mac epoch
// (1904-01-01T00:00:00Z) and the Unix epoch; mvhd/tkhd timestamps are
// seconds since the former.
const macEpochOffset = 2082844800

// MVHD is the subset of a Movie Header box this package extracts.
type MVHD struct {
	CreationTime     time.Time
	ModificationTime time.Time
	Timescale        uint32
	Duration         uint64 // in Timescale units
}

// DurationSeconds returns Duration expressed in seconds.
func (m MVHD) DurationSeconds() float64 {
	if m.Timescale == 0 {
		return 0
	}
	return float64(m.Duration) / float64(m.Timescale)
}

// ErrShortBox is returned when a box body is too short for its declared
// version's fixed fields.
var ErrShortBox = fmt.Errorf("mov: box body too short")

func macTime(sec uint64) time.Time {
	return time.Unix(int64(sec)-macEpochOffset, 0).UTC()
}

// ParseMVHD parses a Movie Header box body (version + flags already
// included, as isobmff.Box.Body delivers it).
func ParseMVHD(body []byte) (MVHD, error) {
	if len(body) < 4 {
		return MVHD{}, ErrShortBox
	}
	version := body[0]
	rest := body[4:]
	if version == 1 {
		if len(rest) < 28 {
			return MVHD{}, ErrShortBox
		}
		ct := binary.BigEndian.Uint64(rest[0:8])
		mt := binary.BigEndian.Uint64(rest[8:16])
		ts := binary.BigEndian.Uint32(rest[16:20])
		dur := binary.BigEndian.Uint64(rest[20:28])
		return MVHD{CreationTime: macTime(ct), ModificationTime: macTime(mt), Timescale: ts, Duration: dur}, nil
	}
	if len(rest) < 16 {
		return MVHD{}, ErrShortBox
	}
	ct := binary.BigEndian.Uint32(rest[0:4])
	mt := binary.BigEndian.Uint32(rest[4:8])
	ts := binary.BigEndian.Uint32(rest[8:12])
	dur := binary.BigEndian.Uint32(rest[12:16])
	return MVHD{
		CreationTime:     macTime(uint64(ct)),
		ModificationTime: macTime(uint64(mt)),
		Timescale:        ts,
		Duration:         uint64(dur),
	}, nil
}

// TKHD is the subset of a Track Header box this package extracts.
type TKHD struct {
	CreationTime time.Time
	Width        float64
	Height       float64
}

// ParseTKHD parses a Track Header box body.
func ParseTKHD(body []byte) (TKHD, error) {
	if len(body) < 4 {
		return TKHD{}, ErrShortBox
	}
	version := body[0]
	rest := body[4:]
	var ct uint64
	var widthOff int
	if version == 1 {
		if len(rest) < 32 {
			return TKHD{}, ErrShortBox
		}
		ct = binary.BigEndian.Uint64(rest[0:8])
		widthOff = 84 // creation/mod(16) + track_id/reserved/duration(16) + reserved/layer/alt_group/volume/reserved(16) + matrix(36)
	} else {
		if len(rest) < 20 {
			return TKHD{}, ErrShortBox
		}
		ct = uint64(binary.BigEndian.Uint32(rest[0:4]))
		widthOff = 72
	}
	if len(rest) < widthOff+8 {
		return TKHD{CreationTime: macTime(ct)}, nil
	}
	width := fixed32(binary.BigEndian.Uint32(rest[widthOff : widthOff+4]))
	height := fixed32(binary.BigEndian.Uint32(rest[widthOff+4 : widthOff+8]))
	return TKHD{CreationTime: macTime(ct), Width: width, Height: height}, nil
}

func fixed32(v uint32) float64 { return float64(v) / 65536.0 }

// Keys is the QuickTime meta/keys table: 1-based key index to reverse-DNS
// or FourCC key name.
type Keys map[int]string

// ParseKeys parses a meta/keys box body with its version+flags word
// already stripped by the caller: body starts at entry_count.
func ParseKeys(body []byte) (Keys, error) {
	if len(body) < 4 {
		return nil, ErrShortBox
	}
	count := binary.BigEndian.Uint32(body[0:4])
	pos := 4
	keys := make(Keys, count)
	for i := 1; i <= int(count); i++ {
		if pos+8 > len(body) {
			break
		}
		size := int(binary.BigEndian.Uint32(body[pos : pos+4]))
		if size < 8 || pos+size > len(body) {
			break
		}
		name := string(body[pos+8 : pos+size])
		keys[i] = name
		pos += size
	}
	return keys, nil
}

// Ilst is the QuickTime meta/ilst item list, keyed by the meta/keys name
// (or a synthetic "#<index>" key when no keys table was available).
type Ilst map[string]string

// ParseIlst parses a meta/ilst box body, whose top-level boxes are each
// named by the 1-based big-endian key index they refer to and contain a
// "data" sub-box (type(4) + locale(4) + payload).
func ParseIlst(body []byte, keys Keys) (Ilst, error) {
	out := make(Ilst)
	remaining := body
	for len(remaining) > 0 {
		h, err := isobmff.ParseHeader(remaining)
		if err != nil {
			break
		}
		total := h.HeaderSize + int(h.BodyLen())
		if total > len(remaining) {
			break
		}
		index := int(binary.BigEndian.Uint32(h.Type[:]))
		itemBody := remaining[h.HeaderSize:total]
		if dataBox, ok := isobmff.FindBoxByType(itemBody, "data"); ok && len(dataBox.Body) >= 8 {
			name := keys[index]
			if name == "" {
				name = fmt.Sprintf("#%d", index)
			}
			out[name] = string(dataBox.Body[8:])
		}
		remaining = remaining[total:]
	}
	return out, nil
}

// isoUndPrefix is the packed ISO-639-2 "und" (undetermined) language code
// QuickTime prepends, as raw bytes, to udta/auth free-text atoms.
var isoUndPrefix = []byte{0x55, 0xC4}

// StripLangPrefix removes a leading packed ISO-639-2 "und" code from s
// when present, returning s unchanged otherwise. QuickTime's udta/auth
// (author) atom stores its payload this way.
func StripLangPrefix(s string) string {
	if !strings.HasPrefix(s, string(isoUndPrefix)) {
		return s
	}
	return strings.TrimPrefix(s[len(isoUndPrefix):], " ")
}

// NormalizeOffset rewrites a short ISO-8601 UTC offset suffix ("+08" or
// "+0800") to the colon-separated RFC 3339 form ("+08:00") RepairISO8601
// and the standard library both expect. Strings that already carry a
// colon-separated offset, or no offset at all, pass through unchanged.
func NormalizeOffset(s string) string {
	n := len(s)
	// An offset can only follow the time of day; a bare date's "-DD" is
	// not one.
	t := strings.IndexAny(s, "T ")
	if t < 0 {
		return s
	}
	if n >= 3 && n-3 > t && (s[n-3] == '+' || s[n-3] == '-') {
		return s + ":00"
	}
	if n >= 5 && n-5 > t && (s[n-5] == '+' || s[n-5] == '-') && isDigits(s[n-4:]) {
		return s[:n-2] + ":" + s[n-2:]
	}
	return s
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RepairISO8601 parses a timestamp string that may be missing an explicit
// timezone designator, or carry a short (non-colon-separated) one, as
// QuickTime's udta/©day and similar text atoms sometimes store it, and
// returns the equivalent time. A missing offset is assumed UTC.
func RepairISO8601(s string) (time.Time, error) {
	s = NormalizeOffset(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("mov: unrecognized timestamp %q", s)
}
