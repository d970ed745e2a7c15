// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package jpegseg walks JPEG APPn segments looking for the APP1 segment
// carrying the "Exif\0\0" identifier, mirroring the teacher's JPEG decoder
// marker loop but returning an offset/length pair instead of decoding
// inline.
package jpegseg

import (
	"encoding/binary"
	"fmt"
)

const (
	markerSOI      = 0xFFD8
	markerSOS      = 0xFFDA
	markerAPP1     = 0xFFE1
	exifHeaderSize = 6 // "Exif\0\0"
)

var exifIdent = [6]byte{'E', 'x', 'i', 'f', 0, 0}

// ErrNotJPEG is returned when the buffer does not start with the SOI
// marker.
var ErrNotJPEG = fmt.Errorf("jpegseg: missing SOI marker")

// ErrNoEXIF is returned when SOS is reached with no APP1/Exif segment
// found.
var ErrNoEXIF = fmt.Errorf("jpegseg: no Exif segment before start-of-scan")

// ErrNeedMore signals the caller needs more buffered bytes to keep
// scanning; it carries no specific byte count, since JPEG segments are
// small (callers typically ask the driver for one more min-grow chunk).
var ErrNeedMore = fmt.Errorf("jpegseg: need more buffered bytes")

// FindEXIF scans buf (which must start at the JPEG SOI marker) for the
// first APP1 segment whose payload begins with "Exif\0\0", returning the
// byte range of the TIFF stream that follows the identifier, relative to
// the start of buf. It stops and returns ErrNoEXIF upon reaching SOS.
func FindEXIF(buf []byte) (offset, length int, err error) {
	if len(buf) < 2 || binary.BigEndian.Uint16(buf[:2]) != markerSOI {
		return 0, 0, ErrNotJPEG
	}
	pos := 2
	for {
		if pos+2 > len(buf) {
			return 0, 0, ErrNeedMore
		}
		marker := binary.BigEndian.Uint16(buf[pos : pos+2])
		pos += 2
		if marker == 0 {
			continue
		}
		if marker == markerSOS {
			return 0, 0, ErrNoEXIF
		}
		if pos+2 > len(buf) {
			return 0, 0, ErrNeedMore
		}
		segLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
		if segLen < 2 {
			return 0, 0, fmt.Errorf("jpegseg: invalid segment length %d", segLen)
		}
		bodyLen := segLen - 2
		bodyStart := pos + 2
		if bodyStart+bodyLen > len(buf) {
			return 0, 0, ErrNeedMore
		}

		if marker == markerAPP1 && bodyLen >= exifHeaderSize {
			body := buf[bodyStart : bodyStart+bodyLen]
			if string(body[:exifHeaderSize]) == string(exifIdent[:]) {
				return bodyStart + exifHeaderSize, bodyLen - exifHeaderSize, nil
			}
		}

		pos = bodyStart + bodyLen
	}
}
