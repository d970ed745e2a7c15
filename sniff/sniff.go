// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package sniff classifies a byte stream's container family from its first
// ~128 bytes, without ever looking at a filename.
package sniff

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format is the family a Source was sniffed as.
type Format int

const (
	Unknown Format = iota
	JPEG
	HEIF
	CR3
	QuickTime
	MP4
	TIFF
	RAF
	EBML
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "JPEG"
	case HEIF:
		return "HEIF"
	case CR3:
		return "CR3"
	case QuickTime:
		return "QuickTime"
	case MP4:
		return "MP4"
	case TIFF:
		return "TIFF"
	case RAF:
		return "RAF"
	case EBML:
		return "EBML"
	default:
		return "Unknown"
	}
}

// ErrUnrecognizedFileFormat is returned when none of the known signatures
// match.
var ErrUnrecognizedFileFormat = fmt.Errorf("sniff: unrecognized file format")

var (
	rafMagic      = []byte("FUJIFILMCCD-RAW ")
	ebmlHeaderID  = []byte{0x1A, 0x45, 0xDF, 0xA3}
	tiffMagicLE = []byte("II*\x00")
	tiffMagicBE = []byte("MM\x00*")
)

var heifBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "hevx": true,
	"mif1": true, "miaf": true, "msf1": true, "avif": true, "avis": true,
}

var qtBrands = map[string]bool{
	"qt  ": true, "mqt ": true,
}

var mp4Brands = map[string]bool{
	"mp41": true, "mp42": true, "isom": true, "iso2": true,
	"3gp4": true, "3gp5": true, "3gp6": true, "avc1": true, "M4A ": true,
	"M4V ": true, "mmp4": true, "mp71": true,
}

const crxBrand = "crx "

// Sniff classifies buf, which must contain the first ~128 bytes of the
// stream (more is fine; less may produce a false Unknown for ftyp-based
// formats whose brand list extends past a short prefix).
func Sniff(buf []byte) (Format, error) {
	if len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xD8 {
		return JPEG, nil
	}
	if bytes.HasPrefix(buf, rafMagic) {
		return RAF, nil
	}
	if len(buf) >= 4 && (bytes.Equal(buf[:4], tiffMagicLE) || bytes.Equal(buf[:4], tiffMagicBE)) {
		return TIFF, nil
	}
	if len(buf) >= 4 && bytes.Equal(buf[:4], ebmlHeaderID) {
		return EBML, nil
	}
	if f, ok := sniffISOBMFF(buf); ok {
		return f, nil
	}
	return Unknown, ErrUnrecognizedFileFormat
}

// sniffISOBMFF inspects the first box. A real `ftyp` box carries a major
// brand plus a list of compatible brands; in its absence a lone `wide` box
// (as emitted by some HEIC-embedded .mov variants) is itself evidence of
// QuickTime, per spec.
func sniffISOBMFF(buf []byte) (Format, bool) {
	if len(buf) < 8 {
		return Unknown, false
	}
	size := binary.BigEndian.Uint32(buf[0:4])
	boxType := string(buf[4:8])

	body := buf[8:]
	if size == 1 {
		if len(buf) < 16 {
			return Unknown, false
		}
		body = buf[16:]
	}

	switch boxType {
	case "ftyp":
		if len(body) < 8 {
			return Unknown, false
		}
		majorBrand := string(body[0:4])
		brands := []string{majorBrand}
		for i := 8; i+4 <= len(body); i += 4 {
			brands = append(brands, string(body[i:i+4]))
		}
		for _, b := range brands {
			if b == crxBrand {
				return CR3, true
			}
		}
		for _, b := range brands {
			if heifBrands[b] {
				return HEIF, true
			}
		}
		for _, b := range brands {
			if qtBrands[b] {
				return QuickTime, true
			}
		}
		for _, b := range brands {
			if mp4Brands[b] {
				return MP4, true
			}
		}
		return Unknown, false
	case "wide":
		return QuickTime, true
	default:
		return Unknown, false
	}
}
