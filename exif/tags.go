// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import "github.com/bep/mediameta/internal/imageexif"

// extraTagNames names the two sub-IFD pointer tags. NameFor and TagNames
// give it precedence over imageexif.ExifFields (which is keyed without
// regard to which IFD a tag number came from, and lists these two as well).
var extraTagNames = map[uint16]string{
	0x8769: "ExifOffset",
	0x8825: "GPSInfo",
}

// NameFor returns the human-readable field name for tag within the given
// IFD, or "" if unrecognized. GPS tag numbers collide with low-numbered
// IFD0/Exif tag numbers (e.g. 0x0001 is InteropIndex in the Exif table but
// GPSLatitudeRef in GPS), so the lookup is namespaced by IFDKind rather
// than a single flat map.
func NameFor(ifd IFDKind, tag uint16) string {
	if ifd == IFDGPS {
		if name, ok := imageexif.ExifFieldsGPS[tag]; ok {
			return name
		}
		return ""
	}
	if name, ok := extraTagNames[tag]; ok {
		return name
	}
	if name, ok := imageexif.ExifFields[tag]; ok {
		return name
	}
	return ""
}

// TagNames is the flat IFD0/Exif tag table, kept for callers that don't
// care about IFD disambiguation and accept that a handful of low-numbered
// GPS tags won't resolve through it; NameFor is the namespace-correct
// alternative.
var TagNames = buildFlatTagNames()

func buildFlatTagNames() map[uint16]string {
	out := make(map[uint16]string, len(imageexif.ExifFields)+len(extraTagNames))
	for k, v := range imageexif.ExifFields {
		out[k] = v
	}
	for k, v := range extraTagNames {
		out[k] = v
	}
	return out
}
