// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package compat bridges this module's EXIF engine to
// github.com/rwcarlsen/goexif, for callers migrating from that library who
// want a drop-in *exif.Exif without rewriting their tag-lookup code.
package compat

import (
	"bytes"
	"fmt"

	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/bep/mediameta/jpegseg"
)

// DecodeJPEG locates the EXIF TIFF blob in a JPEG byte stream and decodes
// it with goexif, returning goexif's own *exif.Exif so existing
// goexif.Get(...)-based call sites keep working unchanged.
func DecodeJPEG(data []byte) (*goexif.Exif, error) {
	offset, length, err := jpegseg.FindEXIF(data)
	if err != nil {
		return nil, fmt.Errorf("compat: %w", err)
	}
	return goexif.Decode(bytes.NewReader(data[offset : offset+length]))
}
