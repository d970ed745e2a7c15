// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNameForDisambiguatesGPSFromIFD0(t *testing.T) {
	c := qt.New(t)
	c.Assert(NameFor(IFD0, 0x010F), qt.Equals, "Make")
	c.Assert(NameFor(IFDGPS, 0x0002), qt.Equals, "GPSLatitude")
	// 0x0001 means different things depending on which IFD it came from.
	c.Assert(NameFor(IFDGPS, 0x0001), qt.Equals, "GPSLatitudeRef")
	c.Assert(NameFor(IFD0, 0x8769), qt.Equals, "ExifOffset")
	c.Assert(NameFor(IFD0, 0x8825), qt.Equals, "GPSInfo")
}

func TestNameForUnknownTag(t *testing.T) {
	c := qt.New(t)
	c.Assert(NameFor(IFDExif, 0xFFFF), qt.Equals, "")
}

func TestFlatTagNamesCoversCommonTags(t *testing.T) {
	c := qt.New(t)
	c.Assert(TagNames[0x010F], qt.Equals, "Make")
	c.Assert(TagNames[0x8769], qt.Equals, "ExifOffset")
}
