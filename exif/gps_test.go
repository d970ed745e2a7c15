// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package exif

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFormatISO6709(t *testing.T) {
	c := qt.New(t)

	c.Run("forbidden city", func(c *qt.C) {
		g := GPSInfo{Latitude: 39.91667, Longitude: 116.39083}
		c.Assert(FormatISO6709(g), qt.Equals, "+39.91667+116.39083/")
	})

	c.Run("statue of liberty", func(c *qt.C) {
		g := GPSInfo{Latitude: 40.68917, Longitude: -74.04444}
		c.Assert(FormatISO6709(g), qt.Equals, "+40.68917-074.04444/")
	})
}

func TestParseISO6709RoundTrip(t *testing.T) {
	c := qt.New(t)
	g := GPSInfo{Latitude: 40.68917, Longitude: -74.04444}
	s := FormatISO6709(g)
	got, err := ParseISO6709(s)
	c.Assert(err, qt.IsNil)
	c.Assert(math.Abs(got.Latitude-g.Latitude) < 0.0001, qt.IsTrue)
	c.Assert(math.Abs(got.Longitude-g.Longitude) < 0.0001, qt.IsTrue)
}

func TestGPSRawAssembleIncomplete(t *testing.T) {
	c := qt.New(t)
	var raw gpsRaw
	_, err := raw.assemble()
	c.Assert(err, qt.Equals, ErrIncompleteGPSInfo)
}
