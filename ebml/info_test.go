// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package ebml

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseInfoDefaults(t *testing.T) {
	c := qt.New(t)
	info := ParseInfo(nil)
	c.Assert(info.TimecodeScale, qt.Equals, uint64(1_000_000))
	c.Assert(info.DurationSeconds(), qt.Equals, 0.0)
}

func TestParseInfoWithDuration(t *testing.T) {
	c := qt.New(t)
	scaleElem := element(vint(3, idTimecodeScale), vint(1, 3), []byte{0x0F, 0x42, 0x40}) // 1,000,000
	durVal := []byte{0x40, 0x9F, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00}                      // float64(2000.0)
	durElem := element(vint(2, idDuration), vint(1, 8), durVal)
	body := append(append([]byte{}, scaleElem...), durElem...)

	info := ParseInfo(body)
	c.Assert(info.TimecodeScale, qt.Equals, uint64(1_000_000))
	c.Assert(info.DurationSeconds(), qt.Equals, 2.0)
}
