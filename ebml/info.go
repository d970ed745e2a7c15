// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package ebml

import "math"

const (
	idTimecodeScale uint64 = 0x2AD7B1
	idDuration      uint64 = 0x4489
)

// SegmentInfo is the subset of a Segment's Info element this package
// extracts: the tick duration in nanoseconds and the track's total
// duration in ticks.
type SegmentInfo struct {
	TimecodeScale uint64 // nanoseconds per tick, defaults to 1,000,000 if absent
	Duration      float64
}

// DurationSeconds converts Duration (in ticks) to seconds using
// TimecodeScale.
func (s SegmentInfo) DurationSeconds() float64 {
	scale := s.TimecodeScale
	if scale == 0 {
		scale = 1_000_000
	}
	return s.Duration * float64(scale) / 1e9
}

// ParseInfo parses a Segment's Info element body.
func ParseInfo(body []byte) SegmentInfo {
	info := SegmentInfo{TimecodeScale: 1_000_000}
	pos := 0
	for pos < len(body) {
		h, n, err := NextHeader(body[pos:])
		if err != nil {
			break
		}
		end := pos + n + h.DataSize
		if end > len(body) {
			break
		}
		val := body[pos+n : end]
		switch h.ID {
		case idTimecodeScale:
			info.TimecodeScale = beUint64(val)
		case idDuration:
			info.Duration = beFloat(val)
		}
		pos = end
	}
	return info
}

func beFloat(b []byte) float64 {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(beUint32(b)))
	case 8:
		return math.Float64frombits(beUint64(b))
	default:
		return 0
	}
}
