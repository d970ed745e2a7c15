// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package driver implements the resumable streaming loop described by
// mediameta's core engine: a parse function returns a signal asking for
// more bytes, a reposition, a hard failure, or a final result; Drive
// consumes those signals and owns all I/O so parser code stays pure and
// testable against in-memory buffers alone.
package driver

import (
	"fmt"
	"io"

	"github.com/bep/mediameta/bufpool"
	"github.com/bep/mediameta/source"
)

const (
	initBufSize = 4096
	minGrow     = 8 * 1024
	maxGrow     = 40 * 1024
)

// Outcome tags a ParseFunc's return as one of four kinds. Ok carries the
// final value (type Result, opaque to the driver); the other three are
// consumed entirely by Drive and never surfaced to a caller.
type Outcome int

const (
	// Ok means parsing finished; Result holds the value.
	Ok Outcome = iota
	// NeedMore means the driver should fill at least N additional bytes
	// before calling parse again.
	NeedMore
	// ClearAndSkip means the driver should discard the buffer, advance the
	// source to AbsolutePos, and install State for the next attempt.
	ClearAndSkip
	// Failed means parsing cannot continue; Err holds the reason.
	Failed
)

// Signal is what a ParseFunc returns on every call.
type Signal struct {
	Outcome Outcome

	// Valid when Outcome == Ok.
	Result any

	// Valid when Outcome == NeedMore: minimum additional byte count.
	N int

	// Valid when Outcome == ClearAndSkip.
	AbsolutePos int64
	State       any

	// Valid when Outcome == Failed.
	Err error
}

// NeedMoreSignal is a convenience constructor.
func NeedMoreSignal(n int) Signal { return Signal{Outcome: NeedMore, N: n} }

// ClearAndSkipSignal is a convenience constructor.
func ClearAndSkipSignal(absolutePos int64, state any) Signal {
	return Signal{Outcome: ClearAndSkip, AbsolutePos: absolutePos, State: state}
}

// FailedSignal is a convenience constructor.
func FailedSignal(err error) Signal { return Signal{Outcome: Failed, Err: err} }

// OkSignal is a convenience constructor.
func OkSignal(result any) Signal { return Signal{Outcome: Ok, Result: result} }

// ParseFunc attempts to parse buf (the live buffered window, starting at
// absolute source position bufStart) carrying the resumption state from
// the previous attempt. It must not perform I/O; all input comes from buf.
type ParseFunc func(buf []byte, bufStart int64, state any) Signal

// ErrNoEnoughBytes is returned when the source is exhausted before the
// parse function could make progress.
var ErrNoEnoughBytes = fmt.Errorf("driver: source exhausted before parse completed")

// session is the mutable state threaded through one Drive call.
type session struct {
	src     source.Source
	buf     *bufpool.Buffer
	bufBase int64 // absolute source position that buf.Bytes()[0] corresponds to
	scratch []byte
}

// Drive runs the resumable parse loop against src, using pool to acquire
// the working buffer. It returns the parse function's final result, or an
// error if the source was exhausted or the parse function reported Failed.
//
// The caller is responsible for releasing the returned buffer (via
// pool.Release or pool.ReleaseShared) once done with any bytes referenced
// by the result — Drive itself only returns the buffer to the caller
// alongside the result so lazy iterators (exif.ExifIter) can keep sharing
// it past this call.
func Drive(src source.Source, pool *bufpool.Pool, parse ParseFunc) (result any, buf *bufpool.Buffer, err error) {
	s := &session{src: src, buf: pool.Acquire()}

	if s.buf.Len() == 0 {
		if err := s.fill(initBufSize); err != nil {
			return nil, s.buf, err
		}
	}

	var state any
	for {
		sig := parse(s.buf.Bytes(), s.bufBase, state)
		switch sig.Outcome {
		case Ok:
			return sig.Result, s.buf, nil
		case ClearAndSkip:
			if err := s.clearAndSkip(sig.AbsolutePos); err != nil {
				return nil, s.buf, err
			}
			state = sig.State
			if s.buf.Len() == 0 {
				if err := s.fill(initBufSize); err != nil {
					return nil, s.buf, err
				}
			}
		case NeedMore:
			toRead := sig.N
			if toRead < minGrow {
				toRead = minGrow
			}
			if toRead > maxGrow {
				toRead = maxGrow
			}
			n, err := s.fillAtMost(toRead)
			if err != nil {
				return nil, s.buf, err
			}
			if n == 0 {
				return nil, s.buf, ErrNoEnoughBytes
			}
		case Failed:
			return nil, s.buf, sig.Err
		default:
			return nil, s.buf, fmt.Errorf("driver: unknown outcome %d", sig.Outcome)
		}
	}
}

// fill grows the buffer by up to n bytes, failing with ErrNoEnoughBytes
// only when the source yields no bytes at all (used for the initial fill
// and for the refill after a skip that emptied the buffer).
func (s *session) fill(n int) error {
	read, err := s.fillAtMost(n)
	if err != nil {
		return err
	}
	if read == 0 {
		return ErrNoEnoughBytes
	}
	return nil
}

// fillAtMost reads up to n bytes from the source, appending whatever it
// gets (which may be less than n on EOF) to the buffer. Returns the number
// of bytes actually read.
func (s *session) fillAtMost(n int) (int, error) {
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	scratch := s.scratch[:n]
	read, err := s.src.Fill(scratch)
	if read > 0 {
		s.buf.Append(scratch[:read])
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return read, err
	}
	return read, nil
}

// clearAndSkip repositions to absolutePos, which is always at or beyond
// the current window start: a local reposition within the window simply
// advances position; a reposition beyond the window clears the buffer and
// asks the source to skip the gap, emulating by read-and-discard when the
// source cannot seek.
func (s *session) clearAndSkip(absolutePos int64) error {
	windowStart := s.bufBase
	windowEnd := s.bufBase + int64(s.buf.Len())

	if absolutePos >= windowStart && absolutePos <= windowEnd {
		s.buf.Advance(int(absolutePos - windowStart))
		s.bufBase = absolutePos
		return nil
	}

	gap := absolutePos - windowEnd
	s.buf.Clear()
	s.bufBase = absolutePos

	if gap <= 0 {
		// Target lies before our current window: only possible for
		// sources that are seekable, since unseekable emulation can only
		// move forward.
		if !s.src.Seekable() {
			return fmt.Errorf("driver: cannot rewind a non-seekable source")
		}
		res, err := s.src.Skip(gap)
		if err != nil {
			return err
		}
		if res.MustEmulate {
			return fmt.Errorf("driver: cannot rewind a non-seekable source")
		}
		return nil
	}

	res, err := s.src.Skip(gap)
	if err != nil {
		return err
	}
	if res.MustEmulate {
		if cap(s.scratch) == 0 {
			s.scratch = make([]byte, 32*1024)
		}
		return source.EmulateSkip(readerFunc(s.src.Fill), gap, s.scratch)
	}
	return nil
}

// readerFunc adapts a Fill-shaped function to io.Reader so it can be passed
// to source.EmulateSkip.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
