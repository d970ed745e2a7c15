// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package source wraps a caller-supplied reader and records whether it
// supports seeking, exposing the uniform fill/skip contract the streaming
// driver relies on so parser code never has to branch on the concrete
// reader type.
package source

import "io"

// SkipResult reports how a Skip request was satisfied.
type SkipResult struct {
	// DoneViaSeek is true when the underlying reader repositioned without
	// the driver needing to read-and-discard the skipped bytes.
	DoneViaSeek bool
	// MustEmulate is true when the caller (the streaming driver) must
	// still read and discard n bytes itself, because the source cannot
	// seek.
	MustEmulate bool
}

// Source is a byte stream plus a capability flag. The seekable variant can
// reposition forward cheaply; the unseekable variant reports that skip
// must be emulated by reading and discarding.
type Source interface {
	// Fill reads up to len(p) bytes into p, like io.Reader.
	Fill(p []byte) (n int, err error)
	// Skip advances the source by n bytes, either by seeking or, for
	// unseekable sources, by signaling that the caller must emulate it.
	Skip(n int64) (SkipResult, error)
	// Seekable reports whether this source supports cheap repositioning.
	Seekable() bool
}

// seekable wraps an io.ReadSeeker.
type seekable struct {
	r io.ReadSeeker
}

// unseekable wraps a plain io.Reader.
type unseekable struct {
	r io.Reader
}

// New wraps r. If r also implements io.Seeker, the returned Source reports
// Seekable() == true and Skip repositions directly; otherwise Skip reports
// MustEmulate so the driver reads-and-discards.
func New(r io.Reader) Source {
	if rs, ok := r.(io.ReadSeeker); ok {
		return &seekable{r: rs}
	}
	return &unseekable{r: r}
}

func (s *seekable) Fill(p []byte) (int, error) { return io.ReadFull(s.r, p) }

func (s *seekable) Seekable() bool { return true }

func (s *seekable) Skip(n int64) (SkipResult, error) {
	if n == 0 {
		return SkipResult{DoneViaSeek: true}, nil
	}
	if _, err := s.r.Seek(n, io.SeekCurrent); err != nil {
		return SkipResult{}, err
	}
	return SkipResult{DoneViaSeek: true}, nil
}

func (u *unseekable) Fill(p []byte) (int, error) { return io.ReadFull(u.r, p) }

func (u *unseekable) Seekable() bool { return false }

func (u *unseekable) Skip(n int64) (SkipResult, error) {
	return SkipResult{MustEmulate: true}, nil
}

// EmulateSkip reads and discards n bytes from r using scratch as a reusable
// buffer, for sources that report MustEmulate. It is a free function
// (rather than a Source method) because the driver, not the source, owns
// the scratch buffer used to perform the discard.
func EmulateSkip(r io.Reader, n int64, scratch []byte) error {
	if len(scratch) == 0 {
		scratch = make([]byte, 32*1024)
	}
	for n > 0 {
		chunk := int64(len(scratch))
		if chunk > n {
			chunk = n
		}
		read, err := io.ReadFull(r, scratch[:chunk])
		n -= int64(read)
		if err != nil {
			return err
		}
	}
	return nil
}
