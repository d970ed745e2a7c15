// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package driver

import (
	"bytes"
	"io"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/bep/mediameta/bufpool"
	"github.com/bep/mediameta/source"
)

func TestDriveSucceedsImmediately(t *testing.T) {
	c := qt.New(t)
	pool := bufpool.New()
	src := source.New(bytes.NewReader([]byte("0123456789")))

	calls := 0
	result, buf, err := Drive(src, pool, func(b []byte, start int64, state any) Signal {
		calls++
		if len(b) < 4 {
			return NeedMoreSignal(4)
		}
		return OkSignal(string(b[:4]))
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result, qt.Equals, "0123")
	c.Assert(calls, qt.Equals, 1)
	pool.Release(buf)
}

func TestDriveGrowsOnNeedMore(t *testing.T) {
	c := qt.New(t)
	pool := bufpool.New()
	src := source.New(bytes.NewReader(bytes.Repeat([]byte("x"), 50000)))

	result, buf, err := Drive(src, pool, func(b []byte, start int64, state any) Signal {
		if len(b) < 20000 {
			return NeedMoreSignal(20000 - len(b))
		}
		return OkSignal(len(b))
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.(int) >= 20000, qt.IsTrue)
	pool.Release(buf)
}

func TestDriveClearAndSkipWithinWindow(t *testing.T) {
	c := qt.New(t)
	pool := bufpool.New()
	src := source.New(bytes.NewReader([]byte("HELLO-WORLD-TAIL")))

	attempt := 0
	result, buf, err := Drive(src, pool, func(b []byte, start int64, state any) Signal {
		attempt++
		if attempt == 1 {
			// Skip past "HELLO-" to land on "WORLD", still inside the buffer.
			return ClearAndSkipSignal(start+6, "skipped")
		}
		if len(b) < 5 {
			return NeedMoreSignal(5)
		}
		return OkSignal(string(b[:5]))
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result, qt.Equals, "WORLD")
	pool.Release(buf)
}

func TestDriveFailedPropagates(t *testing.T) {
	c := qt.New(t)
	pool := bufpool.New()
	src := source.New(bytes.NewReader([]byte("junk")))

	wantErr := io.ErrUnexpectedEOF
	_, buf, err := Drive(src, pool, func(b []byte, start int64, state any) Signal {
		return FailedSignal(wantErr)
	})
	c.Assert(err, qt.Equals, wantErr)
	pool.Release(buf)
}

func TestDriveNoEnoughBytes(t *testing.T) {
	c := qt.New(t)
	pool := bufpool.New()
	src := source.New(bytes.NewReader([]byte("short")))

	_, buf, err := Drive(src, pool, func(b []byte, start int64, state any) Signal {
		return NeedMoreSignal(1 << 20)
	})
	c.Assert(err, qt.Equals, ErrNoEnoughBytes)
	pool.Release(buf)
}
