// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package mediameta extracts EXIF metadata from still images (JPEG, HEIF,
// TIFF, RAF, Canon CR3) and track metadata from video/audio containers
// (MP4, QuickTime, 3GP, Matroska, WebM) behind one entry point, dispatching
// on a magic-byte sniff of the stream's leading bytes.
package mediameta

import (
	"fmt"
	"io"

	"github.com/bep/mediameta/bufpool"
	"github.com/bep/mediameta/cr3"
	"github.com/bep/mediameta/driver"
	"github.com/bep/mediameta/ebml"
	"github.com/bep/mediameta/exif"
	"github.com/bep/mediameta/heif"
	"github.com/bep/mediameta/isobmff"
	"github.com/bep/mediameta/jpegseg"
	"github.com/bep/mediameta/mov"
	"github.com/bep/mediameta/sniff"
	"github.com/bep/mediameta/source"
	"github.com/bep/mediameta/trackinfo"
)

// Options configures a Parse call.
type Options struct {
	// MaxMetaBytes bounds how much of the stream the driver will buffer
	// while searching for the metadata-bearing region (the top-level
	// moov/meta box or the JPEG APP1 segment). For TIFF the region is only
	// the 8-byte header: the IFDs are read from whatever was buffered when
	// the header became available, and IFDs or values lying beyond that
	// are not read. It guards against unbounded reads on a stream that
	// never yields the structure the sniffed format promises.
	MaxMetaBytes int64

	// Pool supplies the buffer pool the driver draws from. A nil Pool
	// uses a package-level default, matching the teacher's package-level
	// sync.Pool convention.
	Pool *bufpool.Pool
}

const defaultMaxMetaBytes = 64 * 1024 * 1024

var defaultPool = bufpool.New()

func (o Options) pool() *bufpool.Pool {
	if o.Pool != nil {
		return o.Pool
	}
	return defaultPool
}

func (o Options) maxMetaBytes() int64 {
	if o.MaxMetaBytes > 0 {
		return o.MaxMetaBytes
	}
	return defaultMaxMetaBytes
}

// Result is the outcome of a Parse call: exactly one of Exif or Tracks is
// populated, selected by Format.
type Result struct {
	Format Format
	Exif   *exif.ExifIter
	Tracks trackinfo.TrackInfo
}

// Format mirrors sniff.Format at the package boundary so callers don't
// need to import the sniff package for the common case.
type Format = sniff.Format

// ErrUnsupportedFormat is returned when the sniffed format has no decoder
// wired up (reached only for formats sniff.Sniff can name but this
// package's dispatch table does not yet cover).
var ErrUnsupportedFormat = fmt.Errorf("mediameta: unsupported format")

// driverState carries the in-progress scan across resumptions of the
// growing-buffer parse loop.
type driverState struct {
	format    sniff.Format
	formatSet bool
}

// Parse reads from r, sniffs the container format, and extracts its
// metadata. r need not be seekable: the driver only reads forward and
// never skips, so every byte up to the end of the metadata region
// (including any `mdat`/`idat` payload in front of it) is buffered,
// bounded by Options.MaxMetaBytes.
func Parse(r io.Reader, opts Options) (*Result, error) {
	src := source.New(r)
	pool := opts.pool()
	maxBytes := opts.maxMetaBytes()

	// st is captured by the closure rather than threaded through the
	// driver's resumption state, since that channel is only preserved
	// across a ClearAndSkip reposition; a plain NeedMore retry simply
	// calls parse again with a larger window over the same closure.
	st := &driverState{}
	raw, buf, err := driver.Drive(src, pool, func(data []byte, bufStart int64, state any) driver.Signal {
		if !st.formatSet {
			f, err := sniff.Sniff(data)
			if err != nil {
				if int64(len(data)) >= maxBytes {
					return driver.FailedSignal(sniff.ErrUnrecognizedFileFormat)
				}
				return driver.NeedMoreSignal(4096)
			}
			st.format = f
			st.formatSet = true
		}
		ok, needMore := regionReady(st.format, data)
		if ok {
			return driver.OkSignal(st.format)
		}
		if int64(len(data)) >= maxBytes {
			return driver.FailedSignal(fmt.Errorf("mediameta: metadata region exceeds %d bytes", maxBytes))
		}
		return driver.NeedMoreSignal(needMore)
	})
	if err != nil {
		return nil, err
	}
	format := raw.(sniff.Format)
	data := buf.Bytes()
	defer pool.Release(buf)

	switch format {
	case sniff.JPEG:
		return parseJPEG(data)
	case sniff.TIFF, sniff.RAF:
		return parseTIFFContainer(format, data)
	case sniff.HEIF, sniff.CR3:
		return parseISOBMFFStill(format, data)
	case sniff.QuickTime, sniff.MP4:
		return parseMovie(format, data)
	case sniff.EBML:
		return parseWebm(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// regionReady reports whether data already contains the full region the
// given format's decoder needs, and if not, how many additional bytes to
// ask for next.
func regionReady(format sniff.Format, data []byte) (ok bool, needMore int) {
	switch format {
	case sniff.JPEG:
		_, _, err := jpegseg.FindEXIF(data)
		if err == nil || err == jpegseg.ErrNoEXIF {
			return true, 0
		}
		return false, 4096
	case sniff.TIFF, sniff.RAF:
		// The TIFF/RAF decoders work directly off the buffered stream;
		// ParseHeader alone tells us whether we have at least the header.
		if _, err := exif.ParseHeader(data); err != nil {
			return false, 4096
		}
		return true, 0
	case sniff.QuickTime, sniff.MP4:
		if _, ok := isobmff.FindBoxByType(data, "moov"); ok {
			return true, 0
		}
		return false, 32 * 1024
	case sniff.CR3:
		if _, ok := isobmff.FindBoxByType(data, "moov"); ok {
			return true, 0
		}
		return false, 32 * 1024
	case sniff.HEIF:
		metaBox, ok := isobmff.FindBoxByType(data, "meta")
		if !ok || len(metaBox.Body) < 4 {
			return false, 32 * 1024
		}
		meta := heif.ParseMeta(metaBox.Body[4:])
		offset, length, err := meta.ResolveRange("Exif")
		if err != nil {
			// The meta box is present but the item table isn't resolvable
			// yet (or ever); let the caller's decode step surface the error
			// rather than spin requesting more bytes forever.
			return true, 0
		}
		if offset+length > uint64(len(data)) {
			return false, int(offset+length-uint64(len(data))) + 4096
		}
		return true, 0
	case sniff.EBML:
		if _, err := ebml.ParseWebm(data); err == nil {
			return true, 0
		}
		return false, 16 * 1024
	default:
		return true, 0
	}
}

func parseJPEG(data []byte) (*Result, error) {
	offset, length, err := jpegseg.FindEXIF(data)
	if err != nil {
		return nil, err
	}
	iter, err := exif.NewIter(data[offset : offset+length])
	if err != nil {
		return nil, err
	}
	return &Result{Format: sniff.JPEG, Exif: iter}, nil
}

func parseTIFFContainer(format sniff.Format, data []byte) (*Result, error) {
	iter, err := exif.NewIter(data)
	if err != nil {
		return nil, err
	}
	return &Result{Format: format, Exif: iter}, nil
}

func parseISOBMFFStill(format sniff.Format, data []byte) (*Result, error) {
	if format == sniff.CR3 {
		moovBox, ok := isobmff.FindBoxByType(data, "moov")
		if !ok {
			return nil, fmt.Errorf("mediameta: CR3 file missing moov box")
		}
		uuidPayload, ok := cr3.FindCanonUUID(moovBox.Body)
		if !ok {
			return nil, cr3.ErrNoCanonUUID
		}
		streams, err := cr3.ParseStreams(uuidPayload)
		if err != nil {
			return nil, err
		}
		// CMT1 is the full TIFF stream carrying IFD0/Exif/GPS; CMT2 and
		// CMT3 are the maker-note and preview-image IFDs respectively.
		cmt := streams.CMT1
		iter, err := exif.NewIter(uuidPayload[cmt.Offset : cmt.Offset+cmt.Length])
		if err != nil {
			return nil, err
		}
		return &Result{Format: format, Exif: iter}, nil
	}

	metaBox, ok := isobmff.FindBoxByType(data, "meta")
	if !ok {
		return nil, heif.ErrItemNotFound
	}
	meta := heif.ParseMeta(metaBox.Body[4:]) // full-box header stripped
	offset, length, err := meta.ResolveRange("Exif")
	if err != nil {
		return nil, err
	}
	// iloc offsets for construction_method 0 are absolute, counted from
	// the start of the file, not relative to the meta box.
	if offset+length > uint64(len(data)) {
		return nil, fmt.Errorf("mediameta: EXIF item range exceeds buffered data")
	}
	payload := data[offset : offset+length]
	stripped, err := heif.StripExifHeader(payload)
	if err != nil {
		return nil, err
	}
	iter, err := exif.NewIter(stripped)
	if err != nil {
		return nil, err
	}
	return &Result{Format: format, Exif: iter}, nil
}

func parseMovie(format sniff.Format, data []byte) (*Result, error) {
	ti := trackinfo.New()

	moovBox, ok := isobmff.FindBoxByType(data, "moov")
	if !ok {
		return nil, fmt.Errorf("mediameta: movie file missing moov box")
	}
	if mvhdBox, ok := isobmff.FindBoxByType(moovBox.Body, "mvhd"); ok {
		m, err := mov.ParseMVHD(mvhdBox.Body)
		if err == nil {
			ti.Set(trackinfo.TagDuration, fmt.Sprintf("%.3f", m.DurationSeconds()))
			ti.SetCreateDateFromMVHD(m.CreationTime)
		}
	}
	if tkhdBox, ok := isobmff.FindBox(data, "moov/trak/tkhd"); ok {
		tk, err := mov.ParseTKHD(tkhdBox.Body)
		if err == nil {
			if tk.Width > 0 {
				ti.Set(trackinfo.TagWidth, fmt.Sprintf("%.0f", tk.Width))
			}
			if tk.Height > 0 {
				ti.Set(trackinfo.TagHeight, fmt.Sprintf("%.0f", tk.Height))
			}
		}
	}

	if metaBox, ok := isobmff.FindBox(data, "moov/meta"); ok {
		applyQuickTimeMeta(ti, metaBox.Body)
	}
	if udtaBox, ok := isobmff.FindBox(data, "moov/udta"); ok {
		applyUdta(ti, udtaBox.Body)
	}

	return &Result{Format: format, Tracks: ti}, nil
}

func applyQuickTimeMeta(ti trackinfo.TrackInfo, metaBody []byte) {
	// moov/meta is a full box; its children start after the 4-byte
	// version+flags word.
	body := metaBody
	if len(body) >= 4 {
		body = body[4:]
	}
	keysBox, hasKeys := isobmff.FindBoxByType(body, "keys")
	ilstBox, hasIlst := isobmff.FindBoxByType(body, "ilst")
	if !hasIlst {
		return
	}
	var keys mov.Keys
	if hasKeys && len(keysBox.Body) >= 4 {
		k, err := mov.ParseKeys(keysBox.Body[4:]) // skip version+flags
		if err == nil {
			keys = k
		}
	}
	ilst, err := mov.ParseIlst(ilstBox.Body, keys)
	if err != nil {
		return
	}
	for key, value := range ilst {
		if tag, ok := trackinfo.CanonicalTag(key); ok {
			ti.Set(tag, value)
		}
	}
}

func applyUdta(ti trackinfo.TrackInfo, udtaBody []byte) {
	// The ©xyz and ©aut atom names carry a leading copyright glyph as the
	// single Mac-Roman byte 0xA9, not the 2-byte UTF-8 encoding of "©".
	if gpsBox, ok := isobmff.FindBoxByType(udtaBody, "\xa9xyz"); ok && len(gpsBox.Body) > 4 {
		// QuickTime text atoms are prefixed with a 2-byte length and a
		// 2-byte language code.
		ti.Set(trackinfo.TagGPSCoordinates, string(gpsBox.Body[4:]))
	}
	if authBox, ok := isobmff.FindBoxByType(udtaBody, "auth"); ok && len(authBox.Body) > 4 {
		// auth is a full box: its version+flags word precedes the packed
		// language code and the text.
		ti.Set(trackinfo.TagAuthor, mov.StripLangPrefix(string(authBox.Body[4:])))
	} else if authBox, ok := isobmff.FindBoxByType(udtaBody, "\xa9aut"); ok && len(authBox.Body) > 4 {
		ti.Set(trackinfo.TagAuthor, mov.StripLangPrefix(string(authBox.Body[4:])))
	}
}

func parseWebm(data []byte) (*Result, error) {
	info, err := ebml.ParseWebm(data)
	if err != nil {
		return nil, err
	}
	ti := trackinfo.New()
	ti.Set(trackinfo.TagDuration, fmt.Sprintf("%.3f", info.Info.DurationSeconds()))
	return &Result{Format: sniff.EBML, Tracks: ti}, nil
}
