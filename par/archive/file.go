// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"

	"github.com/quinacrid/parc/par/archive/binstream"
	"github.com/quinacrid/parc/par/sllz"
)

// maxFileSize is the 2GiB ceiling on a declared file size.
const maxFileSize = 1 << 31

// CompressionScheme selects which SLLZ version (if any) File.Encode should
// use.
type CompressionScheme int

// Supported compression schemes for File.Encode.
const (
	// Uncompressed makes Encode a no-op.
	Uncompressed CompressionScheme = iota
	SLLZv1
	SLLZv2
)

// EncodeParams configures File.Encode.
type EncodeParams struct {
	Scheme CompressionScheme
	Endian sllz.Endianness
}

// File is one archived file: its declared metadata plus its bounded
// payload history.
type File struct {
	Name        string
	OrigCompressed bool
	WasCompressed  bool
	Size        int64
	EntryLength uint32
	Attributes  uint32
	Timestamp   uint64
	DataOffset  int64

	// OrigSLLZVersion and OrigSLLZEndian record the SLLZ framing of the
	// most recently encoded or decoded compressed payload (set by Encode,
	// and by Decode from the header of the payload it decodes; Parse and
	// LoadData leave them unset), surviving the Decode so the original encoding can
	// still be described (e.g. by a manifest) after the payload itself has
	// been replaced with plaintext.
	OrigSLLZVersion sllz.Version
	OrigSLLZEndian  sllz.Endianness

	ContainingDirectory *Directory

	history *dataHistory
}

// NewFile creates a File with no payload loaded yet.
func NewFile(name string) *File {
	return &File{Name: name, history: newDataHistory()}
}

// Loaded reports whether LoadData (or SetData) has ever been called.
func (f *File) Loaded() bool {
	return f.history.loaded()
}

// IsCompressed reports whether the current payload is SLLZ-compressed.
func (f *File) IsCompressed() bool {
	r, ok := f.history.current()
	return ok && r.compressed
}

// Payload returns the current payload bytes, or errDataNotLoaded if none
// has been loaded.
func (f *File) Payload() ([]byte, error) {
	r, ok := f.history.current()
	if !ok {
		return nil, errDataNotLoaded(f.Name, "Payload")
	}
	return r.data, nil
}

// SetData installs data as the current payload directly, e.g. when
// attaching a freshly-read on-disk file during a manifest-driven import.
func (f *File) SetData(data []byte, compressed bool) {
	f.history.add(data, compressed)
}

// LoadData reads EntryLength bytes at offset from data into the file's
// history, marking them compressed per OrigCompressed.
func (f *File) LoadData(data []byte, offset int64) error {
	end := offset + int64(f.EntryLength)
	if offset < 0 || end > int64(len(data)) {
		return errDataNotLoaded(f.Name, "LoadData (out of range)")
	}
	buf := make([]byte, f.EntryLength)
	copy(buf, data[offset:end])
	f.history.add(buf, f.OrigCompressed)
	return nil
}

// Decode decodes the current payload via SLLZ if it is compressed; a
// decode request on an already-plaintext payload is a warning no-op.
func (f *File) Decode(ctx context.Context, opts Options) error {
	cur, ok := f.history.current()
	if !ok {
		return errDataNotLoaded(f.Name, "Decode")
	}
	if !cur.compressed {
		warnf(ctx, opts, "archive: decode requested for already-plaintext file %q", f.Name)
		return nil
	}

	decoded, err := sllz.Decode(cur.data)
	if err != nil {
		return err
	}
	if header, herr := sllz.ParseHeader(cur.data); herr == nil {
		f.OrigSLLZVersion = header.Version
		f.OrigSLLZEndian = header.Endian
		if int64(header.DecompressedSize) != int64(len(decoded)) || int64(header.DecompressedSize) != f.Size {
			warnf(ctx, opts, "archive: file %q declared size %d disagrees with SLLZ decompressed length %d; using actual length",
				f.Name, f.Size, len(decoded))
			f.Size = int64(len(decoded))
		}
	}
	f.WasCompressed = true
	f.history.add(decoded, false)
	return nil
}

// Encode SLLZ-encodes the current payload if it is plaintext, keeping the
// result only if it is shorter than the input unless force is set. A
// request to encode an already-compressed payload, or a Scheme of
// Uncompressed, is a no-op.
func (f *File) Encode(ctx context.Context, opts Options, params EncodeParams, force bool) error {
	cur, ok := f.history.current()
	if !ok {
		return errDataNotLoaded(f.Name, "Encode")
	}
	if params.Scheme == Uncompressed {
		return nil
	}
	if cur.compressed {
		warnf(ctx, opts, "archive: encode requested for already-compressed file %q", f.Name)
		return nil
	}

	version := sllz.V1
	if params.Scheme == SLLZv2 {
		version = sllz.V2
	}
	encoded, err := sllz.Encode(cur.data, version, params.Endian)
	if err != nil {
		return err
	}
	if len(encoded) >= len(cur.data) && !force {
		warnf(ctx, opts, "archive: SLLZ encoding of %q would expand payload (%d >= %d bytes); keeping plaintext",
			f.Name, len(encoded), len(cur.data))
		return nil
	}

	f.history.add(encoded, true)
	f.EntryLength = uint32(len(encoded))
	f.OrigCompressed = true
	f.OrigSLLZVersion = version
	f.OrigSLLZEndian = params.Endian
	return nil
}

// sllzInfo reports the SLLZ version/endianness that frames the current
// payload if it is compressed, or, failing that, the version/endianness
// recorded the last time a compressed payload was seen for this file.
func (f *File) sllzInfo() (sllz.Version, sllz.Endianness, bool) {
	if cur, ok := f.history.current(); ok && cur.compressed {
		if h, err := sllz.ParseHeader(cur.data); err == nil {
			return h.Version, h.Endian, true
		}
	}
	if f.OrigCompressed {
		return f.OrigSLLZVersion, f.OrigSLLZEndian, true
	}
	return 0, 0, false
}

// toArchiveEntry optionally encodes the current payload, places it at the
// next (alignment-respecting) offset at the end of the stream, and writes
// its 0x20-byte header at the writer's current position.
func (f *File) toArchiveEntry(ctx context.Context, opts Options, w *binstream.Writer, align int64, params *EncodeParams, force bool) error {
	cur, ok := f.history.current()
	if !ok {
		return errDataNotLoaded(f.Name, "toArchiveEntry")
	}
	if params != nil {
		if err := f.Encode(ctx, opts, *params, force); err != nil {
			return err
		}
		cur, _ = f.history.current()
	}
	if f.Size >= maxFileSize {
		return errSizeOverflow(f.Name, f.Size)
	}

	if err := w.PushForwardToEnd(); err != nil {
		return err
	}
	curEnd := w.Len()
	nextAligned := alignUp(curEnd, align)
	if nextAligned-curEnd <= int64(len(cur.data)) {
		if err := w.Seek(nextAligned); err != nil {
			return err
		}
	}
	offset := w.Pos()
	if err := w.WriteBytes(cur.data); err != nil {
		return err
	}
	if err := w.PopBack(); err != nil {
		return err
	}

	f.DataOffset = offset
	f.EntryLength = uint32(len(cur.data))

	low32, high24 := splitDataOffset(offset)
	wh := fileHeaderWire{
		Compressed:       cur.compressed,
		Size:             uint32(f.Size),
		EntryLength:      f.EntryLength,
		DataOffsetLow32:  low32,
		Attributes:       f.Attributes,
		DataOffsetHigh24: high24,
		Timestamp:        f.Timestamp,
	}
	return wh.write(w)
}
