// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"io"

	"github.com/luci/luci-go/common/errors"

	"github.com/quinacrid/parc/par/archive/binstream"
)

// EmitOptions configures Archive.Emit.
type EmitOptions struct {
	Options

	// Align is the byte boundary each file's payload is aligned to within
	// the data region. Zero means defaultAlign (0x800).
	Align int64
	// EncodeParams, if non-nil, is applied to every file that doesn't
	// already carry a compressed payload before it is written out.
	EncodeParams *EncodeParams
	// Force makes Encode keep a compressed result even if it expanded the
	// payload.
	Force bool
	// RoundSizeUp, when FileSizeMode is WriteSize, rounds the backpatched
	// total-size field up to Align instead of writing the exact stream
	// length. This is the older size-writing variant; it has no effect
	// under OmitSize, and never changes what gets persisted in
	// FileSizeMode itself.
	RoundSizeUp bool
	// BackupKeep, if greater than zero, makes EmitToFile rotate up to that
	// many numbered backups of an existing destination file before
	// overwriting it. Emit itself writes no backups. Values above 1000 are
	// rejected by both.
	BackupKeep int
}

// Emit serializes the archive to w: header, name table, directory-entry
// table, file-entry table, then each file's (optionally re-encoded)
// payload in the aligned data region, with the header's TotalSize
// backpatched once the final length is known.
func (a *Archive) Emit(ctx context.Context, w io.Writer, opts *EmitOptions) error {
	var eo EmitOptions
	if opts != nil {
		eo = *opts
	}
	o := resolveOptions(&eo.Options)
	align := eo.Align
	if align <= 0 {
		align = defaultAlign
	}
	if eo.BackupKeep > 1000 {
		return errCountTooHigh("backup", eo.BackupKeep, 1000)
	}

	if a.Root == nil {
		return errors.New("archive: cannot emit an archive with no root directory")
	}
	a.flatten(o.RootDirEmission)
	if err := a.ready(true); err != nil {
		return err
	}
	if len(a.Directories) > 0xFFFFFFFF || len(a.Files) > 0xFFFFFFFF {
		return errCountTooHigh("directory/file", len(a.Directories)+len(a.Files), 0xFFFFFFFF)
	}

	order, err := a.Endian.order()
	if err != nil {
		return err
	}
	bw := binstream.NewWriter(order)

	nameTableOffset := int64(headerSize)
	nameTableSize := int64(len(a.Directories)+len(a.Files)) * nameEntrySize
	dirTableOffset := nameTableOffset + nameTableSize
	dirTableSize := int64(len(a.Directories)) * dirEntrySize
	fileTableOffset := dirTableOffset + dirTableSize
	fileTableSize := int64(len(a.Files)) * fileEntrySize
	dataRegionStart := alignUp(fileTableOffset+fileTableSize, align)

	hdr := archiveHeaderWire{
		Platform:        a.Platform,
		Endian:          a.Endian,
		SizeExtended:    a.SizeExtended,
		Relocated:       a.Relocated,
		FileSizeMode:    a.FileSizeMode,
		UnknownA:        a.UnknownA,
		DirCount:        uint32(len(a.Directories)),
		DirTableOffset:  uint32(dirTableOffset),
		FileCount:       uint32(len(a.Files)),
		FileTableOffset: uint32(fileTableOffset),
	}
	if err := hdr.write(bw); err != nil {
		return errors.Annotate(err).Reason("archive: writing header").Err()
	}

	if err := bw.Seek(nameTableOffset); err != nil {
		return err
	}
	for _, d := range a.Directories {
		buf, err := padName(d.Name)
		if err != nil {
			return err
		}
		if err := bw.WriteBytes(buf); err != nil {
			return err
		}
	}
	for _, f := range a.Files {
		buf, err := padName(f.Name)
		if err != nil {
			return err
		}
		if err := bw.WriteBytes(buf); err != nil {
			return err
		}
	}

	if err := bw.Seek(dirTableOffset); err != nil {
		return err
	}
	for _, d := range a.Directories {
		dh := dirHeaderWire{
			DirCount:       d.DirCount,
			FirstDirIndex:  d.FirstDirIndex,
			FileCount:      d.FileCount,
			FirstFileIndex: d.FirstFileIndex,
			Attributes:     d.Attributes,
		}
		if err := dh.write(bw); err != nil {
			return err
		}
	}

	// Pre-extend the buffer through the end of the file table so that
	// toArchiveEntry's PushForwardToEnd lands past it, in the data region,
	// rather than immediately after the last file-table entry written so
	// far.
	if err := bw.PushForward(dataRegionStart); err != nil {
		return err
	}
	if err := bw.PopBack(); err != nil {
		return err
	}

	if err := bw.Seek(fileTableOffset); err != nil {
		return err
	}
	for _, f := range a.Files {
		if err := f.toArchiveEntry(ctx, o, bw, align, eo.EncodeParams, eo.Force); err != nil {
			return errors.Annotate(err).Reason("archive: emitting file %(name)q").D("name", f.Name).Err()
		}
	}

	if err := bw.PushForwardToEnd(); err != nil {
		return err
	}
	if err := bw.PadTo(finalAlignment); err != nil {
		return err
	}
	if err := bw.PopBack(); err != nil {
		return err
	}

	if a.FileSizeMode == WriteSize {
		if eo.RoundSizeUp {
			hdr.TotalSize = uint32(alignUp(bw.Len(), align))
		} else {
			hdr.TotalSize = uint32(bw.Len())
		}
		if err := bw.PushForward(0); err != nil {
			return err
		}
		if err := hdr.write(bw); err != nil {
			return err
		}
		if err := bw.PopBack(); err != nil {
			return err
		}
	}

	_, err = w.Write(bw.Bytes())
	return err
}
