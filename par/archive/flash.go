// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"

	"github.com/luci/luci-go/common/errors"

	"github.com/quinacrid/parc/par/sllz"
)

// similarTo reports whether a and other share the same endianness and
// extension flags and have structurally identical trees: the same
// directory and file names in the same positions. It does not compare
// payloads, attributes, or timestamps.
func (a *Archive) similarTo(other *Archive) bool {
	if a.Root == nil || other.Root == nil {
		return false
	}
	if a.Endian != other.Endian || a.SizeExtended != other.SizeExtended || a.Relocated != other.Relocated {
		return false
	}
	var same func(x, y *Directory) bool
	same = func(x, y *Directory) bool {
		if x.Name != y.Name || len(x.Subdirectories) != len(y.Subdirectories) || len(x.Files) != len(y.Files) {
			return false
		}
		for i := range x.Files {
			if x.Files[i].Name != y.Files[i].Name {
				return false
			}
		}
		for i := range x.Subdirectories {
			if !same(x.Subdirectories[i], y.Subdirectories[i]) {
				return false
			}
		}
		return true
	}
	return same(a.Root, other.Root)
}

// FlashFrom overwrites a's metadata and payload encoding with other's,
// file for file and directory for directory, leaving a's own tree
// structure (names, nesting) untouched. It requires the two archives be
// similarTo one another; this is how a rebuilt archive picks up the
// attributes, timestamps, and compression choices of a previous release
// without redoing that work by hand. A file's payload is only touched
// when other's copy of it has a different compression state than a's;
// it is re-encoded or decoded to match, never re-encoded in place with
// different parameters.
func (a *Archive) FlashFrom(ctx context.Context, other *Archive, opts *Options) error {
	if !a.similarTo(other) {
		return errors.New("archive: FlashFrom requires structurally identical archives")
	}
	o := resolveOptions(opts)

	var walk func(dst, src *Directory) error
	walk = func(dst, src *Directory) error {
		dst.Attributes = src.Attributes
		for i := range dst.Files {
			d, s := dst.Files[i], src.Files[i]
			d.Attributes = s.Attributes
			d.Timestamp = s.Timestamp
			if err := flashEncoding(ctx, o, d, s); err != nil {
				return errors.Annotate(err).Reason("archive: flashing encoding state of %(name)q").D("name", d.Name).Err()
			}
		}
		for i := range dst.Subdirectories {
			if err := walk(dst.Subdirectories[i], src.Subdirectories[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(a.Root, other.Root); err != nil {
		return err
	}

	a.Platform = other.Platform
	a.Endian = other.Endian
	a.SizeExtended = other.SizeExtended
	a.Relocated = other.Relocated
	a.FileSizeMode = other.FileSizeMode
	a.UnknownA = other.UnknownA
	return nil
}

// flashEncoding brings dst's payload encoding state into line with
// src's: if src is currently compressed and dst isn't, dst is encoded
// with src's SLLZ version/endianness (forced, so a small payload that
// would otherwise expand still ends up compressed); if src is plaintext
// and dst is compressed, dst is decoded. A matching state is left
// untouched.
func flashEncoding(ctx context.Context, o Options, dst, src *File) error {
	srcCompressed := src.IsCompressed()
	dstCompressed := dst.IsCompressed()
	switch {
	case srcCompressed && !dstCompressed:
		version, endian, _ := src.sllzInfo()
		scheme := SLLZv1
		if version == sllz.V2 {
			scheme = SLLZv2
		}
		if err := dst.Encode(ctx, o, EncodeParams{Scheme: scheme, Endian: endian}, true); err != nil {
			return err
		}
	case !srcCompressed && dstCompressed:
		if err := dst.Decode(ctx, o); err != nil {
			return err
		}
	}
	dst.OrigCompressed = src.OrigCompressed
	return nil
}
