// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"github.com/luci/luci-go/common/errors"

	"github.com/quinacrid/parc/par/archive/binstream"
)

// Archive is the top-level PARC container: the flat directory/file arrays
// as stored on disk, plus the tree built from them.
type Archive struct {
	Name         string
	Platform     byte
	Endian       Endianness
	SizeExtended bool
	Relocated    bool
	FileSizeMode FileSizeMode
	UnknownA     uint16

	Directories []*Directory
	Files       []*File
	Root        *Directory

	archiveInitialized  bool
	fileTreeInitialized bool
	dataLoaded          bool
}

// DirCount is the cached length of Directories.
func (a *Archive) DirCount() uint32 { return uint32(len(a.Directories)) }

// FileCount is the cached length of Files.
func (a *Archive) FileCount() uint32 { return uint32(len(a.Files)) }

// NewArchive creates an empty Archive with the same defaults the original
// tool used for a freshly created archive: platform 2, unknown_a 1,
// file-size mode "write size".
func NewArchive(name string) *Archive {
	return &Archive{
		Name:         name,
		Platform:     2,
		UnknownA:     1,
		FileSizeMode: WriteSize,
	}
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// LoadAllData makes Parse also read every file's payload into its
	// history, rather than leaving files unloaded until LoadData is called.
	LoadAllData bool
}

// ready reports whether every initialization flag required to Emit is set.
func (a *Archive) ready(requireData bool) error {
	if !a.archiveInitialized {
		return errors.New("archive: flat arrays not initialized")
	}
	if !a.fileTreeInitialized {
		return errors.New("archive: file tree not initialized")
	}
	if requireData && !a.dataLoaded {
		return errors.New("archive: data not loaded")
	}
	return nil
}

// ReplaceFile swaps the file at the given flat file-table index for
// replacement, updating both a.Files and the owning directory's Files
// view so the two never drift apart.
func (a *Archive) ReplaceFile(idx int, replacement *File) error {
	if idx < 0 || idx >= len(a.Files) {
		return errors.Reason("archive: file index %(idx)d out of range [0,%(n)d)").D("idx", idx).D("n", len(a.Files)).Err()
	}
	dir := a.Files[idx].ContainingDirectory
	if dir == nil || !dir.replaceFile(idx, replacement) {
		return errors.Reason("archive: file index %(idx)d not owned by its recorded directory").D("idx", idx).Err()
	}
	a.Files[idx] = replacement
	replacement.ContainingDirectory = dir
	return nil
}

// Parse decodes a ".par" blob into an Archive. The resulting Archive's
// archiveInitialized and fileTreeInitialized flags are both set;
// dataLoaded is set only if opts.LoadAllData was requested.
func Parse(data []byte, opts *ParseOptions) (*Archive, error) {
	var po ParseOptions
	if opts != nil {
		po = *opts
	}

	r := binstream.NewReader(data, nil)
	hdr, err := readArchiveHeader(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("archive: reading header").Err()
	}

	if hdr.FileSizeMode == WriteSize && int64(hdr.TotalSize) > int64(len(data)) {
		return nil, errTruncatedArchive(int64(hdr.TotalSize), int64(len(data)))
	}

	a := &Archive{
		Name:         "",
		Platform:     hdr.Platform,
		Endian:       hdr.Endian,
		SizeExtended: hdr.SizeExtended,
		Relocated:    hdr.Relocated,
		FileSizeMode: hdr.FileSizeMode,
		UnknownA:     hdr.UnknownA,
	}

	totalNames := int(hdr.DirCount) + int(hdr.FileCount)
	names := make([]string, totalNames)
	if err := r.Seek(headerSize); err != nil {
		return nil, err
	}
	for i := 0; i < totalNames; i++ {
		buf, err := r.ReadBytes(nameEntrySize)
		if err != nil {
			return nil, errors.Annotate(err).Reason("archive: reading name table entry %(i)d").D("i", i).Err()
		}
		names[i] = unpadName(buf)
	}

	a.Directories = make([]*Directory, hdr.DirCount)
	for i := 0; i < int(hdr.DirCount); i++ {
		if err := r.Seek(int64(hdr.DirTableOffset) + int64(i)*dirEntrySize); err != nil {
			return nil, err
		}
		dh, err := readDirHeader(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("archive: reading directory entry %(i)d").D("i", i).Err()
		}
		a.Directories[i] = &Directory{
			Name:           names[i],
			DirCount:       dh.DirCount,
			FirstDirIndex:  dh.FirstDirIndex,
			FileCount:      dh.FileCount,
			FirstFileIndex: dh.FirstFileIndex,
			Attributes:     dh.Attributes,
		}
	}

	a.Files = make([]*File, hdr.FileCount)
	for i := 0; i < int(hdr.FileCount); i++ {
		if err := r.Seek(int64(hdr.FileTableOffset) + int64(i)*fileEntrySize); err != nil {
			return nil, err
		}
		fh, err := readFileHeader(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("archive: reading file entry %(i)d").D("i", i).Err()
		}
		f := NewFile(names[int(hdr.DirCount)+i])
		f.OrigCompressed = fh.Compressed
		f.Size = int64(fh.Size)
		f.EntryLength = fh.EntryLength
		f.Attributes = fh.Attributes
		f.Timestamp = fh.Timestamp
		f.DataOffset = joinDataOffset(fh.DataOffsetLow32, fh.DataOffsetHigh24)
		a.Files[i] = f
	}
	a.archiveInitialized = true

	if err := a.wireTree(); err != nil {
		return nil, errors.Annotate(err).Reason("archive: wiring tree").Err()
	}

	if po.LoadAllData {
		for _, f := range a.Files {
			if err := f.LoadData(data, f.DataOffset); err != nil {
				return nil, errors.Annotate(err).Reason("archive: loading data for %(name)q").D("name", f.Name).Err()
			}
		}
		a.dataLoaded = true
	}

	return a, nil
}
