// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

// DefaultDirAttributes is the default attribute bitmap for a newly created
// directory.
const DefaultDirAttributes uint32 = 0x10 // FILE_ATTRIBUTE_DIRECTORY, the common cross-platform convention.

// Directory is one node of the archive's tree. Its Subdirectories and
// Files slices hold the same *Directory/*File pointers the archive's flat
// Directories/Files arrays own — there is exactly one object per entry, so
// the flat view and the tree view can never drift apart.
type Directory struct {
	Name           string
	DirCount       uint32
	FirstDirIndex  uint32
	FileCount      uint32
	FirstFileIndex uint32
	Attributes     uint32

	Subdirectories []*Directory
	Files          []*File
}

// NewDirectory creates an empty Directory with default attributes.
func NewDirectory(name string) *Directory {
	return &Directory{Name: name, Attributes: DefaultDirAttributes}
}

// IsRootName reports whether name denotes the archive root: empty or ".".
func IsRootName(name string) bool {
	return name == "" || name == "."
}

// IsLeaf reports whether this directory has no subdirectories.
func (d *Directory) IsLeaf() bool {
	return len(d.Subdirectories) == 0
}

// replaceFile swaps the file at the given flat file-table index within
// this directory's Files view for replacement, returning false if idx
// does not fall within this directory's file slice.
func (d *Directory) replaceFile(idx int, replacement *File) bool {
	if idx < int(d.FirstFileIndex) || idx >= int(d.FirstFileIndex)+int(d.FileCount) {
		return false
	}
	d.Files[idx-int(d.FirstFileIndex)] = replacement
	return true
}
