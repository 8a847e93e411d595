// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/luci/luci-go/common/data/stringset"
	"github.com/luci/luci-go/common/errors"
)

// wireTree links Directories/Files into a tree by slicing each directory's
// FirstDirIndex/DirCount and FirstFileIndex/FileCount window out of the
// flat arrays. If no directory in the table is the root (name "" or "."),
// a root is synthesized to own every directory/file the real entries
// don't already claim as a child, mirroring what the original tool does
// for archives that never wrote an explicit root entry.
func (a *Archive) wireTree() error {
	for i, d := range a.Directories {
		end := int(d.FirstDirIndex) + int(d.DirCount)
		if int(d.FirstDirIndex) > len(a.Directories) || end > len(a.Directories) {
			return errors.Reason("archive: directory %(i)d subdirectory range [%(first)d,%(end)d) out of bounds").
				D("i", i).D("first", d.FirstDirIndex).D("end", end).Err()
		}
		d.Subdirectories = a.Directories[d.FirstDirIndex:end]

		fend := int(d.FirstFileIndex) + int(d.FileCount)
		if int(d.FirstFileIndex) > len(a.Files) || fend > len(a.Files) {
			return errors.Reason("archive: directory %(i)d file range [%(first)d,%(end)d) out of bounds").
				D("i", i).D("first", d.FirstFileIndex).D("end", fend).Err()
		}
		d.Files = a.Files[d.FirstFileIndex:fend]
		for _, f := range d.Files {
			f.ContainingDirectory = d
		}
	}

	for _, d := range a.Directories {
		if IsRootName(d.Name) {
			a.Root = d
			a.fileTreeInitialized = true
			return nil
		}
	}

	root := NewDirectory("")
	claimed := make(map[*Directory]bool, len(a.Directories))
	for _, d := range a.Directories {
		for _, c := range d.Subdirectories {
			claimed[c] = true
		}
	}
	claimedFiles := make(map[*File]bool, len(a.Files))
	for _, d := range a.Directories {
		for _, f := range d.Files {
			claimedFiles[f] = true
		}
	}
	for _, d := range a.Directories {
		if !claimed[d] {
			root.Subdirectories = append(root.Subdirectories, d)
		}
	}
	for _, f := range a.Files {
		if !claimedFiles[f] {
			root.Files = append(root.Files, f)
			f.ContainingDirectory = root
		}
	}
	root.DirCount = uint32(len(root.Subdirectories))
	root.FileCount = uint32(len(root.Files))
	a.Root = root
	a.fileTreeInitialized = true
	return nil
}

// flatten rebuilds a.Directories and a.Files from the tree rooted at
// a.Root in pre-order, assigning each directory's FirstDirIndex/DirCount
// and FirstFileIndex/FileCount from the resulting flat layout. This is
// the inverse of wireTree, used after a tree has been edited in place
// (e.g. by BuildFromPath or ArchiveFromManifest) and by Emit before it
// serializes the archive.
//
// With RootDirOmit, the root directory itself never gets a flat entry;
// its children form the flat arrays' leading run, matching what Parse
// synthesizes when an archive has no explicit root on disk. With
// RootDirInclude, the root occupies Directories[0] explicitly.
//
// A leaf directory's FirstDirIndex is set during the walk to the flat
// length at the time it's visited, which for an early-visited leaf is
// short of the final total once later siblings/subtrees are appended.
// A leaf has no subdirectory range to point into regardless, so once the
// final length is known every leaf's FirstDirIndex is overwritten with
// that length as a sentinel.
func (a *Archive) flatten(mode RootDirMode) {
	a.Directories = nil
	a.Files = nil

	if mode == RootDirInclude {
		a.Directories = append(a.Directories, a.Root)
	}

	var walk func(d *Directory)
	walk = func(d *Directory) {
		d.FirstDirIndex = uint32(len(a.Directories))
		d.DirCount = uint32(len(d.Subdirectories))
		a.Directories = append(a.Directories, d.Subdirectories...)

		d.FirstFileIndex = uint32(len(a.Files))
		d.FileCount = uint32(len(d.Files))
		a.Files = append(a.Files, d.Files...)
		for _, f := range d.Files {
			f.ContainingDirectory = d
		}

		for _, c := range d.Subdirectories {
			walk(c)
		}
	}
	walk(a.Root)

	dirCount := uint32(len(a.Directories))
	for _, d := range a.Directories {
		if d.DirCount == 0 {
			d.FirstDirIndex = dirCount
		}
	}
	if mode == RootDirOmit && a.Root.DirCount == 0 {
		a.Root.FirstDirIndex = dirCount
	}

	a.archiveInitialized = true
	a.fileTreeInitialized = true
}

// BuildFromPath walks a directory tree on disk and builds a new Archive
// whose tree mirrors it: one Directory per subdirectory, one File per
// regular file, with payloads loaded as plaintext. The caller is
// responsible for calling Encode on the resulting files (directly or via
// EmitOptions.EncodeParams during Emit) if compression is wanted.
func BuildFromPath(root string, opts *Options) (*Archive, error) {
	o := resolveOptions(opts)

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Annotate(err).Reason("archive: statting root %(root)q").D("root", root).Err()
	}
	if !info.IsDir() {
		return nil, errors.Reason("archive: %(root)q is not a directory").D("root", root).Err()
	}

	a := &Archive{
		Platform:     2,
		UnknownA:     1,
		FileSizeMode: o.DefaultFileSizeMode,
	}

	rootDir := NewDirectory("")
	rootDir.Attributes = attributesOf(root, info)
	if err := buildDirTree(rootDir, root); err != nil {
		return nil, err
	}
	a.Root = rootDir
	a.flatten(o.RootDirEmission)
	a.dataLoaded = true
	return a, nil
}

func buildDirTree(dst *Directory, path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.Annotate(err).Reason("archive: reading directory %(path)q").D("path", path).Err()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		childPath := filepath.Join(path, e.Name())
		info, err := e.Info()
		if err != nil {
			return errors.Annotate(err).Reason("archive: statting %(path)q").D("path", childPath).Err()
		}
		if e.IsDir() {
			child := NewDirectory(e.Name())
			child.Attributes = attributesOf(childPath, info)
			if err := buildDirTree(child, childPath); err != nil {
				return err
			}
			dst.Subdirectories = append(dst.Subdirectories, child)
			continue
		}

		data, err := os.ReadFile(childPath)
		if err != nil {
			return errors.Annotate(err).Reason("archive: reading %(path)q").D("path", childPath).Err()
		}
		if int64(len(data)) >= maxFileSize {
			return errSizeOverflow(e.Name(), int64(len(data)))
		}
		f := NewFile(e.Name())
		f.Size = int64(len(data))
		f.EntryLength = uint32(len(data))
		f.Attributes = attributesOf(childPath, info)
		f.Timestamp = timestampOf(info)
		f.SetData(data, false)
		dst.Files = append(dst.Files, f)
	}
	return nil
}

// ExtractTo decodes every file in the archive and writes it under dstRoot,
// reproducing the archive's directory structure and, where the platform
// supports it, each entry's stored attributes and timestamp. If opts asks
// for a manifest, one is written alongside the extracted tree.
func (a *Archive) ExtractTo(ctx context.Context, dstRoot string, opts *Options) error {
	o := resolveOptions(opts)
	if err := a.ready(true); err != nil {
		return err
	}

	if err := os.MkdirAll(dstRoot, 0o755); err != nil {
		return errors.Annotate(err).Reason("archive: creating destination root %(root)q").D("root", dstRoot).Err()
	}

	names := stringset.New(0)
	var walk func(d *Directory, path string) error
	walk = func(d *Directory, path string) error {
		for _, c := range d.Subdirectories {
			childPath := filepath.Join(path, c.Name)
			if !names.Add(childPath) {
				return errors.Reason("archive: duplicate path %(path)q while extracting").D("path", childPath).Err()
			}
			if err := os.MkdirAll(childPath, 0o755); err != nil {
				return errors.Annotate(err).Reason("archive: creating %(path)q").D("path", childPath).Err()
			}
			if err := setAttributes(childPath, c.Attributes); err != nil {
				warnf(ctx, o, "archive: setting attributes on %q: %v", childPath, err)
			}
			if err := walk(c, childPath); err != nil {
				return err
			}
		}
		for _, f := range d.Files {
			filePath := filepath.Join(path, f.Name)
			if !names.Add(filePath) {
				return errors.Reason("archive: duplicate path %(path)q while extracting").D("path", filePath).Err()
			}
			if err := f.Decode(ctx, o); err != nil {
				return errors.Annotate(err).Reason("archive: decoding %(name)q").D("name", f.Name).Err()
			}
			payload, err := f.Payload()
			if err != nil {
				return err
			}
			if err := os.WriteFile(filePath, payload, 0o644); err != nil {
				return errors.Annotate(err).Reason("archive: writing %(path)q").D("path", filePath).Err()
			}
			if err := setAttributes(filePath, f.Attributes); err != nil {
				warnf(ctx, o, "archive: setting attributes on %q: %v", filePath, err)
			}
			if err := setTimestamp(filePath, f.Timestamp); err != nil {
				warnf(ctx, o, "archive: setting timestamp on %q: %v", filePath, err)
			}
		}
		return nil
	}
	if err := walk(a.Root, dstRoot); err != nil {
		return err
	}

	if o.GenerateManifest {
		manifestPath := filepath.Join(dstRoot, a.Name+".par.manifest")
		if err := WriteManifest(a, manifestPath); err != nil {
			return err
		}
	}
	return nil
}
