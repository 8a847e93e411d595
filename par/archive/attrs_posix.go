// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// +build !windows

package archive

import (
	"os"
	"strings"
)

// Attribute bits, kept compatible with the Windows FILE_ATTRIBUTE_*
// constants so an archive built on one platform reads sensibly on the
// other.
const (
	attrReadOnly uint32 = 0x01
	attrHidden   uint32 = 0x02
	attrSystem   uint32 = 0x04
	attrArchive  uint32 = 0x20
)

// attributesOf derives a wire attribute bitmap from a POSIX file: the
// directory bit from info.IsDir, hidden from a leading dot in the name,
// read-only from the owner-write permission bit, and the archive bit on
// every regular file.
func attributesOf(path string, info os.FileInfo) uint32 {
	if info.IsDir() {
		return DefaultDirAttributes
	}
	var attrs uint32 = attrArchive
	if strings.HasPrefix(info.Name(), ".") {
		attrs |= attrHidden
	}
	if info.Mode()&0o200 == 0 {
		attrs |= attrReadOnly
	}
	return attrs
}

// setAttributes applies the read-only bit to a file on disk; POSIX has no
// general analogue for hidden/system, so those bits are a no-op here.
func setAttributes(path string, attrs uint32) error {
	if attrs&attrReadOnly == 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode()&^0o222)
}
