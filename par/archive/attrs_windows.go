// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// +build windows

package archive

import (
	"os"

	"golang.org/x/sys/windows"
)

// Attribute bits, matching the Win32 FILE_ATTRIBUTE_* constants directly.
const (
	attrReadOnly uint32 = windows.FILE_ATTRIBUTE_READONLY
	attrHidden   uint32 = windows.FILE_ATTRIBUTE_HIDDEN
	attrSystem   uint32 = windows.FILE_ATTRIBUTE_SYSTEM
	attrArchive  uint32 = windows.FILE_ATTRIBUTE_ARCHIVE
)

// attributesOf reads the real Win32 attribute bitmap for path, falling
// back to the bare archive bit if the path cannot be converted or the
// syscall fails (e.g. the file no longer exists).
func attributesOf(path string, info os.FileInfo) uint32 {
	if info.IsDir() {
		return DefaultDirAttributes
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return attrArchive
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return attrArchive
	}
	return attrs
}

// setAttributes writes the Win32 attribute bitmap back to path.
func setAttributes(path string, attrs uint32) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, attrs)
}
