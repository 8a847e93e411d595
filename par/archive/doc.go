// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive implements the PARC container format: a binary header,
// name tables, directory/file entry tables, and an aligned payload region,
// together with the in-memory virtual file tree that the flat on-disk
// arrays flatten to and from.
//
// An Archive is built either by parsing an existing ".par" file (Parse),
// by walking a real directory tree (BuildFromPath), or by reading a text
// manifest sidecar alongside its payload files (ArchiveFromManifest).
// Once built, it can be emitted back to a ".par" (Archive.Emit), extracted
// to a directory (Archive.ExtractTo), or flashed onto a structurally
// identical archive (Archive.FlashFrom).
package archive
