// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package par is the root of the PARC archive toolkit: par/archive
// implements the PARC container itself (header, name tables, directory
// and file entry tables, aligned payload region, plus the parse/emit,
// manifest, flashing, fingerprinting, and extraction operations built on
// top of it), and par/sllz implements the SLLZ compression codec family
// used for individual file payloads inside a PARC archive.
//
// A PARC archive has a fairly basic format:
//   * file magic header ("PARC").
//   * archive header (platform, endianness, size mode, table counts and
//     offsets).
//   * name table (fixed-size entries, directories then files).
//   * directory entry table (subdirectory/file index ranges, attributes).
//   * file entry table (compression flag, size, data offset, attributes,
//     timestamp).
//   * an aligned payload region holding each file's (optionally
//     SLLZ-compressed) data.
//
// Unlike a checksummed solid archive, PARC stores each file's payload at
// its own aligned offset rather than concatenated into one compressed
// block; this trades some compression ratio across similar files for the
// ability to decode (or skip) any single file without touching the rest
// of the archive.
package par
