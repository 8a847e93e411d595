// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sllz implements the SLLZ codec family used to compress
// individual PARC archive entries: v1 is a raw bit-flag LZSS stream with a
// 4096-byte sliding window and 3-18 byte matches, v2 is a chunked wrapper
// around DEFLATE (max chunk 65536 bytes). Both are framed behind a common
// 16-byte SLLZ header (magic, endianness, version, sizes) that Encode and
// Decode dispatch on.
package sllz
