// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package binstream provides the endianness-aware binary reader and writer
// primitives that the PARC format builds on: scalar and byte-slice
// accessors, a position stack for two-pass layout (reserve a header slot,
// write payloads at the end of the stream, then seek back and backpatch),
// and zero-fill padding to an alignment boundary.
package binstream
