// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sllz

import (
	"bytes"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestV2Codec(t *testing.T) {
	t.Parallel()

	Convey("SLLZ v2", t, func() {
		Convey("roundtrip: single small chunk", func() {
			input := bytes.Repeat([]byte("hello world "), 10)
			enc, err := EncodeV2(input)
			So(err, ShouldBeNil)
			dec, err := DecodeV2(enc)
			So(err, ShouldBeNil)
			So(dec, ShouldResemble, input)
		})

		Convey("incompressible data falls back to a raw chunk", func() {
			rng := rand.New(rand.NewSource(7))
			input := make([]byte, 1000)
			rng.Read(input)
			enc, err := EncodeV2(input)
			So(err, ShouldBeNil)

			total, size := getChunkHeader(enc[:chunkHeaderSize])
			So(total&chunkUncompressedFlag, ShouldEqual, uint32(chunkUncompressedFlag))
			So(size, ShouldEqual, len(input))

			dec, err := DecodeV2(enc)
			So(err, ShouldBeNil)
			So(dec, ShouldResemble, input)
		})

		Convey("70000-byte input splits into two chunks", func() {
			rng := rand.New(rand.NewSource(42))
			input := make([]byte, 70000)
			rng.Read(input)
			enc, err := EncodeV2(input)
			So(err, ShouldBeNil)

			total1, size1 := getChunkHeader(enc[:chunkHeaderSize])
			So(size1, ShouldEqual, MaxChunkSize)

			var chunk1PayloadLen int
			if total1&chunkUncompressedFlag != 0 {
				chunk1PayloadLen = size1
			} else {
				chunk1PayloadLen = int(total1) - chunkHeaderSize
			}
			secondHeaderOff := chunkHeaderSize + chunk1PayloadLen
			_, size2 := getChunkHeader(enc[secondHeaderOff : secondHeaderOff+chunkHeaderSize])
			So(size2, ShouldEqual, 70000-MaxChunkSize)

			dec, err := DecodeV2(enc)
			So(err, ShouldBeNil)
			So(dec, ShouldResemble, input)
		})
	})
}
