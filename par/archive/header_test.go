// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitDataOffset(tst *testing.T) {
	tst.Parallel()

	Convey("splitDataOffset", tst, func() {
		Convey("offsets that fit in 32 bits round-trip through low32 directly", func() {
			low, high := splitDataOffset(0x1234)
			So(low, ShouldEqual, uint32(0x1234))
			So(high, ShouldEqual, uint32(0))
			So(joinDataOffset(low, high), ShouldEqual, int64(0x1234))
		})

		Convey("an offset at exactly 0xFFFFFFFF keeps the real value in low32", func() {
			low, high := splitDataOffset(0xFFFFFFFF)
			So(low, ShouldEqual, uint32(0xFFFFFFFF))
			So(high, ShouldEqual, uint32(0))
		})

		Convey("an offset past 32 bits forces the low32 sentinel", func() {
			offset := int64(0x1_0000_0000) + 0x42
			low, high := splitDataOffset(offset)
			So(low, ShouldEqual, uint32(0xFFFFFFFF))
			So(high, ShouldEqual, uint32(1))
		})
	})
}

func TestNamePadding(tst *testing.T) {
	tst.Parallel()

	Convey("padName and unpadName round-trip", tst, func() {
		buf, err := padName("hello.txt")
		So(err, ShouldBeNil)
		So(len(buf), ShouldEqual, nameEntrySize)
		So(unpadName(buf), ShouldEqual, "hello.txt")
	})

	Convey("padName rejects names that overflow the fixed entry size", tst, func() {
		long := make([]byte, nameEntrySize+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := padName(string(long))
		So(err, ShouldNotBeNil)
	})
}
