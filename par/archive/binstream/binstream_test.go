// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package binstream

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	Convey("Writer", t, func() {
		w := NewWriter(binary.LittleEndian)

		Convey("scalar writes advance position", func() {
			So(w.WriteUint32(0xdeadbeef), ShouldBeNil)
			So(w.Pos(), ShouldEqual, 4)
			So(w.Bytes(), ShouldResemble, []byte{0xef, 0xbe, 0xad, 0xde})
		})

		Convey("big endian", func() {
			w.SetOrder(binary.BigEndian)
			So(w.WriteUint16(0x0102), ShouldBeNil)
			So(w.Bytes(), ShouldResemble, []byte{0x01, 0x02})
		})

		Convey("push/pop two-pass layout", func() {
			So(w.WriteUint32(0), ShouldBeNil) // reserved header slot
			So(w.PushForwardToEnd(), ShouldBeNil)
			So(w.WriteBytes([]byte("payload")), ShouldBeNil)
			So(w.PopBack(), ShouldBeNil)
			So(w.Pos(), ShouldEqual, 4)
			So(w.Seek(0), ShouldBeNil) // back to the reserved slot
			So(w.WriteUint32(7), ShouldBeNil)
			So(w.Bytes()[4:], ShouldResemble, []byte("payload"))
		})

		Convey("PadTo zero-fills to boundary", func() {
			So(w.WriteBytes([]byte{1, 2, 3}), ShouldBeNil)
			So(w.PadTo(8), ShouldBeNil)
			So(w.Len(), ShouldEqual, 8)
			So(w.Bytes(), ShouldResemble, []byte{1, 2, 3, 0, 0, 0, 0, 0})
		})

		Convey("pop with empty stack errors", func() {
			So(w.PopBack(), ShouldNotBeNil)
		})
	})
}

func TestReader(t *testing.T) {
	t.Parallel()

	Convey("Reader", t, func() {
		r := NewReader([]byte{0xef, 0xbe, 0xad, 0xde, 'h', 'i'}, binary.LittleEndian)

		Convey("scalar reads advance position", func() {
			v, err := r.ReadUint32()
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0xdeadbeef)
			So(r.Pos(), ShouldEqual, 4)
		})

		Convey("push forward and pop back", func() {
			So(r.PushForward(4), ShouldBeNil)
			b, err := r.ReadBytes(2)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "hi")
			So(r.PopBack(), ShouldBeNil)
			So(r.Pos(), ShouldEqual, 0)
		})

		Convey("short read errors", func() {
			_, err := r.ReadBytes(100)
			So(err, ShouldNotBeNil)
		})
	})
}
