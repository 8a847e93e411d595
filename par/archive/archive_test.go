// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	. "github.com/luci/luci-go/common/testing/assertions"

	"github.com/quinacrid/parc/par/archive/binstream"
	"github.com/quinacrid/parc/par/sllz"
)

func buildSimpleArchive() *Archive {
	a := NewArchive("t")
	root := NewDirectory("")
	f1 := NewFile("hello.txt")
	f1.Size = 5
	f1.EntryLength = 5
	f1.SetData([]byte("world"), false)
	sub := NewDirectory("sub")
	f2 := NewFile("nested.bin")
	f2.Size = 3
	f2.EntryLength = 3
	f2.SetData([]byte{1, 2, 3}, false)
	sub.Files = append(sub.Files, f2)
	root.Files = append(root.Files, f1)
	root.Subdirectories = append(root.Subdirectories, sub)
	a.Root = root
	a.flatten(RootDirOmit)
	a.dataLoaded = true
	return a
}

func TestEmitParseRoundTrip(tst *testing.T) {
	tst.Parallel()

	Convey("Emit then Parse reproduces the same tree", tst, func() {
		a := buildSimpleArchive()
		var buf bytes.Buffer
		So(a.Emit(context.Background(), &buf, &EmitOptions{}), ShouldBeNil)

		parsed, err := Parse(buf.Bytes(), &ParseOptions{LoadAllData: true})
		So(err, ShouldBeNil)
		So(len(parsed.Files), ShouldEqual, 2)
		So(len(parsed.Directories), ShouldEqual, 1)

		var names []string
		for _, f := range parsed.Files {
			names = append(names, f.Name)
		}
		So(names, ShouldResemble, []string{"hello.txt", "nested.bin"})

		p, err := parsed.Files[0].Payload()
		So(err, ShouldBeNil)
		So(string(p), ShouldEqual, "world")
	})

	Convey("bad magic is rejected", tst, func() {
		_, err := Parse([]byte("not a par file at all........."), nil)
		So(err, ShouldErrLike, "bad magic")
	})

	Convey("RoundSizeUp rounds the backpatched size up to the alignment without changing the persisted mode", tst, func() {
		a := buildSimpleArchive()
		a.FileSizeMode = WriteSize
		var buf bytes.Buffer
		So(a.Emit(context.Background(), &buf, &EmitOptions{Align: 0x800, RoundSizeUp: true}), ShouldBeNil)

		r := binstream.NewReader(buf.Bytes(), binary.LittleEndian)
		hdr, err := readArchiveHeader(r)
		So(err, ShouldBeNil)
		So(hdr.FileSizeMode, ShouldEqual, WriteSize)
		So(hdr.TotalSize%0x800, ShouldEqual, uint32(0))
		So(int64(hdr.TotalSize) >= int64(buf.Len()), ShouldBeTrue)
	})

	Convey("empty archive round-trips", tst, func() {
		a := NewArchive("empty")
		a.Root = NewDirectory("")
		a.flatten(RootDirOmit)
		a.dataLoaded = true

		var buf bytes.Buffer
		So(a.Emit(context.Background(), &buf, &EmitOptions{}), ShouldBeNil)

		parsed, err := Parse(buf.Bytes(), nil)
		So(err, ShouldBeNil)
		So(len(parsed.Files), ShouldEqual, 0)
		So(len(parsed.Directories), ShouldEqual, 0)
	})
}

func TestDirectoryTreeAliasing(tst *testing.T) {
	tst.Parallel()

	Convey("flat Files and the owning directory's Files view share objects", tst, func() {
		a := buildSimpleArchive()
		So(a.Files[0], ShouldEqual, a.Root.Files[0])
		So(a.Files[1], ShouldEqual, a.Root.Subdirectories[0].Files[0])
	})
}

func TestReplaceFile(tst *testing.T) {
	tst.Parallel()

	Convey("ReplaceFile", tst, func() {
		a := buildSimpleArchive()

		Convey("swaps the flat slot and the owning directory's view", func() {
			replacement := NewFile("hello2.txt")
			replacement.SetData([]byte("renamed"), false)
			So(a.ReplaceFile(0, replacement), ShouldBeNil)
			So(a.Files[0], ShouldEqual, replacement)
			So(a.Root.Files[0], ShouldEqual, replacement)
			So(replacement.ContainingDirectory, ShouldEqual, a.Root)
		})

		Convey("rejects an out-of-range index", func() {
			So(a.ReplaceFile(99, NewFile("x")), ShouldErrLike, "out of range")
		})

		Convey("the bounds check uses the directory's own count, not a fixed constant", func() {
			// sub's FileCount is 1, FirstFileIndex is 1 (after hello.txt).
			// Index 0 belongs to root, not sub.
			sub := a.Root.Subdirectories[0]
			So(sub.replaceFile(0, NewFile("intruder")), ShouldBeFalse)
			So(sub.replaceFile(1, NewFile("nested2.bin")), ShouldBeTrue)
		})
	})
}

func TestFlashFrom(tst *testing.T) {
	tst.Parallel()

	Convey("FlashFrom copies metadata across structurally identical archives", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()
		b := buildSimpleArchive()
		b.Files[0].Attributes = 0xAB
		b.Files[0].Timestamp = 42
		b.Platform = 9

		So(a.FlashFrom(ctx, b, nil), ShouldBeNil)
		So(a.Files[0].Attributes, ShouldEqual, uint32(0xAB))
		So(a.Files[0].Timestamp, ShouldEqual, uint64(42))
		So(a.Platform, ShouldEqual, byte(9))
	})

	Convey("FlashFrom rejects structurally different archives", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()
		b := NewArchive("different")
		b.Root = NewDirectory("")
		b.flatten(RootDirOmit)

		So(a.FlashFrom(ctx, b, nil), ShouldErrLike, "structurally identical")
	})

	Convey("FlashFrom rejects archives that differ only in endianness", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()
		b := buildSimpleArchive()
		b.Endian = BigEndian

		So(a.FlashFrom(ctx, b, nil), ShouldErrLike, "structurally identical")
	})

	Convey("FlashFrom encodes a plaintext file to match a compressed source", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()
		b := buildSimpleArchive()
		So(b.Files[0].Encode(ctx, DefaultOptions(), EncodeParams{Scheme: SLLZv1, Endian: sllz.LittleEndian}, true), ShouldBeNil)

		So(a.Files[0].IsCompressed(), ShouldBeFalse)
		So(a.FlashFrom(ctx, b, nil), ShouldBeNil)
		So(a.Files[0].IsCompressed(), ShouldBeTrue)

		compressed, err := a.Files[0].Payload()
		So(err, ShouldBeNil)
		decoded, err := sllz.Decode(compressed)
		So(err, ShouldBeNil)
		So(string(decoded), ShouldEqual, "world")
	})

	Convey("FlashFrom decodes a compressed file to match a plaintext source", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()
		b := buildSimpleArchive()
		So(a.Files[0].Encode(ctx, DefaultOptions(), EncodeParams{Scheme: SLLZv1, Endian: sllz.LittleEndian}, true), ShouldBeNil)

		So(a.Files[0].IsCompressed(), ShouldBeTrue)
		So(a.FlashFrom(ctx, b, nil), ShouldBeNil)
		So(a.Files[0].IsCompressed(), ShouldBeFalse)

		payload, err := a.Files[0].Payload()
		So(err, ShouldBeNil)
		So(string(payload), ShouldEqual, "world")
	})
}
