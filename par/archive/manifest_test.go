// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	. "github.com/luci/luci-go/common/testing/assertions"

	"github.com/quinacrid/parc/par/sllz"
)

func TestManifestRoundTrip(tst *testing.T) {
	tst.Parallel()

	Convey("WriteManifest then ReadManifest", tst, func() {
		a := buildSimpleArchive()

		dir, err := os.MkdirTemp("", "manifest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "archive.manifest")

		So(WriteManifest(a, path), ShouldBeNil)

		ma, err := ReadManifest(path)
		So(err, ShouldBeNil)
		So(ma.platform, ShouldEqual, a.Platform)
		So(ma.subdirs, ShouldHaveLength, 1)
		So(ma.files, ShouldHaveLength, 1)

		So(ma.files[0].name, ShouldEqual, "hello.txt")
		So(ma.files[0].compressed, ShouldBeFalse)

		So(ma.subdirs[0].name, ShouldEqual, "sub")
		So(ma.subdirs[0].files, ShouldHaveLength, 1)
		So(ma.subdirs[0].files[0].name, ShouldEqual, "nested.bin")
	})

	Convey("a manifest missing its header is rejected", tst, func() {
		dir, err := os.MkdirTemp("", "manifest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "bad.manifest")
		So(os.WriteFile(path, []byte("not a manifest\n"), 0o644), ShouldBeNil)

		_, err = ReadManifest(path)
		So(err, ShouldErrLike, "header")
	})

	Convey("an unclosed tag is rejected", tst, func() {
		dir, err := os.MkdirTemp("", "manifest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "unclosed.manifest")
		content := manifestHeader + "\n<archive>\nName\ta\nPlat\t2\nEndi\t0\nSExt\tN\nRelo\tN\nFSM\t1\nUnkA\t1\nDC\t0\nFC\t0\n<dir>\nName\tsub\n"
		So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

		_, err = ReadManifest(path)
		So(err, ShouldErrLike, "unclosed")
	})

	Convey("an archive whose FC does not match its files is rejected", tst, func() {
		dir, err := os.MkdirTemp("", "manifest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "mismatch.manifest")
		content := manifestHeader + "\n" +
			"<archive>\n" +
			"Name\ta\nPlat\t2\nEndi\t0\nSExt\tN\nRelo\tN\nFSM\t1\nUnkA\t1\nDC\t0\nFC\t1\n" +
			"<file>\nName\ta\nComp\tN\nTime\t0\n</file>\n" +
			"<file>\nName\tb\nComp\tN\nTime\t0\n</file>\n" +
			"</archive>\n"
		So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

		_, err = ReadManifest(path)
		So(err, ShouldErrLike, "FC")
	})

	Convey("a duplicate child name is rejected", tst, func() {
		dir, err := os.MkdirTemp("", "manifest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "dup.manifest")
		content := manifestHeader + "\n" +
			"<archive>\n" +
			"Name\ta\nPlat\t2\nEndi\t0\nSExt\tN\nRelo\tN\nFSM\t1\nUnkA\t1\nDC\t0\nFC\t2\n" +
			"<file>\nName\ta\nComp\tN\nTime\t0\n</file>\n" +
			"<file>\nName\ta\nComp\tN\nTime\t0\n</file>\n" +
			"</archive>\n"
		So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

		_, err = ReadManifest(path)
		So(err, ShouldErrLike, "duplicate")
	})

	Convey("ArchiveFromManifest re-attaches payloads and re-encodes compressed files", tst, func() {
		ctx := context.Background()
		a := buildSimpleArchive()

		So(a.Files[0].Encode(ctx, DefaultOptions(), EncodeParams{Scheme: SLLZv1, Endian: sllz.LittleEndian}, true), ShouldBeNil)

		dir, err := os.MkdirTemp("", "manifest-roundtrip")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		manifestPath := filepath.Join(dir, "archive.manifest")
		So(WriteManifest(a, manifestPath), ShouldBeNil)

		So(os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("world"), 0o644), ShouldBeNil)
		So(os.MkdirAll(filepath.Join(dir, "sub"), 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "sub", "nested.bin"), []byte{1, 2, 3}, 0o644), ShouldBeNil)

		rebuilt, err := ArchiveFromManifest(ctx, manifestPath, dir, nil)
		So(err, ShouldBeNil)
		So(rebuilt.Platform, ShouldEqual, a.Platform)
		So(rebuilt.Files, ShouldHaveLength, 2)

		var helloFile *File
		for _, f := range rebuilt.Files {
			if f.Name == "hello.txt" {
				helloFile = f
			}
		}
		So(helloFile, ShouldNotBeNil)
		So(helloFile.IsCompressed(), ShouldBeTrue)

		payload, err := helloFile.Payload()
		So(err, ShouldBeNil)
		decoded, err := sllz.Decode(payload)
		So(err, ShouldBeNil)
		So(string(decoded), ShouldEqual, "world")
	})
}
