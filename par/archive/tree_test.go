// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	. "github.com/luci/luci-go/common/testing/assertions"
)

func writeTree(tst *testing.T, root string, files map[string]string) {
	for name, content := range files {
		full := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			tst.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			tst.Fatal(err)
		}
	}
}

func TestBuildFromPathAndExtractTo(tst *testing.T) {
	tst.Parallel()

	Convey("BuildFromPath then ExtractTo reproduces the source tree", tst, func() {
		src, err := os.MkdirTemp("", "archive-src")
		So(err, ShouldBeNil)
		defer os.RemoveAll(src)

		writeTree(tst, src, map[string]string{
			"top.txt":          "top level",
			"sub/nested.txt":   "nested content",
			"sub/deep/x.bin":   "deep content",
		})

		a, err := BuildFromPath(src, nil)
		So(err, ShouldBeNil)
		So(a.Root.Files, ShouldHaveLength, 1)
		So(a.Root.Subdirectories, ShouldHaveLength, 1)

		dst, err := os.MkdirTemp("", "archive-dst")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dst)

		So(a.ExtractTo(context.Background(), dst, nil), ShouldBeNil)

		got, err := os.ReadFile(filepath.Join(dst, "top.txt"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "top level")

		got, err = os.ReadFile(filepath.Join(dst, "sub", "nested.txt"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "nested content")

		got, err = os.ReadFile(filepath.Join(dst, "sub", "deep", "x.bin"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "deep content")
	})

	Convey("BuildFromPath rejects a non-directory root", tst, func() {
		f, err := os.CreateTemp("", "archive-notdir")
		So(err, ShouldBeNil)
		f.Close()
		defer os.Remove(f.Name())

		_, err = BuildFromPath(f.Name(), nil)
		So(err, ShouldErrLike, "is not a directory")
	})
}

func TestBuildFromPathThenEmitThenParse(tst *testing.T) {
	tst.Parallel()

	Convey("a filesystem tree survives a full Emit/Parse/ExtractTo cycle", tst, func() {
		src, err := os.MkdirTemp("", "archive-src2")
		So(err, ShouldBeNil)
		defer os.RemoveAll(src)
		writeTree(tst, src, map[string]string{"a.txt": "hello", "dir/b.txt": "world"})

		a, err := BuildFromPath(src, nil)
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(a.Emit(context.Background(), &buf, &EmitOptions{}), ShouldBeNil)

		parsed, err := Parse(buf.Bytes(), &ParseOptions{LoadAllData: true})
		So(err, ShouldBeNil)

		dst, err := os.MkdirTemp("", "archive-dst2")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dst)
		So(parsed.ExtractTo(context.Background(), dst, nil), ShouldBeNil)

		got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "hello")

		got, err = os.ReadFile(filepath.Join(dst, "dir", "b.txt"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "world")
	})
}

func TestFlattenLeafDirectorySentinel(tst *testing.T) {
	tst.Parallel()

	Convey("every leaf directory's FirstDirIndex is the final DirCount sentinel", tst, func() {
		// root
		// ├── A (leaf)
		// ├── B (leaf)
		// └── C
		//     └── D (leaf)
		a := NewArchive("sentinel")
		root := NewDirectory("")
		dirA := NewDirectory("A")
		dirB := NewDirectory("B")
		dirC := NewDirectory("C")
		dirD := NewDirectory("D")
		dirC.Subdirectories = append(dirC.Subdirectories, dirD)
		root.Subdirectories = append(root.Subdirectories, dirA, dirB, dirC)
		a.Root = root

		a.flatten(RootDirOmit)

		So(len(a.Directories), ShouldEqual, 4)
		sentinel := uint32(len(a.Directories))
		So(dirA.DirCount, ShouldEqual, uint32(0))
		So(dirA.FirstDirIndex, ShouldEqual, sentinel)
		So(dirB.DirCount, ShouldEqual, uint32(0))
		So(dirB.FirstDirIndex, ShouldEqual, sentinel)
		So(dirD.DirCount, ShouldEqual, uint32(0))
		So(dirD.FirstDirIndex, ShouldEqual, sentinel)

		// C has a real subdirectory range, not the sentinel.
		So(dirC.DirCount, ShouldEqual, uint32(1))
		So(dirC.FirstDirIndex, ShouldNotEqual, sentinel)
	})
}
