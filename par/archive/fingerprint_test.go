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
)

func TestFingerprint(tst *testing.T) {
	tst.Parallel()

	Convey("WriteFingerprintSidecar then VerifyFingerprint", tst, func() {
		a := buildSimpleArchive()
		dir, err := os.MkdirTemp("", "digest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		digestPath := filepath.Join(dir, "archive.par.digest")

		So(a.WriteFingerprintSidecar(context.Background(), digestPath, FingerprintBlake2b256, &EmitOptions{}), ShouldBeNil)
		So(a.VerifyFingerprint(context.Background(), digestPath, FingerprintBlake2b256, &EmitOptions{}), ShouldBeNil)
	})

	Convey("VerifyFingerprint rejects a changed archive", tst, func() {
		a := buildSimpleArchive()
		dir, err := os.MkdirTemp("", "digest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		digestPath := filepath.Join(dir, "archive.par.digest")

		So(a.WriteFingerprintSidecar(context.Background(), digestPath, FingerprintSHA3_256, &EmitOptions{}), ShouldBeNil)

		a.Files[0].Attributes = 0xDEAD
		err = a.VerifyFingerprint(context.Background(), digestPath, FingerprintSHA3_256, &EmitOptions{})
		So(err, ShouldErrLike, "mismatch")
	})
}
