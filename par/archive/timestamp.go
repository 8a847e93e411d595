// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"time"
)

// timestampOf converts a file's modification time into the archive's
// wire timestamp: seconds since 1970-01-01 UTC, platform-independent.
func timestampOf(info os.FileInfo) uint64 {
	return uint64(info.ModTime().Unix())
}

// setTimestamp applies a wire timestamp back to a file on disk.
func setTimestamp(path string, ts uint64) error {
	t := time.Unix(int64(ts), 0)
	return os.Chtimes(path, t, t)
}
