// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/luci/luci-go/common/errors"
)

// maxBackupKeep is the ceiling EmitOptions.BackupKeep is validated against.
const maxBackupKeep = 1000

// rotateBackups renames path -> path.1, path.1 -> path.2, ..., dropping
// anything that would fall past keep, before the caller overwrites path.
// A missing path (nothing to back up yet) is not an error.
func rotateBackups(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	if keep > maxBackupKeep {
		return errCountTooHigh("backup", keep, maxBackupKeep)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Annotate(err).Reason("archive: statting %(path)q before backup rotation").D("path", path).Err()
	}

	oldest := fmt.Sprintf("%s.%d", path, keep)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return errors.Annotate(err).Reason("archive: removing oldest backup %(path)q").D("path", oldest).Err()
	}
	for i := keep - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		to := fmt.Sprintf("%s.%d", path, i+1)
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) {
			return errors.Annotate(err).Reason("archive: rotating backup %(from)q to %(to)q").D("from", from).D("to", to).Err()
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return errors.Annotate(err).Reason("archive: rotating %(path)q to .1").D("path", path).Err()
	}
	return nil
}

// EmitToFile rotates any existing backups of path per opts.BackupKeep and
// then writes the archive there, the file-based counterpart to Emit for
// callers that don't already have an io.Writer open.
func (a *Archive) EmitToFile(ctx context.Context, path string, opts *EmitOptions) error {
	var eo EmitOptions
	if opts != nil {
		eo = *opts
	}
	if err := rotateBackups(path, eo.BackupKeep); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err).Reason("archive: creating %(path)q").D("path", path).Err()
	}
	defer f.Close()

	if err := a.Emit(ctx, f, &eo); err != nil {
		return err
	}
	return f.Close()
}
