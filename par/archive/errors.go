// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"
)

// Error constructors. These build annotated luci-go errors rather than
// sentinel values so that every fatal condition carries the details that
// triggered it (the file name, or the sizes and counts involved).

func errDataNotLoaded(name, op string) error {
	return errors.Reason("archive: %(op)s requires loaded data for %(name)q, call LoadData first").
		D("op", op).D("name", name).Err()
}

func errTruncatedArchive(declared, actual int64) error {
	return errors.Reason("archive: truncated archive: header declares %(declared)d bytes, stream has %(actual)d").
		D("declared", declared).D("actual", actual).Err()
}

func errSizeOverflow(name string, size int64) error {
	return errors.Reason("archive: %(name)q is %(size)d bytes, at or above the 2GiB limit").
		D("name", name).D("size", size).Err()
}

func errCountTooHigh(what string, count, max int) error {
	return errors.Reason("archive: %(what)s count %(count)d exceeds limit of %(max)d").
		D("what", what).D("count", count).D("max", max).Err()
}

// warnf logs a warning-kind condition unless opts.SuppressWarnings is set.
func warnf(ctx context.Context, opts Options, format string, args ...interface{}) {
	if opts.SuppressWarnings {
		return
	}
	logging.Warningf(ctx, format, args...)
}
