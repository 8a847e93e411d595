// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DecodeAll decodes every file's payload concurrently, bounded by
// GOMAXPROCS. A failure does not stop the remaining files from being
// decoded; every file is attempted and the first error is returned.
func (a *Archive) DecodeAll(ctx context.Context, opts Options) error {
	return a.forEachFile(ctx, func(ctx context.Context, f *File) error {
		return f.Decode(ctx, opts)
	})
}

// EncodeAll SLLZ-encodes every file's payload concurrently with the same
// params, bounded by GOMAXPROCS.
func (a *Archive) EncodeAll(ctx context.Context, opts Options, params EncodeParams, force bool) error {
	return a.forEachFile(ctx, func(ctx context.Context, f *File) error {
		return f.Encode(ctx, opts, params, force)
	})
}

// forEachFile runs fn over every file in a.Files using a worker pool
// sized to GOMAXPROCS, via golang.org/x/sync/errgroup.
func (a *Archive) forEachFile(ctx context.Context, fn func(context.Context, *File) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range a.Files {
		f := f
		g.Go(func() error {
			return fn(gctx, f)
		})
	}
	return g.Wait()
}
