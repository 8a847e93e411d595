// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import "sync"

// FileSizeMode controls whether Archive.Emit writes the total archive data
// size into the header.
type FileSizeMode byte

// Supported file-size modes. The wire field only ever holds one of these
// two values; a rounded-up total size is expressed externally as
// EmitOptions.RoundSizeUp, not as a third persisted mode.
const (
	// WriteSize backpatches the header's total-size field with the final
	// stream length.
	WriteSize FileSizeMode = 1
	// OmitSize leaves the header's total-size field as zero.
	OmitSize FileSizeMode = 2
)

// RootDirMode controls whether a synthesized root directory gets its own
// entry in the flat directories table when emitting.
type RootDirMode int

// Supported root-directory emission modes.
const (
	// RootDirOmit never writes an explicit entry for the root, whether it
	// was synthesized or parsed from an explicit entry on disk; the
	// top-level directories/files of the tree become the flat arrays'
	// leading run. This matches how Parse synthesizes a root when none is
	// present on disk.
	RootDirOmit RootDirMode = iota
	// RootDirInclude always writes an explicit root directory entry, even
	// if it had to be synthesized. The entry carries the root's own name,
	// which is empty for a synthesized root.
	RootDirInclude
)

// Options is the immutable process-wide configuration block: it is meant
// to be set once before any archive operation and left stable, but unlike
// the original tool's global mutable settings, library entry points take
// it as an explicit parameter rather than reading global state directly.
type Options struct {
	// Verbose is the verbosity flag of the settings block. No operation in
	// this package reads it; it produces no extra output.
	Verbose bool
	// SuppressWarnings silences warning-kind conditions (EncodeRedundant,
	// SLLZ self-heal notices) instead of logging them.
	SuppressWarnings bool
	// RootDirEmission controls root-directory entry emission (see
	// RootDirMode).
	RootDirEmission RootDirMode
	// DefaultFileSizeMode seeds Archive.FileSizeMode for newly built
	// archives (BuildFromPath); it has no effect on archives loaded via
	// Parse, which keep whatever mode the header declared.
	DefaultFileSizeMode FileSizeMode
	// GenerateManifest, when true, makes ExtractTo also write a manifest
	// sidecar next to the extracted tree.
	GenerateManifest bool
}

// DefaultOptions returns the conventional defaults: file-size mode 1
// (write size), root directory entry omitted, warnings surfaced, manifest
// generation off.
func DefaultOptions() Options {
	return Options{
		RootDirEmission:     RootDirOmit,
		DefaultFileSizeMode: WriteSize,
	}
}

// Global is a thin mutable facade over a package-level default Options,
// for callers that want the original tool's global-setter ergonomics. New
// code should prefer passing an explicit *Options to each operation;
// Global exists only for parity with the original tool's process-wide
// settings block.
var Global = struct {
	mu  sync.Mutex
	opt Options
}{opt: DefaultOptions()}

// SetVerbosity sets the shared default Options' Verbose flag.
func SetVerbosity(v bool) {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	Global.opt.Verbose = v
}

// SetSuppressWarnings sets the shared default Options' SuppressWarnings flag.
func SetSuppressWarnings(v bool) {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	Global.opt.SuppressWarnings = v
}

// SetRootDirEmission sets the shared default Options' RootDirEmission mode.
func SetRootDirEmission(m RootDirMode) {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	Global.opt.RootDirEmission = m
}

// SetDefaultFileSizeMode sets the shared default Options' DefaultFileSizeMode.
func SetDefaultFileSizeMode(m FileSizeMode) {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	Global.opt.DefaultFileSizeMode = m
}

// SetGenerateManifest sets the shared default Options' GenerateManifest flag.
func SetGenerateManifest(v bool) {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	Global.opt.GenerateManifest = v
}

// CurrentOptions returns a snapshot of the shared default Options.
func CurrentOptions() Options {
	Global.mu.Lock()
	defer Global.mu.Unlock()
	return Global.opt
}

// resolveOptions returns opt if non-nil, otherwise a snapshot of the
// shared global default.
func resolveOptions(opt *Options) Options {
	if opt != nil {
		return *opt
	}
	return CurrentOptions()
}
