// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"

	digest "github.com/opencontainers/go-digest"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/luci/luci-go/common/errors"
)

// FingerprintScheme selects which hash Fingerprint uses.
type FingerprintScheme int

// Supported fingerprint schemes.
const (
	FingerprintBlake2b256 FingerprintScheme = iota
	FingerprintSHA3_256
)

// blake2b256Algorithm and sha3_256Algorithm are go-digest Algorithm
// values for hashes go-digest doesn't register on its own; go-digest's
// NewDigestFromEncoded only formats "<algorithm>:<hex>", it doesn't
// require the algorithm be one of its built-ins.
const (
	blake2b256Algorithm digest.Algorithm = "blake2b-256"
	sha3_256Algorithm   digest.Algorithm = "sha3-256"
)

// Fingerprint hashes the serialized form of the archive (via Emit into an
// in-memory buffer) and returns the resulting digest, in the form written
// to a "<name>.par.digest" sidecar. The fingerprint covers exactly the
// bytes Emit would produce, never the filesystem tree, so it detects
// drift between a checked-in ".par" and whatever Emit would write today.
func (a *Archive) Fingerprint(ctx context.Context, scheme FingerprintScheme, opts *EmitOptions) (digest.Digest, error) {
	var buf bytes.Buffer
	if err := a.Emit(ctx, &buf, opts); err != nil {
		return "", errors.Annotate(err).Reason("archive: emitting for fingerprint").Err()
	}

	switch scheme {
	case FingerprintBlake2b256:
		sum := blake2b.Sum256(buf.Bytes())
		return digest.NewDigestFromEncoded(blake2b256Algorithm, hex.EncodeToString(sum[:])), nil
	case FingerprintSHA3_256:
		sum := sha3.Sum256(buf.Bytes())
		return digest.NewDigestFromEncoded(sha3_256Algorithm, hex.EncodeToString(sum[:])), nil
	}
	return "", errors.Reason("archive: unknown fingerprint scheme %(scheme)d").D("scheme", int(scheme)).Err()
}

// WriteFingerprintSidecar computes a's fingerprint and writes it as a
// single digest-string line to digestPath.
func (a *Archive) WriteFingerprintSidecar(ctx context.Context, digestPath string, scheme FingerprintScheme, opts *EmitOptions) error {
	d, err := a.Fingerprint(ctx, scheme, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(digestPath, []byte(d.String()+"\n"), 0o644)
}

// VerifyFingerprint recomputes a's fingerprint and compares it against
// the digest recorded in digestPath, returning an error if they differ.
func (a *Archive) VerifyFingerprint(ctx context.Context, digestPath string, scheme FingerprintScheme, opts *EmitOptions) error {
	want, err := os.ReadFile(digestPath)
	if err != nil {
		return errors.Annotate(err).Reason("archive: reading digest sidecar %(path)q").D("path", digestPath).Err()
	}
	got, err := a.Fingerprint(ctx, scheme, opts)
	if err != nil {
		return err
	}
	if string(bytes.TrimSpace(want)) != got.String() {
		return errors.Reason("archive: fingerprint mismatch: sidecar says %(want)q, archive hashes to %(got)q").
			D("want", string(bytes.TrimSpace(want))).D("got", got.String()).Err()
	}
	return nil
}
