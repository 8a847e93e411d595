// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sllz

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/luci/luci-go/common/errors"
)

// MaxChunkSize is the largest number of decompressed bytes a single v2
// chunk may hold.
const MaxChunkSize = 65536

// chunkUncompressedFlag is the high bit of the 24-bit chunk_total field
// that marks a chunk as stored raw (no DEFLATE payload follows it whose
// length can be derived from chunk_total).
const chunkUncompressedFlag = 0x800000

const chunkHeaderSize = 5

func putChunkHeader(w io.Writer, total uint32, sizeMinusOne uint16) error {
	b := [chunkHeaderSize]byte{
		byte(total >> 16),
		byte(total >> 8),
		byte(total),
		byte(sizeMinusOne >> 8),
		byte(sizeMinusOne),
	}
	_, err := w.Write(b[:])
	return err
}

func getChunkHeader(b []byte) (total uint32, size int) {
	total = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	sizeMinusOne := uint16(b[3])<<8 | uint16(b[4])
	return total, int(sizeMinusOne) + 1
}

func deflateEncode(chunk []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw, err := flate.NewWriter(buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(chunk); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeV2 splits data into chunks of up to MaxChunkSize bytes and DEFLATE
// compresses each, falling back to a raw chunk when compression doesn't
// shrink it.
func EncodeV2(data []byte) ([]byte, error) {
	out := &bytes.Buffer{}
	for off := 0; off < len(data); off += MaxChunkSize {
		end := off + MaxChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		compressed, err := deflateEncode(chunk)
		if err != nil {
			return nil, errors.Annotate(err).Reason("sllz: v2 chunk compression").Err()
		}

		sizeMinusOne := uint16(len(chunk) - 1)
		if len(compressed) >= len(chunk) {
			if err := putChunkHeader(out, chunkUncompressedFlag, sizeMinusOne); err != nil {
				return nil, err
			}
			out.Write(chunk)
		} else {
			total := uint32(len(compressed) + chunkHeaderSize)
			if err := putChunkHeader(out, total, sizeMinusOne); err != nil {
				return nil, err
			}
			out.Write(compressed)
		}
	}
	return out.Bytes(), nil
}

// DecodeV2 reverses EncodeV2, concatenating every chunk's decompressed
// bytes in order.
func DecodeV2(data []byte) ([]byte, error) {
	out := &bytes.Buffer{}
	pos := 0
	for pos < len(data) {
		if pos+chunkHeaderSize > len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		total, chunkSize := getChunkHeader(data[pos : pos+chunkHeaderSize])
		pos += chunkHeaderSize

		if total&chunkUncompressedFlag != 0 {
			if pos+chunkSize > len(data) {
				return nil, io.ErrUnexpectedEOF
			}
			out.Write(data[pos : pos+chunkSize])
			pos += chunkSize
			continue
		}

		payloadLen := int(total) - chunkHeaderSize
		if payloadLen < 0 || pos+payloadLen > len(data) {
			return nil, errors.Reason("sllz: v2 chunk declares invalid payload length %(n)d").
				D("n", payloadLen).Err()
		}
		zr := flate.NewReader(bytes.NewReader(data[pos : pos+payloadLen]))
		decoded, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, errors.Annotate(err).Reason("sllz: v2 chunk decompression").Err()
		}
		if len(decoded) != chunkSize {
			return nil, errors.Reason("sllz: v2 chunk decoded to %(got)d bytes, expected %(want)d").
				D("got", len(decoded)).D("want", chunkSize).Err()
		}
		out.Write(decoded)
		pos += payloadLen
	}
	return out.Bytes(), nil
}
