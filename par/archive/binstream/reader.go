// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package binstream

import (
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Reader is a byte-slice-backed binary reader with a configurable stream
// endianness and a position stack supporting two-pass parsing (e.g. peek
// ahead at a table, then resume where the caller left off).
type Reader struct {
	data  []byte
	pos   int64
	order binary.ByteOrder
	stack []int64
}

// NewReader wraps data for reading with the given initial byte order. The
// order can be changed at any point with SetOrder; it only affects
// multi-byte reads that happen after the call.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

// SetOrder changes the byte order used by subsequent multi-byte reads.
func (r *Reader) SetOrder(order binary.ByteOrder) { r.order = order }

// Order returns the reader's current byte order.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// Len returns the total length of the underlying data.
func (r *Reader) Len() int64 { return int64(len(r.data)) }

// Pos returns the current absolute read position.
func (r *Reader) Pos() int64 { return r.pos }

// Seek moves the read position to an absolute offset.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(r.data)) {
		return errors.Reason("binstream: seek out of range: %(pos)d (len %(len)d)").
			D("pos", pos).D("len", len(r.data)).Err()
	}
	r.pos = pos
	return nil
}

// PushForward saves the current position on the stack and seeks absolute to
// offset.
func (r *Reader) PushForward(offset int64) error {
	saved := r.pos
	if err := r.Seek(offset); err != nil {
		return err
	}
	r.stack = append(r.stack, saved)
	return nil
}

// PushForwardToEnd saves the current position on the stack and seeks to the
// end of the stream.
func (r *Reader) PushForwardToEnd() error {
	r.stack = append(r.stack, r.pos)
	r.pos = int64(len(r.data))
	return nil
}

// PopBack restores the most recently pushed position.
func (r *Reader) PopBack() error {
	if len(r.stack) == 0 {
		return errors.New("binstream: pop with empty position stack")
	}
	n := len(r.stack) - 1
	r.pos = r.stack[n]
	r.stack = r.stack[:n]
	return nil
}

// ReadBytes reads and returns the next n bytes, advancing the position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+int64(n) > int64(len(r.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	buf := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return buf, nil
}

// ReadFull reads exactly len(buf) bytes into buf.
func (r *Reader) ReadFull(buf []byte) error {
	b, err := r.ReadBytes(len(buf))
	if err != nil {
		return err
	}
	copy(buf, b)
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a 16-bit integer using the reader's current byte order.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// ReadUint32 reads a 32-bit integer using the reader's current byte order.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadUint64 reads a 64-bit integer using the reader's current byte order.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// Remaining returns a slice of the bytes from the current position to the
// end of the stream, without advancing the position.
func (r *Reader) Remaining() []byte {
	return r.data[r.pos:]
}
