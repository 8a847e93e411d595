// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package binstream

import (
	"encoding/binary"

	"github.com/luci/luci-go/common/errors"
)

// Writer is an in-memory binary writer with a configurable stream
// endianness and the same position-stack support as Reader. Writes past
// the current end of the buffer grow it, zero-filling any gap, which is
// what lets two-pass layout reserve a header slot, write the payload
// region, and then seek back to backpatch the header.
type Writer struct {
	buf   []byte
	pos   int64
	order binary.ByteOrder
	stack []int64
}

// NewWriter creates an empty Writer with the given initial byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// SetOrder changes the byte order used by subsequent multi-byte writes.
func (w *Writer) SetOrder(order binary.ByteOrder) { w.order = order }

// Order returns the writer's current byte order.
func (w *Writer) Order() binary.ByteOrder { return w.order }

// Len returns the current length of the written stream.
func (w *Writer) Len() int64 { return int64(len(w.buf)) }

// Pos returns the current absolute write position.
func (w *Writer) Pos() int64 { return w.pos }

// Bytes returns the underlying buffer. The caller must not retain it across
// further writes.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) growTo(n int64) {
	if n <= int64(len(w.buf)) {
		return
	}
	grown := make([]byte, n)
	copy(grown, w.buf)
	w.buf = grown
}

// Seek moves the write position to an absolute offset, growing the buffer
// with zero bytes if offset is past the current end.
func (w *Writer) Seek(offset int64) error {
	if offset < 0 {
		return errors.Reason("binstream: seek to negative offset %(off)d").D("off", offset).Err()
	}
	w.growTo(offset)
	w.pos = offset
	return nil
}

// PushForward saves the current position on the stack and seeks absolute to
// offset.
func (w *Writer) PushForward(offset int64) error {
	saved := w.pos
	if err := w.Seek(offset); err != nil {
		return err
	}
	w.stack = append(w.stack, saved)
	return nil
}

// PushForwardToEnd saves the current position on the stack and seeks to the
// end of the stream.
func (w *Writer) PushForwardToEnd() error {
	w.stack = append(w.stack, w.pos)
	w.pos = int64(len(w.buf))
	return nil
}

// PopBack restores the most recently pushed position.
func (w *Writer) PopBack() error {
	if len(w.stack) == 0 {
		return errors.New("binstream: pop with empty position stack")
	}
	n := len(w.stack) - 1
	w.pos = w.stack[n]
	w.stack = w.stack[:n]
	return nil
}

// PadTo extends the stream length with zero bytes up to the next multiple
// of boundary. It does not move the current write position.
func (w *Writer) PadTo(boundary int64) error {
	if boundary <= 0 {
		return errors.Reason("binstream: bad pad boundary %(b)d").D("b", boundary).Err()
	}
	rem := int64(len(w.buf)) % boundary
	if rem == 0 {
		return nil
	}
	w.growTo(int64(len(w.buf)) + (boundary - rem))
	return nil
}

// WriteBytes writes data at the current position, growing the buffer as
// needed, and advances the position.
func (w *Writer) WriteBytes(data []byte) error {
	end := w.pos + int64(len(data))
	w.growTo(end)
	copy(w.buf[w.pos:end], data)
	w.pos = end
	return nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.WriteBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes a 16-bit integer using the writer's current byte order.
func (w *Writer) WriteUint16(v uint16) error {
	b := make([]byte, 2)
	w.order.PutUint16(b, v)
	return w.WriteBytes(b)
}

// WriteUint32 writes a 32-bit integer using the writer's current byte order.
func (w *Writer) WriteUint32(v uint32) error {
	b := make([]byte, 4)
	w.order.PutUint32(b, v)
	return w.WriteBytes(b)
}

// WriteUint64 writes a 64-bit integer using the writer's current byte order.
func (w *Writer) WriteUint64(v uint64) error {
	b := make([]byte, 8)
	w.order.PutUint64(b, v)
	return w.WriteBytes(b)
}

// WriteZeros writes n zero bytes at the current position.
func (w *Writer) WriteZeros(n int) error {
	return w.WriteBytes(make([]byte, n))
}
