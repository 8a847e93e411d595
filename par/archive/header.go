// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"encoding/binary"

	"github.com/luci/luci-go/common/errors"

	"github.com/quinacrid/parc/par/archive/binstream"
)

// Magic is the 4-byte prefix of a PARC archive.
const Magic = "PARC"

// Fixed record sizes for the header, name table, and entry tables.
const (
	headerSize     = 0x20
	nameEntrySize  = 0x40
	dirEntrySize   = 0x20
	fileEntrySize  = 0x20
	defaultAlign   = 0x800
	finalAlignment = 0x800
)

// Endianness selects the byte order governing every multi-byte field in
// a PARC archive other than the magic.
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
	return nil, errors.Reason("archive: unknown endianness tag 0x%(e)x").D("e", byte(e)).Err()
}

// archiveHeaderWire is the 0x20-byte PARC archive header.
type archiveHeaderWire struct {
	Platform       byte
	Endian         Endianness
	SizeExtended   bool
	Relocated      bool
	FileSizeMode   FileSizeMode
	UnknownA       uint16
	TotalSize      uint32
	DirCount       uint32
	DirTableOffset uint32
	FileCount      uint32
	FileTableOffset uint32
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func readArchiveHeader(r *binstream.Reader) (archiveHeaderWire, error) {
	magic, err := r.ReadBytes(4)
	if err != nil {
		return archiveHeaderWire{}, errors.Annotate(err).Reason("archive: reading magic").Err()
	}
	if string(magic) != Magic {
		return archiveHeaderWire{}, errors.Reason("archive: bad magic %(got)q").D("got", string(magic)).Err()
	}

	platform, err := r.ReadUint8()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	endianByte, err := r.ReadUint8()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	h := archiveHeaderWire{Platform: platform, Endian: Endianness(endianByte)}
	order, err := h.Endian.order()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	r.SetOrder(order)

	sizeExt, err := r.ReadUint8()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	h.SizeExtended = sizeExt != 0

	relocated, err := r.ReadUint8()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	h.Relocated = relocated != 0

	fsm, err := r.ReadUint16()
	if err != nil {
		return archiveHeaderWire{}, err
	}
	h.FileSizeMode = FileSizeMode(fsm)

	if h.UnknownA, err = r.ReadUint16(); err != nil {
		return archiveHeaderWire{}, err
	}
	if h.TotalSize, err = r.ReadUint32(); err != nil {
		return archiveHeaderWire{}, err
	}
	if h.DirCount, err = r.ReadUint32(); err != nil {
		return archiveHeaderWire{}, err
	}
	if h.DirTableOffset, err = r.ReadUint32(); err != nil {
		return archiveHeaderWire{}, err
	}
	if h.FileCount, err = r.ReadUint32(); err != nil {
		return archiveHeaderWire{}, err
	}
	if h.FileTableOffset, err = r.ReadUint32(); err != nil {
		return archiveHeaderWire{}, err
	}
	return h, nil
}

func (h archiveHeaderWire) write(w *binstream.Writer) error {
	if err := w.WriteBytes([]byte(Magic)); err != nil {
		return err
	}
	if err := w.WriteUint8(h.Platform); err != nil {
		return err
	}
	if err := w.WriteUint8(byte(h.Endian)); err != nil {
		return err
	}
	if err := w.WriteUint8(boolByte(h.SizeExtended)); err != nil {
		return err
	}
	if err := w.WriteUint8(boolByte(h.Relocated)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(h.FileSizeMode)); err != nil {
		return err
	}
	if err := w.WriteUint16(h.UnknownA); err != nil {
		return err
	}
	if err := w.WriteUint32(h.TotalSize); err != nil {
		return err
	}
	if err := w.WriteUint32(h.DirCount); err != nil {
		return err
	}
	if err := w.WriteUint32(h.DirTableOffset); err != nil {
		return err
	}
	if err := w.WriteUint32(h.FileCount); err != nil {
		return err
	}
	return w.WriteUint32(h.FileTableOffset)
}

// dirHeaderWire is the 0x20-byte directory entry header.
type dirHeaderWire struct {
	DirCount       uint32
	FirstDirIndex  uint32
	FileCount      uint32
	FirstFileIndex uint32
	Attributes     uint32
}

func readDirHeader(r *binstream.Reader) (dirHeaderWire, error) {
	var h dirHeaderWire
	var err error
	if h.DirCount, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.FirstDirIndex, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.FileCount, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.FirstFileIndex, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.Attributes, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if _, err = r.ReadBytes(12); err != nil {
		return h, err
	}
	return h, nil
}

func (h dirHeaderWire) write(w *binstream.Writer) error {
	if err := w.WriteUint32(h.DirCount); err != nil {
		return err
	}
	if err := w.WriteUint32(h.FirstDirIndex); err != nil {
		return err
	}
	if err := w.WriteUint32(h.FileCount); err != nil {
		return err
	}
	if err := w.WriteUint32(h.FirstFileIndex); err != nil {
		return err
	}
	if err := w.WriteUint32(h.Attributes); err != nil {
		return err
	}
	return w.WriteZeros(12)
}

// fileHeaderWire is the 0x20-byte file entry header.
type fileHeaderWire struct {
	Compressed      bool
	Size            uint32
	EntryLength     uint32
	DataOffsetLow32 uint32
	Attributes      uint32
	DataOffsetHigh24 uint32
	Timestamp       uint64
}

const compressionFlagBit = 0x80000000

func readFileHeader(r *binstream.Reader) (fileHeaderWire, error) {
	var h fileHeaderWire
	flag, err := r.ReadUint32()
	if err != nil {
		return h, err
	}
	h.Compressed = flag&compressionFlagBit != 0

	if h.Size, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.EntryLength, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.DataOffsetLow32, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.Attributes, err = r.ReadUint32(); err != nil {
		return h, err
	}
	high, err := r.ReadUint32()
	if err != nil {
		return h, err
	}
	h.DataOffsetHigh24 = high & 0xFFFFFF
	if h.Timestamp, err = r.ReadUint64(); err != nil {
		return h, err
	}
	return h, nil
}

func (h fileHeaderWire) write(w *binstream.Writer) error {
	var flag uint32
	if h.Compressed {
		flag = compressionFlagBit
	}
	if err := w.WriteUint32(flag); err != nil {
		return err
	}
	if err := w.WriteUint32(h.Size); err != nil {
		return err
	}
	if err := w.WriteUint32(h.EntryLength); err != nil {
		return err
	}
	if err := w.WriteUint32(h.DataOffsetLow32); err != nil {
		return err
	}
	if err := w.WriteUint32(h.Attributes); err != nil {
		return err
	}
	if err := w.WriteUint32(h.DataOffsetHigh24 & 0xFFFFFF); err != nil {
		return err
	}
	return w.WriteUint64(h.Timestamp)
}

// splitDataOffset encodes an absolute offset into the wire format's
// low32/high24 pair: the high 24 bits always carry bits 32-55 of offset,
// but the low32 field is only the true low 32 bits when offset fits in 32
// bits outright; otherwise it is forced to the 0xFFFFFFFF sentinel.
func splitDataOffset(offset int64) (low32, high24 uint32) {
	high24 = uint32((offset >> 32) & 0xFFFFFF)
	if offset >= 0 && offset <= 0xFFFFFFFF {
		low32 = uint32(offset)
	} else {
		low32 = 0xFFFFFFFF
	}
	return low32, high24
}

// joinDataOffset combines a low32/high24 pair as high24<<32 | low32. It
// gives back the original offset of splitDataOffset only for offsets that
// fit in 32 bits; for a 0xFFFFFFFF sentinel low32 the result is
// high24<<32 | 0xFFFFFFFF.
func joinDataOffset(low32, high24 uint32) int64 {
	return (int64(high24&0xFFFFFF) << 32) | int64(low32)
}

func padName(name string) ([]byte, error) {
	if len(name) > nameEntrySize-1 {
		return nil, errors.Reason("archive: name %(name)q exceeds %(max)d bytes").
			D("name", name).D("max", nameEntrySize-1).Err()
	}
	buf := make([]byte, nameEntrySize)
	copy(buf, name)
	return buf, nil
}

func unpadName(buf []byte) string {
	n := len(buf)
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	return string(buf[:n])
}

func alignUp(v, align int64) int64 {
	if align <= 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}
