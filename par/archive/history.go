// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

// historyRecord is one payload snapshot in a File's dataHistory: either
// the bytes as read from an archive (possibly SLLZ-compressed) or the
// plaintext produced by a decode / about to be re-encoded.
type historyRecord struct {
	data       []byte
	compressed bool
}

// dataHistory is a bounded undo/redo ring: capacity 4, add/back/forward/
// first/current. Pushing after a back drops anything
// ahead of the current position, the same way a text editor's undo stack
// discards redo history once you type something new.
type dataHistory struct {
	records []historyRecord
	cur     int // index into records of the "current" entry; -1 if empty
}

const dataHistoryCapacity = 4

func newDataHistory() *dataHistory {
	return &dataHistory{cur: -1}
}

// add appends a new current record, evicting the oldest if at capacity and
// discarding any records ahead of the current position first.
func (h *dataHistory) add(data []byte, compressed bool) {
	h.records = h.records[:h.cur+1]
	h.records = append(h.records, historyRecord{data: data, compressed: compressed})
	if len(h.records) > dataHistoryCapacity {
		h.records = h.records[1:]
	}
	h.cur = len(h.records) - 1
}

// back moves the current pointer one record earlier, returning false if
// already at the oldest record.
func (h *dataHistory) back() bool {
	if h.cur <= 0 {
		return false
	}
	h.cur--
	return true
}

// forward moves the current pointer one record later, returning false if
// already at the newest record.
func (h *dataHistory) forward() bool {
	if h.cur >= len(h.records)-1 {
		return false
	}
	h.cur++
	return true
}

// first returns the oldest retained record.
func (h *dataHistory) first() (historyRecord, bool) {
	if len(h.records) == 0 {
		return historyRecord{}, false
	}
	return h.records[0], true
}

// current returns the record at the current pointer.
func (h *dataHistory) current() (historyRecord, bool) {
	if h.cur < 0 {
		return historyRecord{}, false
	}
	return h.records[h.cur], true
}

// loaded reports whether any payload has ever been added.
func (h *dataHistory) loaded() bool {
	return h.cur >= 0
}
