// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sllz

import (
	"io"

	"github.com/luci/luci-go/common/errors"
)

// V1 codec constants: a 4096-byte sliding window, 3-18 byte matches.
const (
	WindowSize = 4096
	MatchMin   = 3
	MatchMax   = 18
)

// expansionSlack is how much bigger than the input the v1 output buffer is
// allowed to grow before EncodeV1 gives up with an expansion overflow.
const expansionSlack = 2048

// findMatchV1 looks for the longest prior occurrence of the bytes starting
// at input[inPos] within the window input[inPos-W:inPos], where
// W = min(inPos, WindowSize). Ties (equal length) are broken in favor of
// the occurrence closest to inPos, i.e. the smallest distance.
func findMatchV1(input []byte, inPos int) (distance, length int, found bool) {
	maxMatch := len(input) - inPos
	if maxMatch > MatchMax {
		maxMatch = MatchMax
	}
	window := inPos
	if window > WindowSize {
		window = WindowSize
	}
	if maxMatch < MatchMin || window == 0 {
		return 0, 0, false
	}

	bestLen := 0
	bestDistance := 0
	for pos := 0; pos < window; pos++ {
		start := inPos - window + pos
		l := 0
		for l < maxMatch && input[start+l] == input[inPos+l] {
			l++
		}
		if l >= MatchMin && l >= bestLen {
			bestLen = l
			bestDistance = window - pos
		}
	}
	if bestLen < MatchMin {
		return 0, 0, false
	}
	return bestDistance, bestLen, true
}

// EncodeV1 compresses data with the SLLZ v1 LZSS scheme: an 8-bit flag byte
// (MSB-first) precedes every run of up to 8 literal/match tokens.
func EncodeV1(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}

	maxOut := len(input) + expansionSlack
	buf := make([]byte, 0, maxOut)
	appendByte := func(b byte) error {
		if len(buf) >= maxOut {
			return errors.Reason("sllz: v1 encode exceeded buffer of %(max)d bytes (expansion overflow)").
				D("max", maxOut).Err()
		}
		buf = append(buf, b)
		return nil
	}

	inPos := 0
	for inPos < len(input) {
		flagIdx := len(buf)
		if err := appendByte(0); err != nil {
			return nil, err
		}
		var flag byte
		for bit := 0; bit < 8 && inPos < len(input); bit++ {
			distance, length, found := findMatchV1(input, inPos)
			if found {
				flag |= 1 << uint(7-bit)
				token := uint16((distance-1)<<4) | uint16((length-MatchMin)&0x0F)
				if err := appendByte(byte(token & 0xFF)); err != nil {
					return nil, err
				}
				if err := appendByte(byte(token >> 8)); err != nil {
					return nil, err
				}
				inPos += length
			} else {
				if err := appendByte(input[inPos]); err != nil {
					return nil, err
				}
				inPos++
			}
		}
		buf[flagIdx] = flag
	}
	return buf, nil
}

// DecodeV1 decompresses an SLLZ v1 body into a presized buffer of exactly
// decompressedSize bytes.
func DecodeV1(data []byte, decompressedSize int) ([]byte, error) {
	out := make([]byte, decompressedSize)
	outPos := 0
	inPos := 0

	for outPos < decompressedSize {
		if inPos >= len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		flag := data[inPos]
		inPos++

		for bit := 0; bit < 8 && outPos < decompressedSize; bit++ {
			if flag&(1<<uint(7-bit)) != 0 {
				if inPos+2 > len(data) {
					return nil, io.ErrUnexpectedEOF
				}
				token := uint16(data[inPos]) | uint16(data[inPos+1])<<8
				inPos += 2
				distance := 1 + int(token>>4)
				count := MatchMin + int(token&0x0F)
				if distance > outPos {
					return nil, errors.Reason("sllz: v1 match distance %(d)d exceeds output written so far (%(o)d)").
						D("d", distance).D("o", outPos).Err()
				}
				for k := 0; k < count && outPos < decompressedSize; k++ {
					out[outPos] = out[outPos-distance]
					outPos++
				}
			} else {
				if inPos >= len(data) {
					return nil, io.ErrUnexpectedEOF
				}
				out[outPos] = data[inPos]
				inPos++
				outPos++
			}
		}
	}
	return out, nil
}
