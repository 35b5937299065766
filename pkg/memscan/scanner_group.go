// Copyright 2026 The memscan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memscan

import (
	"bytes"
	"errors"

	"github.com/memscan/memscan/pkg/bptree"
)

// ErrScanCancelled is returned by a scan or refine call that observed
// cancellation mid-flight, via the deep matcher's periodic poll.
var ErrScanCancelled = errors.New("memscan: scan cancelled")

// CancelFunc reports whether the caller has asked the current operation to
// stop; it is polled, not pushed, so it must be cheap and safe to call from
// a hot loop.
type CancelFunc func() bool

// ScanGroup sweeps region for every occurrence of query (which must carry
// >=2 values), using a sliding two-chunk buffer so group matches straddling
// a chunk boundary are not missed. deep selects the exhaustive DFS matcher
// over the greedy one; cancel (optional) is polled by the DFS matcher.
func ScanGroup(reader Reader, region Region, query *SearchQuery, chunkSize uint64, deep bool, cancel CancelFunc) (*bptree.Set[uint64, ValueType], error) {
	if chunkSize == 0 {
		chunkSize = uint64(defaultQuerySize)
	}
	out := bptree.New[uint64, ValueType](16)
	anchorIdx, hasAnchor := query.Anchor()
	var anchorBytes []byte
	if hasAnchor {
		anchorBytes, _ = query.Values[anchorIdx].Bytes()
	}

	var prevBuf []byte
	var prevBitmap *PageBitmap
	var prevStart uint64
	first := true

	start := region.Start &^ (uPageSize - 1)
	for chunkStart := start; chunkStart < region.End; chunkStart += chunkSize {
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > region.End {
			chunkEnd = region.End
		}
		newLen := chunkEnd - chunkStart
		newBuf := make([]byte, newLen)
		newBitmap := NewPageBitmap(chunkStart, newLen)
		if err := reader.ReadMemory(chunkStart, newBuf, newBitmap); err != nil {
			return out, err
		}

		var scanBuf []byte
		var scanStart uint64
		var bitmap *PageBitmap
		if first {
			scanBuf, scanStart, bitmap = newBuf, chunkStart, newBitmap
		} else {
			scanStart = prevStart
			scanBuf = make([]byte, 0, len(prevBuf)+len(newBuf))
			scanBuf = append(scanBuf, prevBuf...)
			scanBuf = append(scanBuf, newBuf...)
			bitmap = NewPageBitmap(scanStart, uint64(len(scanBuf)))
			markBitmapRanges(bitmap, prevBitmap)
			markBitmapRanges(bitmap, newBitmap)
		}

		if err := scanCandidates(out, scanBuf, scanStart, bitmap, query, anchorIdx, hasAnchor, anchorBytes, deep, region, cancel); err != nil {
			return out, err
		}

		prevBuf, prevBitmap, prevStart, first = newBuf, newBitmap, chunkStart, false
	}
	return out, nil
}

// markBitmapRanges copies src's successful page ranges into dst.
func markBitmapRanges(dst, src *PageBitmap) {
	if src == nil {
		return
	}
	for _, pr := range src.SuccessPageRanges() {
		for addr := pr.Start; addr < pr.End; addr += uPageSize {
			dst.MarkSuccess(addr)
		}
	}
}

// scanCandidates finds every anchor occurrence in scanBuf (via SIMD-style
// substring search when a fixed anchor exists, else an aligned linear
// sweep) and verifies each one against the full query.
func scanCandidates(out *bptree.Set[uint64, ValueType], scanBuf []byte, scanStart uint64, bitmap *PageBitmap, query *SearchQuery, anchorIdx int, hasAnchor bool, anchorBytes []byte, deep bool, region Region, cancel CancelFunc) error {
	if hasAnchor {
		anchorSize := query.Values[anchorIdx].Size()
		pos := 0
		for {
			idx := bytes.Index(scanBuf[pos:], anchorBytes)
			if idx < 0 {
				break
			}
			candidateOff := pos + idx
			pos = candidateOff + 1
			addr := scanStart + uint64(candidateOff)
			if addr%uint64(anchorSize) != 0 {
				continue
			}
			if !bitmap.RangeSuccess(addr, anchorSize) {
				continue
			}
			if err := verifyCandidate(out, scanBuf, scanStart, bitmap, query, anchorIdx, addr, deep, region, cancel); err != nil {
				return err
			}
		}
		return nil
	}

	// No fixed value anywhere in the query: fall back to an aligned linear
	// sweep over every successfully-read run, treating values[0] itself as
	// the probe at each position.
	step := query.Values[0].Size()
	for _, pr := range bitmap.SuccessPageRanges() {
		runStart, runEnd := pr.Start, pr.End
		if runStart < scanStart {
			runStart = scanStart
		}
		if runEnd > scanStart+uint64(len(scanBuf)) {
			runEnd = scanStart + uint64(len(scanBuf))
		}
		for addr := alignUp(runStart, step); addr+uint64(step) <= runEnd; addr += uint64(step) {
			off := addr - scanStart
			if !query.Values[0].Matches(scanBuf[off:]) {
				continue
			}
			if err := verifyCandidate(out, scanBuf, scanStart, bitmap, query, 0, addr, deep, region, cancel); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyCandidate runs the full query against one candidate anchor address,
// in whichever mode (ordered/unordered, greedy/deep) the query and deep
// flag select, recording every resulting match into out.
func verifyCandidate(out *bptree.Set[uint64, ValueType], buf []byte, bufStart uint64, bitmap *PageBitmap, query *SearchQuery, anchorIdx int, anchorAddr uint64, deep bool, region Region, cancel CancelFunc) error {
	bufEnd := bufStart + uint64(len(buf))

	if query.Mode == ModeOrdered {
		seqStart := anchorAddr - uint64(query.offsetOf(anchorIdx))
		if seqStart < bufStart || seqStart < region.Start {
			return nil
		}
		// The window a sequential match is allowed to spread across is the
		// wider of the query's own packed size and its configured range,
		// clipped to what is actually available rather than rejected
		// outright — a forward search may need more room than the values'
		// packed size if they are not byte-adjacent.
		width := uint64(query.TotalSize())
		if uint64(query.Range) > width {
			width = uint64(query.Range)
		}
		seqEnd := seqStart + width
		if seqEnd > bufEnd {
			seqEnd = bufEnd
		}
		if seqEnd > region.End {
			seqEnd = region.End
		}
		if deep {
			return deepMatch(out, buf, bufStart, bitmap, query, seqStart, seqEnd, true, cancel)
		}
		if addrs, ok := orderedMatch(buf, bufStart, bitmap, query, seqStart, seqEnd); ok {
			for i, a := range addrs {
				out.Insert(a, query.Values[i].Type())
			}
		}
		return nil
	}

	rng := uint64(query.Range)
	winStart := bufStart
	if anchorAddr > rng && anchorAddr-rng > bufStart {
		winStart = anchorAddr - rng
	}
	winEnd := anchorAddr + rng
	if winEnd > bufEnd {
		winEnd = bufEnd
	}
	if deep {
		return deepMatch(out, buf, bufStart, bitmap, query, winStart, winEnd, false, cancel)
	}
	if addrs, ok := unorderedMatch(buf, bufStart, bitmap, query, winStart, winEnd); ok {
		for i, a := range addrs {
			out.Insert(a, query.Values[i].Type())
		}
	}
	return nil
}

// orderedMatch greedily assigns each query value in order: for value i, it
// advances forward from the cursor left by value i-1, one alignment step at
// a time, taking the first offset whose bytes match. It is a forward search
// for each value, not a check that consecutive values sit at adjacent
// packed offsets — gaps between values are allowed, as long as later values
// are found at or after where earlier ones ended.
func orderedMatch(buf []byte, bufStart uint64, bitmap *PageBitmap, query *SearchQuery, seqStart, seqEnd uint64) ([]uint64, bool) {
	addrs := make([]uint64, len(query.Values))
	cursor := seqStart
	for i, v := range query.Values {
		size := uint64(v.Size())
		found := false
		for addr := cursor; addr+size <= seqEnd; addr += size {
			if addr < bufStart || addr+size > bufStart+uint64(len(buf)) {
				break
			}
			if bitmap.RangeSuccess(addr, v.Size()) && v.Matches(buf[addr-bufStart:]) {
				addrs[i] = addr
				cursor = addr + size
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return addrs, true
}

// unorderedMatch finds, independently for every query value, the first
// in-window aligned offset whose bytes match.
func unorderedMatch(buf []byte, bufStart uint64, bitmap *PageBitmap, query *SearchQuery, winStart, winEnd uint64) ([]uint64, bool) {
	addrs := make([]uint64, len(query.Values))
	for i, v := range query.Values {
		size := v.Size()
		found := false
		for addr := alignUp(winStart, size); addr+uint64(size) <= winEnd; addr += uint64(size) {
			if addr < bufStart || addr+uint64(size) > bufStart+uint64(len(buf)) {
				continue
			}
			if !bitmap.RangeSuccess(addr, size) {
				continue
			}
			off := addr - bufStart
			if v.Matches(buf[off:]) {
				addrs[i] = addr
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return addrs, true
}

// deepMatch performs DFS backtracking over [winStart, winEnd), assigning
// each query value to a distinct candidate address and emitting every
// complete assignment it finds, rather than stopping at the first. ordered
// additionally requires later values to sit after earlier ones.
func deepMatch(out *bptree.Set[uint64, ValueType], buf []byte, bufStart uint64, bitmap *PageBitmap, query *SearchQuery, winStart, winEnd uint64, ordered bool, cancel CancelFunc) error {
	used := make(map[uint64]bool, len(query.Values))
	path := make([]uint64, len(query.Values))
	iterations := 0
	bufEnd := bufStart + uint64(len(buf))

	var dfs func(qi int, lowerBound uint64) error
	dfs = func(qi int, lowerBound uint64) error {
		if qi == len(query.Values) {
			for i, a := range path {
				out.Insert(a, query.Values[i].Type())
			}
			return nil
		}
		v := query.Values[qi]
		size := v.Size()
		from := winStart
		if ordered {
			from = lowerBound
		}
		for addr := alignUp(from, size); addr+uint64(size) <= winEnd; addr += uint64(size) {
			iterations++
			if cancel != nil && iterations%cancelCheckInterval == 0 && cancel() {
				return ErrScanCancelled
			}
			if used[addr] || addr < bufStart || addr+uint64(size) > bufEnd {
				continue
			}
			if !bitmap.RangeSuccess(addr, size) {
				continue
			}
			off := addr - bufStart
			if !v.Matches(buf[off:]) {
				continue
			}
			used[addr] = true
			path[qi] = addr
			err := dfs(qi+1, addr+uint64(size))
			used[addr] = false
			if err != nil {
				return err
			}
		}
		return nil
	}
	return dfs(0, winStart)
}
