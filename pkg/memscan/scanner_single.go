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

import "github.com/memscan/memscan/pkg/bptree"

// alignUp rounds addr up to the next multiple of size.
func alignUp(addr uint64, size int) uint64 {
	if rem := addr % uint64(size); rem != 0 {
		return addr + uint64(size) - rem
	}
	return addr
}

// ScanSingleValue sweeps region in chunkSize-byte reads, testing every
// type-aligned offset against value and recording matching addresses into a
// freshly built B+ tree set. It never tests bytes behind a page the reader
// failed to fetch.
func ScanSingleValue(reader Reader, region Region, value SearchValue, chunkSize uint64) (*bptree.Set[uint64, ValueType], error) {
	if chunkSize == 0 {
		chunkSize = uint64(defaultQuerySize)
	}
	out := bptree.New[uint64, ValueType](16)
	size := value.Size()
	if size == 0 {
		return out, nil
	}

	alignedRegionStart := alignUp(region.Start, size)
	start := region.Start &^ (uPageSize - 1)
	for chunkStart := start; chunkStart < region.End; chunkStart += chunkSize {
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > region.End {
			chunkEnd = region.End
		}
		length := chunkEnd - chunkStart
		buf := make([]byte, length)
		bitmap := NewPageBitmap(chunkStart, length)
		if err := reader.ReadMemory(chunkStart, buf, bitmap); err != nil {
			return out, err
		}

		for _, pr := range bitmap.SuccessPageRanges() {
			runStart, runEnd := pr.Start, pr.End
			if runStart < chunkStart {
				runStart = chunkStart
			}
			if runEnd > chunkEnd {
				runEnd = chunkEnd
			}
			if runStart < alignedRegionStart {
				runStart = alignedRegionStart
			}
			runStart = alignUp(runStart, size)

			for addr := runStart; addr+uint64(size) <= runEnd; addr += uint64(size) {
				off := addr - chunkStart
				if value.Matches(buf[off:]) {
					out.Insert(addr, value.Type())
				}
			}
		}
	}
	return out, nil
}
