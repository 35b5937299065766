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

import "fmt"

// Region is a half-open virtual-address interval [Start, End) the engine is
// allowed to scan. Regions typically come from parsing a target process's
// memory map, but the engine itself is agnostic to their source.
type Region struct {
	Start uint64
	End   uint64
}

// NewRegion builds a Region, swapping the bounds if given in reverse order.
func NewRegion(start, end uint64) Region {
	if end < start {
		start, end = end, start
	}
	return Region{Start: start, End: end}
}

// Len returns the region's byte length.
func (r Region) Len() uint64 { return r.End - r.Start }

// Contains reports whether addr falls within the region.
func (r Region) Contains(addr uint64) bool { return addr >= r.Start && addr < r.End }

// Overlaps reports whether r and o share at least one byte.
func (r Region) Overlaps(o Region) bool { return r.Start < o.End && o.Start < r.End }

// Intersect returns the overlap of r and o, and whether one exists.
func (r Region) Intersect(o Region) (Region, bool) {
	start, end := r.Start, r.End
	if o.Start > start {
		start = o.Start
	}
	if o.End < end {
		end = o.End
	}
	if start >= end {
		return Region{}, false
	}
	return Region{Start: start, End: end}, true
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x-%#x)", r.Start, r.End)
}

// Regions is a convenience collection for splitting and clipping a list of
// candidate scan regions against a filter list, the way the teacher's
// AddrRanges.Intersection clips tracked ranges against a set of cut ranges.
type Regions []Region

// Clip intersects every region in rs against clip, discarding any resulting
// empty pieces; regions are returned in rs's original order.
func (rs Regions) Clip(clip Regions) Regions {
	var out Regions
	for _, r := range rs {
		for _, c := range clip {
			if piece, ok := r.Intersect(c); ok {
				out = append(out, piece)
			}
		}
	}
	return out
}

// TotalLen returns the sum of every region's length.
func (rs Regions) TotalLen() uint64 {
	var total uint64
	for _, r := range rs {
		total += r.Len()
	}
	return total
}

// Chunks splits every region in rs into pieces of at most chunkSize bytes,
// in address order. The scanners do not call it; they walk each region in
// chunks of their own.
func (rs Regions) Chunks(chunkSize uint64) []Region {
	if chunkSize == 0 {
		chunkSize = uint64(defaultQuerySize)
	}
	var out []Region
	for _, r := range rs {
		for start := r.Start; start < r.End; start += chunkSize {
			end := start + chunkSize
			if end > r.End {
				end = r.End
			}
			out = append(out, Region{Start: start, End: end})
		}
	}
	return out
}
