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

// Package resultstore holds the (address, type) pairs a scan finds, as a
// fixed-capacity RAM prefix backed by a growable mmapped overflow file. It
// keeps insertion order; key ordering (if the caller wants one) is the
// bptree package's job, applied per-region during a scan.
package resultstore

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// itemSize is the packed on-disk and on-wire width of one Item: an 8-byte
// little-endian address followed by a 1-byte type tag, with no padding.
const itemSize = 9

const (
	initialFileSize = 128 << 20
	growStep        = 128 << 20
)

// Item is one (address, type) pair the store holds. Type is left as a raw
// byte here rather than memscan.ValueType to keep this package free of a
// dependency on the engine it serves; memscan casts at the boundary.
type Item struct {
	Addr uint64
	Type uint8
}

func encodeItem(it Item, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], it.Addr)
	buf[8] = it.Type
}

func decodeItem(buf []byte) Item {
	return Item{Addr: binary.LittleEndian.Uint64(buf[0:8]), Type: buf[8]}
}

// Store is the RAM+overflow-file result store described by the design
// document's result-store component. A zero-value Store is not usable; call
// New.
type Store struct {
	ramCapacityItems int
	ram              []Item

	dir  string
	file *os.File
	mm   mmap.MMap
	size int64

	diskCount int
}

// New constructs a Store. ramCapacityBytes of 0 means every item bypasses
// RAM and goes straight to the overflow file; cacheDir holds the overflow
// file and is created if it does not exist.
func New(ramCapacityBytes int, cacheDir string) (*Store, error) {
	if ramCapacityBytes < 0 {
		return nil, errors.Errorf("ram capacity must be >= 0, got %d", ramCapacityBytes)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "resultstore: create cache directory")
	}
	return &Store{
		ramCapacityItems: ramCapacityBytes / itemSize,
		dir:              cacheDir,
	}, nil
}

// TotalCount returns ram_count + disk_count.
func (s *Store) TotalCount() int { return len(s.ram) + s.diskCount }

func (s *Store) overflowPath() string { return filepath.Join(s.dir, "memscan-results.ovf") }

// ensureFile lazily creates and maps the overflow file on first disk write.
func (s *Store) ensureFile() error {
	if s.file != nil {
		return nil
	}
	f, err := os.OpenFile(s.overflowPath(), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return errors.Wrap(err, "resultstore: open overflow file")
	}
	if err := f.Truncate(initialFileSize); err != nil {
		f.Close()
		return errors.Wrap(err, "resultstore: size overflow file")
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return errors.Wrap(err, "resultstore: mmap overflow file")
	}
	s.file = f
	s.mm = m
	s.size = initialFileSize
	return nil
}

// ensureCapacity grows the overflow file (by re-truncation and remap) so
// byte offset end is addressable.
func (s *Store) ensureCapacity(end int64) error {
	if end <= s.size {
		return nil
	}
	newSize := s.size
	for newSize < end {
		newSize += growStep
	}
	if err := s.mm.Unmap(); err != nil {
		return errors.Wrap(err, "resultstore: unmap before grow")
	}
	if err := s.file.Truncate(newSize); err != nil {
		return errors.Wrap(err, "resultstore: grow overflow file")
	}
	m, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "resultstore: remap overflow file")
	}
	s.mm = m
	s.size = newSize
	return nil
}

func (s *Store) diskSlot(i int) []byte {
	off := int64(i) * itemSize
	return s.mm[off : off+itemSize]
}

// Add appends one item, amortised O(1): it lands in the RAM prefix while
// room remains, then spills to the overflow file.
func (s *Store) Add(it Item) error {
	if s.diskCount == 0 && len(s.ram) < s.ramCapacityItems {
		s.ram = append(s.ram, it)
		return nil
	}
	if err := s.ensureFile(); err != nil {
		return err
	}
	end := int64(s.diskCount+1) * itemSize
	if err := s.ensureCapacity(end); err != nil {
		return err
	}
	encodeItem(it, s.diskSlot(s.diskCount))
	s.diskCount++
	return nil
}

// itemAt returns the item at global index i, valid only for i < TotalCount.
func (s *Store) itemAt(i int) Item {
	if i < len(s.ram) {
		return s.ram[i]
	}
	return decodeItem(s.diskSlot(i - len(s.ram)))
}

func (s *Store) setItemAt(i int, it Item) {
	if i < len(s.ram) {
		s.ram[i] = it
		return
	}
	encodeItem(it, s.diskSlot(i-len(s.ram)))
}

// GetRange copies n items starting at global index start.
func (s *Store) GetRange(start, n int) ([]Item, error) {
	total := s.TotalCount()
	if start < 0 || n < 0 || start+n > total {
		return nil, errors.Errorf("resultstore: range [%d,%d) out of bounds for total %d", start, start+n, total)
	}
	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = s.itemAt(start + i)
	}
	return out, nil
}

// RemoveAt removes the single item at global index i.
func (s *Store) RemoveAt(i int) error {
	return s.RemoveBatch([]int{i})
}

// RemoveBatch deletes every index in indices (duplicates tolerated), in a
// single O(total) two-pointer compaction per side of the RAM/disk split.
func (s *Store) RemoveBatch(indices []int) error {
	total := s.TotalCount()
	del := dedupSorted(indices)
	for _, i := range del {
		if i < 0 || i >= total {
			return errors.Errorf("resultstore: remove index %d out of bounds for total %d", i, total)
		}
	}
	if len(del) == 0 {
		return nil
	}

	ramLen := len(s.ram)
	ramDel := partitionBelow(del, ramLen)
	diskDel := del[len(ramDel):]

	s.ram = compactSlice(s.ram, ramDel)

	if len(diskDel) > 0 {
		writePos := 0
		delIdx := 0
		for readPos := 0; readPos < s.diskCount; readPos++ {
			globalIdx := ramLen + readPos
			if delIdx < len(diskDel) && diskDel[delIdx] == globalIdx {
				delIdx++
				continue
			}
			if writePos != readPos {
				copy(s.diskSlot(writePos), s.diskSlot(readPos))
			}
			writePos++
		}
		s.diskCount = writePos
	}
	return nil
}

// KeepOnly retains exactly the items at the given global indices (order
// preserved), discarding everything else. It rebuilds from a read-keep pass
// when that touches fewer items than a batch delete of the complement would.
func (s *Store) KeepOnly(indices []int) error {
	total := s.TotalCount()
	keep := dedupSorted(indices)
	for _, i := range keep {
		if i < 0 || i >= total {
			return errors.Errorf("resultstore: keep index %d out of bounds for total %d", i, total)
		}
	}
	removeCount := total - len(keep)
	if removeCount <= 0 {
		return nil
	}

	if len(keep) <= removeCount {
		kept := make([]Item, len(keep))
		for i, idx := range keep {
			kept[i] = s.itemAt(idx)
		}
		if err := s.clearKeepingFile(); err != nil {
			return err
		}
		for _, it := range kept {
			if err := s.Add(it); err != nil {
				return err
			}
		}
		return nil
	}

	complement := make([]int, 0, removeCount)
	ki := 0
	for i := 0; i < total; i++ {
		if ki < len(keep) && keep[ki] == i {
			ki++
			continue
		}
		complement = append(complement, i)
	}
	return s.RemoveBatch(complement)
}

// Clear resets counters but keeps the overflow file and mapping for reuse.
func (s *Store) Clear() error { return s.clearKeepingFile() }

func (s *Store) clearKeepingFile() error {
	s.ram = s.ram[:0]
	s.diskCount = 0
	return nil
}

// Destroy unmaps and removes the overflow file; the Store must not be used
// afterward.
func (s *Store) Destroy() error {
	if s.mm != nil {
		if err := s.mm.Unmap(); err != nil {
			return errors.Wrap(err, "resultstore: unmap")
		}
		s.mm = nil
	}
	if s.file != nil {
		path := s.file.Name()
		if err := s.file.Close(); err != nil {
			return errors.Wrap(err, "resultstore: close overflow file")
		}
		s.file = nil
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "resultstore: remove overflow file")
		}
	}
	s.ram = nil
	s.diskCount = 0
	return nil
}

func dedupSorted(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	cp := append([]int(nil), indices...)
	sort.Ints(cp)
	out := cp[:1]
	for _, v := range cp[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// partitionBelow returns the prefix of sorted del strictly less than bound.
func partitionBelow(del []int, bound int) []int {
	i := sort.SearchInts(del, bound)
	return del[:i]
}

// compactSlice removes the (sorted, deduped) indices in del from s via a
// single forward two-pointer sweep.
func compactSlice(s []Item, del []int) []Item {
	if len(del) == 0 {
		return s
	}
	writePos := 0
	delIdx := 0
	for readPos := 0; readPos < len(s); readPos++ {
		if delIdx < len(del) && del[delIdx] == readPos {
			delIdx++
			continue
		}
		if writePos != readPos {
			s[writePos] = s[readPos]
		}
		writePos++
	}
	return s[:writePos]
}

// DiskCount reports the number of items currently spilled to the overflow
// file; exported for tests asserting the RAM/disk spill boundary.
func (s *Store) DiskCount() int { return s.diskCount }

// RAMCount reports the number of items currently held in the RAM prefix.
func (s *Store) RAMCount() int { return len(s.ram) }
