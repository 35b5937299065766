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

package resultstore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ramItems int) *Store {
	t.Helper()
	s, err := New(ramItems*itemSize, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t, 10)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(Item{Addr: uint64(i), Type: 1}))
	}
	got, err := s.GetRange(s.TotalCount()-1, 1)
	require.NoError(t, err)
	require.Equal(t, Item{Addr: 4, Type: 1}, got[0])
}

func TestSpillBoundary(t *testing.T) {
	const ramCap = 1000
	s := newTestStore(t, ramCap)
	for i := 0; i < 3000; i++ {
		require.NoError(t, s.Add(Item{Addr: uint64(i), Type: uint8(i % 8)}))
	}
	require.Equal(t, 3000, s.TotalCount())
	require.Equal(t, ramCap, s.RAMCount())
	require.Equal(t, 2000, s.DiskCount())

	got, err := s.GetRange(999, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(999), got[0].Addr)
	require.Equal(t, uint64(1000), got[1].Addr)

	require.NoError(t, s.RemoveBatch([]int{500, 1500, 2500}))
	require.Equal(t, 2997, s.TotalCount())

	all, err := s.GetRange(0, s.TotalCount())
	require.NoError(t, err)
	addrs := make([]uint64, len(all))
	for i, it := range all {
		addrs[i] = it.Addr
	}
	require.True(t, sort.SliceIsSorted(addrs, func(i, j int) bool { return addrs[i] < addrs[j] }),
		"removal must preserve insertion order, which here is ascending address")
	for _, removed := range []uint64{500, 1500, 2500} {
		for _, a := range addrs {
			require.NotEqual(t, removed, a)
		}
	}
}

func TestBatchDeleteEqualsSerialDelete(t *testing.T) {
	const n = 200
	build := func(t *testing.T) *Store {
		s := newTestStore(t, 80)
		for i := 0; i < n; i++ {
			require.NoError(t, s.Add(Item{Addr: uint64(i)}))
		}
		return s
	}

	del := []int{3, 150, 79, 80, 199, 0, 120}

	batch := build(t)
	require.NoError(t, batch.RemoveBatch(del))
	batchResult, err := batch.GetRange(0, batch.TotalCount())
	require.NoError(t, err)

	serial := build(t)
	sorted := append([]int(nil), del...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, idx := range sorted {
		require.NoError(t, serial.RemoveAt(idx))
	}
	serialResult, err := serial.GetRange(0, serial.TotalCount())
	require.NoError(t, err)

	require.Equal(t, serialResult, batchResult)
}

func TestKeepOnlyDuality(t *testing.T) {
	const n = 100
	keep := []int{2, 5, 6, 40, 41, 42, 99}

	viaKeepOnly := func(t *testing.T) []Item {
		s := newTestStore(t, 30)
		for i := 0; i < n; i++ {
			require.NoError(t, s.Add(Item{Addr: uint64(i)}))
		}
		require.NoError(t, s.KeepOnly(keep))
		out, err := s.GetRange(0, s.TotalCount())
		require.NoError(t, err)
		return out
	}

	viaRemoveComplement := func(t *testing.T) []Item {
		s := newTestStore(t, 30)
		for i := 0; i < n; i++ {
			require.NoError(t, s.Add(Item{Addr: uint64(i)}))
		}
		keepSet := map[int]bool{}
		for _, k := range keep {
			keepSet[k] = true
		}
		var complement []int
		for i := 0; i < n; i++ {
			if !keepSet[i] {
				complement = append(complement, i)
			}
		}
		require.NoError(t, s.RemoveBatch(complement))
		out, err := s.GetRange(0, s.TotalCount())
		require.NoError(t, err)
		return out
	}

	require.Equal(t, viaRemoveComplement(t), viaKeepOnly(t))
}

func TestClearResetsButKeepsFile(t *testing.T) {
	s := newTestStore(t, 5)
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Add(Item{Addr: uint64(i)}))
	}
	require.NoError(t, s.Clear())
	require.Equal(t, 0, s.TotalCount())
	require.NoError(t, s.Add(Item{Addr: 77}))
	got, err := s.GetRange(0, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(77), got[0].Addr)
}

func TestZeroRAMCapacityGoesStraightToDisk(t *testing.T) {
	s := newTestStore(t, 0)
	require.NoError(t, s.Add(Item{Addr: 1}))
	require.Equal(t, 0, s.RAMCount())
	require.Equal(t, 1, s.DiskCount())
}
