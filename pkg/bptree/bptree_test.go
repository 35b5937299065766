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

package bptree

import (
	"cmp"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect[K cmp.Ordered, V any](s *Set[K, V]) ([]K, []V) {
	var ks []K
	var vs []V
	it := s.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		ks = append(ks, k)
		vs = append(vs, v)
	}
	return ks, vs
}

func TestInsertGetOrdering(t *testing.T) {
	s := New[int, string](4)
	keys := []int{50, 10, 40, 20, 30, 5, 45, 25, 35, 15}
	for _, k := range keys {
		_, existed := s.Insert(k, "v")
		require.False(t, existed)
	}
	require.Equal(t, len(keys), s.Len())

	ks, _ := collect[int, string](s)
	require.True(t, sort.IntsAreSorted(ks))
	require.Equal(t, len(keys), len(ks))
	for i := 1; i < len(ks); i++ {
		require.NotEqual(t, ks[i-1], ks[i])
	}
}

func TestInsertReplacesExisting(t *testing.T) {
	s := New[int, string](4)
	s.Insert(1, "a")
	old, existed := s.Insert(1, "b")
	require.True(t, existed)
	require.Equal(t, "a", old)
	v, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, "b", v)
	require.Equal(t, 1, s.Len())
}

func TestRemoveRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New[int, int](5)
	present := map[int]bool{}
	var order []int
	for i := 0; i < 500; i++ {
		k := rng.Intn(2000)
		if !present[k] {
			order = append(order, k)
		}
		present[k] = true
		s.Insert(k, k*2)
	}

	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for i, k := range order {
		v, ok := s.Remove(k)
		require.True(t, ok, "key %d should be removable", k)
		require.Equal(t, k*2, v)

		ks, _ := collect[int, int](s)
		require.True(t, sort.IntsAreSorted(ks))
		require.Equal(t, len(order)-i-1, len(ks))
		require.Equal(t, s.Len(), len(ks))
	}
	require.True(t, s.IsEmpty())
}

func TestRemoveMissingKey(t *testing.T) {
	s := New[int, int](4)
	s.Insert(1, 1)
	_, ok := s.Remove(99)
	require.False(t, ok)
	require.Equal(t, 1, s.Len())
}

func TestIterExactSizeAndFused(t *testing.T) {
	s := New[int, int](3)
	for i := 0; i < 30; i++ {
		s.Insert(i, i)
	}
	it := s.Iter()
	require.Equal(t, 30, it.Len())
	for i := 0; i < 30; i++ {
		_, _, ok := it.Next()
		require.True(t, ok)
	}
	_, _, ok := it.Next()
	require.False(t, ok)
	_, _, ok = it.Next()
	require.False(t, ok, "iterator must stay exhausted once fused")
}

func TestBalanceInvariantAfterBulkOps(t *testing.T) {
	const order = 4
	s := New[int, int](order)
	minLeaf := (order + 2) / 2
	minInternal := order / 2

	rng := rand.New(rand.NewSource(7))
	keys := rng.Perm(300)
	for _, k := range keys {
		s.Insert(k, k)
	}
	for _, k := range keys[:150] {
		s.Remove(k)
	}

	var walk func(n *node[int, int], isRoot bool)
	walk = func(n *node[int, int], isRoot bool) {
		if n == nil {
			return
		}
		if n.isLeaf {
			if !isRoot {
				require.GreaterOrEqual(t, len(n.keys), minLeaf)
			}
			return
		}
		if !isRoot {
			require.GreaterOrEqual(t, len(n.keys), minInternal)
		}
		require.Equal(t, len(n.keys)+1, len(n.children))
		for _, c := range n.children {
			require.Same(t, n, c.parent)
			walk(c, false)
		}
	}
	walk(s.root, true)

	ks, _ := collect[int, int](s)
	require.Equal(t, 150, len(ks))
	require.True(t, sort.IntsAreSorted(ks))
}

func TestCountsAgreeWithLeafSums(t *testing.T) {
	s := New[int, int](4)
	for i := 0; i < 200; i++ {
		s.Insert(i*7%200, i)
	}
	sum := 0
	n := s.headLeaf
	for n != nil {
		sum += len(n.keys)
		n = n.next
	}
	require.Equal(t, s.Len(), sum)
}
