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
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/memscan/memscan/pkg/bptree"
)

// refineReportEvery controls how often RefineSingle/RefineGroup push a
// progress update through the shared buffer, when one is supplied.
const refineReportEvery = 100

// RefineSingle re-tests every address already held in prev against value,
// reading each address's current bytes and keeping only survivors. Reads are
// fanned out across a bounded worker pool, mirroring the engine's region
// fan-out in controller.go.
func RefineSingle(reader Reader, prev *bptree.Set[uint64, ValueType], value SearchValue, progress *SharedBuffer) (*bptree.Set[uint64, ValueType], error) {
	out := bptree.New[uint64, ValueType](16)
	size := value.Size()
	if size == 0 {
		return out, nil
	}

	addrs := make([]uint64, 0, prev.Len())
	it := prev.Iter()
	for {
		addr, _, ok := it.Next()
		if !ok {
			break
		}
		addrs = append(addrs, addr)
	}

	var mu sync.Mutex
	var done int
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(refineWorkerLimit())
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			buf := make([]byte, size)
			bitmap := NewPageBitmap(addr, uint64(size))
			if err := reader.ReadMemory(addr, buf, bitmap); err != nil {
				return readerFailureError(err)
			}
			survives := bitmap.RangeSuccess(addr, size) && value.Matches(buf)

			mu.Lock()
			if survives {
				out.Insert(addr, value.Type())
			}
			done++
			if progress != nil && done%refineReportEvery == 0 {
				progress.SetProgress(uint32(done * 1000 / len(addrs)))
				progress.SetFoundCount(int64(out.Len()))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	if progress != nil {
		progress.SetFoundCount(int64(out.Len()))
	}
	return out, nil
}

// refineCandidate is one prev address re-read at its own previously-recorded
// type and size, kept alongside its fresh bytes for the DFS below.
type refineCandidate struct {
	addr  uint64
	bytes []byte
}

// RefineGroup re-tests a group query against only the addresses already held
// in prev: every prev address whose current bytes still satisfy
// query.Values[0] becomes an anchor, and the remaining query values are
// assigned, via backtracking search, to *other prev addresses* that fall
// inside the anchor's window and still carry matching bytes. Unlike a fresh
// group scan, this never introduces an address that was not already in prev
// — refine narrows a result set, it does not rescan memory for new matches.
// The DFS always emits every complete assignment it finds rather than
// stopping at the first, so there is no separate greedy/deep mode here the
// way a fresh ScanGroup has.
func RefineGroup(reader Reader, prev *bptree.Set[uint64, ValueType], query *SearchQuery, cancel CancelFunc, progress *SharedBuffer) (*bptree.Set[uint64, ValueType], error) {
	out := bptree.New[uint64, ValueType](16)
	if len(query.Values) == 0 {
		return out, nil
	}

	type prevEntry struct {
		addr uint64
		typ  ValueType
	}
	entries := make([]prevEntry, 0, prev.Len())
	it := prev.Iter()
	for {
		addr, typ, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, prevEntry{addr, typ})
	}

	// Re-read every prev address at its own recorded size; addresses that
	// fail to read, or land on a page that failed, drop out silently (a
	// read failure here means "no longer a candidate", not a fatal error).
	addrValues := make([]refineCandidate, 0, len(entries))
	var readMu sync.Mutex
	rg, _ := errgroup.WithContext(context.Background())
	rg.SetLimit(refineWorkerLimit())
	for _, e := range entries {
		e := e
		rg.Go(func() error {
			size := e.typ.Size()
			buf := make([]byte, size)
			bitmap := NewPageBitmap(e.addr, uint64(size))
			if err := reader.ReadMemory(e.addr, buf, bitmap); err != nil || !bitmap.RangeSuccess(e.addr, size) {
				return nil
			}
			readMu.Lock()
			addrValues = append(addrValues, refineCandidate{addr: e.addr, bytes: buf})
			readMu.Unlock()
			return nil
		})
	}
	_ = rg.Wait()
	if len(addrValues) == 0 {
		return out, nil
	}

	anchorValue := query.Values[0]
	var anchors []uint64
	for _, av := range addrValues {
		if anchorValue.Matches(av.bytes) {
			anchors = append(anchors, av.addr)
		}
	}
	if len(anchors) == 0 {
		return out, nil
	}
	if len(query.Values) == 1 {
		for _, a := range anchors {
			out.Insert(a, anchorValue.Type())
		}
		if progress != nil {
			progress.SetFoundCount(int64(out.Len()))
		}
		return out, nil
	}

	rng := uint64(query.Range)
	var mu sync.Mutex
	var done int
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(refineWorkerLimit())
	for _, anchorAddr := range anchors {
		anchorAddr := anchorAddr
		g.Go(func() error {
			var minAddr, maxAddr uint64
			if query.Mode == ModeOrdered {
				minAddr, maxAddr = anchorAddr, anchorAddr+rng
			} else {
				if anchorAddr > rng {
					minAddr = anchorAddr - rng
				}
				maxAddr = anchorAddr + rng
			}

			candidates := make([]refineCandidate, 0, len(addrValues))
			for _, av := range addrValues {
				if av.addr == anchorAddr {
					continue
				}
				if av.addr >= minAddr && av.addr <= maxAddr {
					candidates = append(candidates, av)
				}
			}

			var dfsErr error
			if len(candidates) >= len(query.Values)-1 {
				chosen := make([]uint64, 1, len(query.Values))
				chosen[0] = anchorAddr
				used := map[uint64]bool{anchorAddr: true}
				iterations := 0

				var dfs func(candIdx int) error
				dfs = func(candIdx int) error {
					have := len(chosen)
					if have == len(query.Values) {
						mu.Lock()
						for i, a := range chosen {
							out.Insert(a, query.Values[i].Type())
						}
						mu.Unlock()
						return nil
					}
					need := len(query.Values) - have
					if len(candidates)-candIdx < need {
						return nil
					}
					sv := query.Values[have]
					for i := candIdx; i < len(candidates); i++ {
						iterations++
						if cancel != nil && iterations%cancelCheckInterval == 0 && cancel() {
							return ErrScanCancelled
						}
						c := candidates[i]
						if used[c.addr] || !sv.Matches(c.bytes) {
							continue
						}
						used[c.addr] = true
						chosen = append(chosen, c.addr)
						if err := dfs(i + 1); err != nil {
							return err
						}
						chosen = chosen[:len(chosen)-1]
						delete(used, c.addr)
					}
					return nil
				}
				dfsErr = dfs(0)
			}

			mu.Lock()
			done++
			if progress != nil && done%refineReportEvery == 0 {
				progress.SetProgress(uint32(done * 1000 / len(anchors)))
				progress.SetFoundCount(int64(out.Len()))
			}
			mu.Unlock()
			return dfsErr
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	if progress != nil {
		progress.SetFoundCount(int64(out.Len()))
	}
	return out, nil
}

// refineWorkerLimit bounds refine fan-out; a fixed cap keeps a refine over a
// huge previous-result set from spawning one goroutine per address.
func refineWorkerLimit() int { return 32 }
