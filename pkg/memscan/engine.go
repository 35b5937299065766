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
	"sync"

	"github.com/memscan/memscan/pkg/bptree"
	"github.com/memscan/memscan/pkg/resultstore"
)

// Engine is the top-level entry point wiring a Reader, a result store, a
// controller, and an optional host-shared progress buffer into the public
// API a caller (library user or the memscand CLI) drives.
type Engine struct {
	mutex sync.Mutex

	reader  Reader
	cfg     Config
	results *resultstore.Store
	ctrl    *Controller
	freezer *Freezer
	sbuf    *SharedBuffer

	filter func(resultstore.Item) bool
}

// New builds an Engine over reader using cfg; the engine is usable as soon
// as New returns. A shared buffer supplied via SetSharedBuffer is optional:
// without one the engine works the same, just without host-visible
// progress reporting.
func New(reader Reader, cfg Config) (*Engine, error) {
	if reader == nil {
		return nil, invalidArgumentError("reader must not be nil")
	}
	results, err := resultstore.New(cfg.RAMCapacityBytes, cfg.CacheDir)
	if err != nil {
		return nil, ioError(err)
	}
	e := &Engine{
		reader:  reader,
		cfg:     cfg,
		results: results,
		freezer: NewFreezer(reader, cfg.FreezeIntervalMs),
	}
	e.ctrl = NewController(reader, results, nil)
	return e, nil
}

// SetSharedBuffer installs buf as the host-visible progress/status channel
// for every subsequent search or refine.
func (e *Engine) SetSharedBuffer(buf []byte) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	sb, err := NewSharedBuffer(buf)
	if err != nil {
		return err
	}
	e.sbuf = sb
	e.ctrl = NewController(e.reader, e.results, sb)
	return nil
}

// ClearSharedBuffer detaches the shared buffer; subsequent operations report
// no host-visible progress.
func (e *Engine) ClearSharedBuffer() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.sbuf = nil
	e.ctrl = NewController(e.reader, e.results, nil)
}

// StartSearch launches a fresh single-value search over regions, replacing
// any previous result set.
func (e *Engine) StartSearch(regions []Region, value SearchValue) error {
	e.mutex.Lock()
	if err := e.results.Clear(); err != nil {
		e.mutex.Unlock()
		return ioError(err)
	}
	e.mutex.Unlock()
	return e.ctrl.StartSearch(regions, value, nil, uint64(e.cfg.ChunkSizeBytes), false)
}

// StartGroupSearch launches a fresh group search over regions, replacing any
// previous result set. deep selects the exhaustive DFS matcher.
func (e *Engine) StartGroupSearch(regions []Region, query *SearchQuery, deep bool) error {
	e.mutex.Lock()
	if err := e.results.Clear(); err != nil {
		e.mutex.Unlock()
		return ioError(err)
	}
	e.mutex.Unlock()
	return e.ctrl.StartSearch(regions, SearchValue{}, query, uint64(e.cfg.ChunkSizeBytes), deep)
}

// StartRefine re-tests the tree previously produced by a search or refine
// (prev) and replaces the result store's contents with the survivors.
func (e *Engine) StartRefine(prev *bptree.Set[uint64, ValueType], value SearchValue, query *SearchQuery) error {
	e.mutex.Lock()
	if err := e.results.Clear(); err != nil {
		e.mutex.Unlock()
		return ioError(err)
	}
	e.mutex.Unlock()
	return e.ctrl.StartRefine(prev, value, query)
}

// Refine re-tests every address currently held in the result store against
// value or query, replacing the store's contents with the survivors; it is
// the form an interactive caller uses for a "next scan" step, since it does
// not require holding onto the B+ tree a prior search produced.
func (e *Engine) Refine(value SearchValue, query *SearchQuery) error {
	items, err := e.results.GetRange(0, e.results.TotalCount())
	if err != nil {
		return ioError(err)
	}
	prev := bptree.New[uint64, ValueType](16)
	for _, it := range items {
		prev.Insert(it.Addr, ValueType(it.Type))
	}
	return e.StartRefine(prev, value, query)
}

// IsSearching reports whether a search or refine is currently in flight.
func (e *Engine) IsSearching() bool { return e.ctrl.IsSearching() }

// RequestCancel asks the in-flight operation to stop.
func (e *Engine) RequestCancel() { e.ctrl.RequestCancel() }

// GetResults returns up to n results starting at start, subject to any
// active filter (applied post-hoc: filtered-out items are skipped, not
// removed from the store).
func (e *Engine) GetResults(start, n int) ([]resultstore.Item, error) {
	e.mutex.Lock()
	filter := e.filter
	e.mutex.Unlock()
	items, err := e.results.GetRange(start, n)
	if err != nil {
		return nil, ioError(err)
	}
	if filter == nil {
		return items, nil
	}
	out := items[:0]
	for _, it := range items {
		if filter(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// TotalCount returns the number of results currently held, ignoring any
// active filter.
func (e *Engine) TotalCount() int { return e.results.TotalCount() }

// ClearResults discards every result.
func (e *Engine) ClearResults() error {
	if err := e.results.Clear(); err != nil {
		return ioError(err)
	}
	return nil
}

// Remove deletes the result at global index i.
func (e *Engine) Remove(i int) error {
	if err := e.results.RemoveAt(i); err != nil {
		return ioError(err)
	}
	return nil
}

// RemoveBatch deletes the results at the given global indices.
func (e *Engine) RemoveBatch(indices []int) error {
	if err := e.results.RemoveBatch(indices); err != nil {
		return ioError(err)
	}
	return nil
}

// KeepOnly retains exactly the results at the given global indices.
func (e *Engine) KeepOnly(indices []int) error {
	if err := e.results.KeepOnly(indices); err != nil {
		return ioError(err)
	}
	return nil
}

// SetFilter installs a predicate GetResults applies to every item before
// returning it.
func (e *Engine) SetFilter(pred func(resultstore.Item) bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.filter = pred
}

// ClearFilter removes any active filter.
func (e *Engine) ClearFilter() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.filter = nil
}

// Freezer exposes the engine's write-back loop so a caller can pin and
// unpin addresses directly.
func (e *Engine) Freezer() *Freezer { return e.freezer }

// Metrics returns a prometheus.Collector exposing this engine's live state.
func (e *Engine) Metrics() *Collector {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return NewCollector(e.sbuf, e.results).(*Collector)
}

// Close releases the engine's result store resources.
func (e *Engine) Close() error {
	e.freezer.Stop()
	if err := e.results.Destroy(); err != nil {
		return ioError(err)
	}
	return nil
}
