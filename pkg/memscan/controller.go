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
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/memscan/memscan/pkg/bptree"
	"github.com/memscan/memscan/pkg/resultstore"
)

// regionWorkerLimit bounds how many regions a single search/refine fans out
// across concurrently.
const regionWorkerLimit = 8

// store is the minimal resultstore.Store surface Controller depends on; it
// exists so controller_test.go can substitute a smaller fake if needed and
// so this file states its dependency explicitly rather than implicitly.
type store interface {
	Add(resultstore.Item) error
	Clear() error
}

// Controller runs at most one search or refine at a time, fanning the work
// out across regions and draining each region's results into the result
// store under the engine-wide lock, the way the teacher's Mover task handler
// serializes state mutation behind its own single mutex.
type Controller struct {
	reader Reader
	store  store
	buf    *SharedBuffer

	mutex      sync.RWMutex // guards result-store drains
	searching  int32        // atomic bool: 0/1
	cancelFlag int32        // atomic bool: 0/1
}

// NewController builds a Controller. buf may be nil, in which case no
// progress is published anywhere but the return value.
func NewController(reader Reader, results store, buf *SharedBuffer) *Controller {
	return &Controller{reader: reader, store: results, buf: buf}
}

// IsSearching reports whether a search or refine is currently in flight.
func (c *Controller) IsSearching() bool {
	return atomic.LoadInt32(&c.searching) != 0
}

// RequestCancel asks the in-flight operation, if any, to stop at its next
// cancellation check point.
func (c *Controller) RequestCancel() {
	atomic.StoreInt32(&c.cancelFlag, 1)
	if c.buf != nil {
		c.buf.SetCancelRequested(true)
	}
}

func (c *Controller) cancelRequested() bool {
	if atomic.LoadInt32(&c.cancelFlag) != 0 {
		return true
	}
	return c.buf != nil && c.buf.CancelRequested()
}

// beginOperation claims the single in-flight slot, returning an error if one
// is already running.
func (c *Controller) beginOperation() error {
	if !atomic.CompareAndSwapInt32(&c.searching, 0, 1) {
		return alreadySearchingError()
	}
	atomic.StoreInt32(&c.cancelFlag, 0)
	if c.buf != nil {
		c.buf.Reset()
		c.buf.SetStatus(StatusSearching)
	}
	return nil
}

func (c *Controller) endOperation(finalStatus ScanStatus, found int, err error) {
	if c.buf != nil {
		// Publish discipline: drain results (already done by caller under
		// c.mutex before this point), then progress/found counters, and
		// status last, so a host that only polls status never observes
		// found_count lagging behind a status that claims completion.
		c.buf.SetProgress(1000)
		c.buf.SetFoundCount(int64(found))
		if err != nil {
			c.buf.SetErrorCode(classifyError(err))
			c.buf.SetStatus(StatusError)
		} else {
			c.buf.SetStatus(finalStatus)
		}
	}
	atomic.StoreInt32(&c.searching, 0)
}

func classifyError(err error) ErrorKind {
	var ee *EngineError
	if eerr, ok := err.(*EngineError); ok {
		ee = eerr
	}
	if ee != nil {
		return ee.Kind
	}
	return ErrKindInternal
}

// StartSearch launches a fresh search over regions for value (single) or
// query (group, when query != nil), returning once every region has been
// scanned (or cancellation/failure cuts it short). It is synchronous from
// the caller's point of view; "async" behavior is the caller's job, e.g. by
// invoking it from its own goroutine and polling IsSearching/the shared
// buffer.
func (c *Controller) StartSearch(regions []Region, value SearchValue, query *SearchQuery, chunkSize uint64, deep bool) error {
	if err := c.beginOperation(); err != nil {
		return err
	}

	total := len(regions)
	if total == 0 {
		c.endOperation(StatusCompleted, 0, nil)
		return nil
	}
	var regionsDone int32
	var totalFound int64
	var merr error
	var mergeMu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(regionWorkerLimit)

	for _, region := range regions {
		region := region
		g.Go(func() error {
			if c.cancelRequested() {
				return ErrScanCancelled
			}
			var matches *bptree.Set[uint64, ValueType]
			var err error
			if query != nil && query.IsGroup() {
				err = c.scanGroupChecked(region, query, chunkSize, deep, &matches)
			} else {
				matches, err = ScanSingleValue(c.reader, region, value, chunkSize)
			}
			if err != nil && err != ErrScanCancelled {
				mergeMu.Lock()
				merr = multierror.Append(merr, readerFailureError(err))
				mergeMu.Unlock()
			}
			if matches != nil {
				n, derr := c.drain(matches)
				if derr != nil {
					return derr
				}
				atomic.AddInt64(&totalFound, int64(n))
			}
			done := atomic.AddInt32(&regionsDone, 1)
			if c.buf != nil {
				c.buf.SetRegionsDone(uint32(done))
				c.buf.SetProgress(uint32(int64(done) * 1000 / int64(total)))
				c.buf.BumpHeartbeat()
			}
			if err == ErrScanCancelled {
				return ErrScanCancelled
			}
			return nil
		})
	}

	waitErr := g.Wait()

	if merr != nil {
		log.Warnf("search: %d region(s) hit a read failure and were skipped: %v", len(merr.(*multierror.Error).Errors), merr)
	}

	finalStatus := StatusCompleted
	if waitErr == ErrScanCancelled || c.cancelRequested() {
		finalStatus = StatusCancelled
	}
	c.endOperation(finalStatus, int(totalFound), firstFatal(waitErr))
	if waitErr != nil && waitErr != ErrScanCancelled {
		return waitErr
	}
	return nil
}

// scanGroupChecked adapts ScanGroup's cancel callback to the controller's
// atomic cancellation flag.
func (c *Controller) scanGroupChecked(region Region, query *SearchQuery, chunkSize uint64, deep bool, out **bptree.Set[uint64, ValueType]) error {
	matches, err := ScanGroup(c.reader, region, query, chunkSize, deep, c.cancelRequested)
	*out = matches
	return err
}

// StartRefine re-tests a previously-found address set against value or
// query, draining survivors into the result store the same way StartSearch
// does. The caller is expected to have cleared the store first if it wants
// a fresh result set rather than an additive one.
func (c *Controller) StartRefine(prev *bptree.Set[uint64, ValueType], value SearchValue, query *SearchQuery) error {
	if err := c.beginOperation(); err != nil {
		return err
	}

	var matches *bptree.Set[uint64, ValueType]
	var err error
	if query != nil && query.IsGroup() {
		matches, err = RefineGroup(c.reader, prev, query, c.cancelRequested, c.buf)
	} else {
		matches, err = RefineSingle(c.reader, prev, value, c.buf)
	}

	found := 0
	if matches != nil {
		found, _ = c.drain(matches)
	}

	finalStatus := StatusCompleted
	if err == ErrScanCancelled || c.cancelRequested() {
		finalStatus = StatusCancelled
		err = nil
	}
	c.endOperation(finalStatus, found, err)
	return err
}

// drain copies every (addr,type) pair from matches into the result store
// under the engine-wide write lock, returning how many it added.
func (c *Controller) drain(matches *bptree.Set[uint64, ValueType]) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	it := matches.Iter()
	for {
		addr, vtype, ok := it.Next()
		if !ok {
			break
		}
		if err := c.store.Add(resultstore.Item{Addr: addr, Type: uint8(vtype)}); err != nil {
			return n, ioError(err)
		}
		n++
	}
	return n, nil
}

func firstFatal(errs ...error) error {
	for _, e := range errs {
		if e != nil && e != ErrScanCancelled {
			return e
		}
	}
	return nil
}
