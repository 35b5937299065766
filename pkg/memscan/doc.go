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

/*
Package memscan implements an in-process memory value search engine: given a
structured query and a list of virtual-address regions of a target process,
it streams the regions through chunked reads, finds every address whose
contents satisfy the query, and keeps the matches in a scalable result store
that supports iterative refinement.

Component types

1. The query IR and its lexer/parser (query.go, lexer.go, parser.go)
translate a short query-language string such as "100D" or
"BAADh;1,77D;100~1,000F::512" into a SearchQuery.

2. Scanners (scanner_single.go, scanner_group.go) sweep Reader-supplied
chunks of a region, using a PageBitmap (bitmap.go) to avoid testing bytes
behind pages the reader could not fetch, and insert matches into a
bptree.Set keyed by address.

3. The result store (resultstore package) holds matches across a scan as an
insertion-ordered list of (addr, type) pairs, spilling from RAM into a growable
mmapped overflow file once a configured budget is exceeded.

4. The refine engine (refine.go) re-applies a new query against addresses
already in the result store, without rescanning whole regions.

5. The async controller (controller.go) fans a search out across regions,
publishes progress through a lock-free SharedBuffer (sharedbuffer.go), and
supports cooperative cancellation.

6. The freeze loop (freeze.go) periodically writes a pinned set of
(addr, bytes) back through the Reader, independent of searching/refining.

Supporting modules

The components above are supported by lower-level modules:
  - Region (region.go) is a half-open virtual-address interval.
  - Reader (reader.go) is the abstraction over the external, privileged
    memory-reader the engine depends on but does not implement.
  - Engine (engine.go) wires the above into the public API described in
    the project's design document.
*/
package memscan
