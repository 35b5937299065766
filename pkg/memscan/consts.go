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

import "os"

const (
	// defaultQuerySize is the default window, in bytes, that a group query
	// proximity constraint applies to when a query text omits the size.
	defaultQuerySize = 512

	// minGroupValues and maxGroupValues bound the number of values a group
	// query may carry (spec: 1..=64 total values).
	minGroupValues = 1
	maxGroupValues = 64

	// minQueryRange and maxQueryRange bound the size window of a group query.
	minQueryRange = 2
	maxQueryRange = 65536

	// cancelCheckInterval is how often the deep DFS matcher polls for
	// cancellation; a quality knob, not a correctness one.
	cancelCheckInterval = 500

	// defaultFreezeIntervalMs is the freeze loop's default write-back period.
	defaultFreezeIntervalMs = 33
)

var pageSize = int64(os.Getpagesize())
var uPageSize = uint64(pageSize)
