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

//go:build linux

package memscan

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProcMemReader implements Reader over a live process's /proc/<pid>/mem,
// the same file the teacher's procMemFile opens for page-forcing reads.
// Unlike procMemFile, ReadMemory here tolerates per-page faults: it walks
// the requested span one page at a time and marks every page it could not
// pread(2) as unsuccessful in the caller's bitmap, instead of failing the
// whole request.
type ProcMemReader struct {
	pid  int
	file *os.File
}

// OpenProcMem opens /proc/<pid>/mem for a target process. The caller needs
// ptrace access to pid (typically: be its parent, or run as root, or hold
// CAP_SYS_PTRACE).
func OpenProcMem(pid int) (*ProcMemReader, error) {
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		return nil, readerFailureError(err)
	}
	return &ProcMemReader{pid: pid, file: f}, nil
}

func (r *ProcMemReader) Close() error { return r.file.Close() }

func (r *ProcMemReader) ReadMemory(addr uint64, buf []byte, status *PageBitmap) error {
	n := uint64(len(buf))
	for off := uint64(0); off < n; {
		pageEnd := ((addr + off) &^ (uPageSize - 1)) + uPageSize
		end := pageEnd - addr
		if end > n {
			end = n
		}
		_, err := r.file.ReadAt(buf[off:end], int64(addr+off))
		if err == nil && status != nil {
			status.MarkSuccess(addr + off)
		}
		off = end
	}
	return nil
}

func (r *ProcMemReader) WriteMemory(addr uint64, buf []byte) error {
	if _, err := r.file.WriteAt(buf, int64(addr)); err != nil {
		return readerFailureError(err)
	}
	return nil
}

// ListRegions parses /proc/<pid>/maps into the set of mapped regions,
// optionally restricted to ranges the kernel marks writable ("w" in the
// permission field), which is what a cheat-style search over live process
// state cares about.
func ListRegions(pid int, writableOnly bool) (Regions, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, readerFailureError(err)
	}
	defer f.Close()

	var regions Regions
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		dash := strings.IndexByte(line, '-')
		space := strings.IndexByte(line, ' ')
		if dash <= 0 || space <= dash {
			continue
		}
		start, err := strconv.ParseUint(line[:dash], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(line[dash+1:space], 16, 64)
		if err != nil || end <= start {
			continue
		}
		if writableOnly {
			permEnd := space + 1
			for permEnd < len(line) && line[permEnd] != ' ' {
				permEnd++
			}
			perms := line[space+1 : permEnd]
			if !strings.Contains(perms, "w") {
				continue
			}
		}
		regions = append(regions, NewRegion(start, end))
	}
	if err := scanner.Err(); err != nil {
		return nil, ioError(err)
	}
	return regions, nil
}
