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
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ScanStatus is the first word of the shared progress buffer.
type ScanStatus uint32

const (
	StatusIdle ScanStatus = iota
	StatusSearching
	StatusCompleted
	StatusCancelled
	StatusError
)

const sharedBufferHeaderSize = 32

const (
	offStatus       = 0
	offProgress     = 4
	offRegionsDone  = 8
	offFoundCount   = 12
	offErrorCode    = 20
	offHeartbeat    = 24
	offCancelReq    = 28
)

// SharedBuffer is a lock-free view over a host-owned byte region whose
// first 32 bytes are a fixed status header; everything past that is
// reserved for future use. Every field access is a single atomic word
// operation -- there is no cross-field consistency guarantee, matching the
// progress-reporting discipline controller.go observes when publishing.
type SharedBuffer struct {
	buf []byte
}

// NewSharedBuffer wraps buf, which must be at least 32 bytes.
func NewSharedBuffer(buf []byte) (*SharedBuffer, error) {
	if len(buf) < sharedBufferHeaderSize {
		return nil, invalidArgumentError(fmt.Sprintf("shared buffer must be at least %d bytes, got %d", sharedBufferHeaderSize, len(buf)))
	}
	return &SharedBuffer{buf: buf}, nil
}

func (b *SharedBuffer) word32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.buf[off]))
}

func (b *SharedBuffer) word64(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&b.buf[off]))
}

func (b *SharedBuffer) Status() ScanStatus {
	return ScanStatus(atomic.LoadUint32(b.word32(offStatus)))
}

func (b *SharedBuffer) SetStatus(s ScanStatus) {
	atomic.StoreUint32(b.word32(offStatus), uint32(s))
}

func (b *SharedBuffer) Progress() uint32 { return atomic.LoadUint32(b.word32(offProgress)) }

func (b *SharedBuffer) SetProgress(p uint32) { atomic.StoreUint32(b.word32(offProgress), p) }

func (b *SharedBuffer) RegionsDone() uint32 { return atomic.LoadUint32(b.word32(offRegionsDone)) }

func (b *SharedBuffer) SetRegionsDone(n uint32) { atomic.StoreUint32(b.word32(offRegionsDone), n) }

func (b *SharedBuffer) FoundCount() int64 {
	return int64(atomic.LoadUint64(b.word64(offFoundCount)))
}

func (b *SharedBuffer) SetFoundCount(n int64) {
	atomic.StoreUint64(b.word64(offFoundCount), uint64(n))
}

func (b *SharedBuffer) ErrorCode() ErrorKind {
	return ErrorKind(atomic.LoadUint32(b.word32(offErrorCode)))
}

func (b *SharedBuffer) SetErrorCode(k ErrorKind) {
	atomic.StoreUint32(b.word32(offErrorCode), uint32(k))
}

func (b *SharedBuffer) Heartbeat() uint32 { return atomic.LoadUint32(b.word32(offHeartbeat)) }

func (b *SharedBuffer) BumpHeartbeat() { atomic.AddUint32(b.word32(offHeartbeat), 1) }

// CancelRequested reports whether the host has written cancel_req.
func (b *SharedBuffer) CancelRequested() bool {
	return atomic.LoadUint32(b.word32(offCancelReq)) != 0
}

// SetCancelRequested sets or clears the cancel flag; the host writes it, and
// Controller.RequestCancel sets it too.
func (b *SharedBuffer) SetCancelRequested(v bool) {
	n := uint32(0)
	if v {
		n = 1
	}
	atomic.StoreUint32(b.word32(offCancelReq), n)
}

// Reset zeroes every header field.
func (b *SharedBuffer) Reset() {
	for i := 0; i < sharedBufferHeaderSize; i++ {
		b.buf[i] = 0
	}
}

// word32/word64 hand sync/atomic a pointer straight into the backing slice,
// so the wire layout tests decode with encoding/binary matches exactly what
// the atomic ops produce: little-endian, at the fixed offsets above. Go's
// atomic package requires naturally aligned pointers. With a page-aligned
// backing slice every 32-bit field, at a multiple of 4, is naturally
// aligned; the 64-bit found_count word sits at offset 12, which is 4-byte
// but not 8-byte aligned.

// RawHeader decodes the header without going through the atomic accessors,
// for tests asserting the on-the-wire layout a host process would see.
type RawHeader struct {
	Status      uint32
	Progress    uint32
	RegionsDone uint32
	FoundCount  int64
	ErrorCode   uint32
	Heartbeat   uint32
	CancelReq   uint32
}

func (b *SharedBuffer) DecodeRaw() RawHeader {
	le := binary.LittleEndian
	return RawHeader{
		Status:      le.Uint32(b.buf[offStatus:]),
		Progress:    le.Uint32(b.buf[offProgress:]),
		RegionsDone: le.Uint32(b.buf[offRegionsDone:]),
		FoundCount:  int64(le.Uint64(b.buf[offFoundCount:])),
		ErrorCode:   le.Uint32(b.buf[offErrorCode:]),
		Heartbeat:   le.Uint32(b.buf[offHeartbeat:]),
		CancelReq:   le.Uint32(b.buf[offCancelReq:]),
	}
}
