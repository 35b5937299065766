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

import "testing"

func TestNewSharedBufferRejectsUndersizedBuffer(t *testing.T) {
	if _, err := NewSharedBuffer(make([]byte, 16)); err == nil {
		t.Fatal("expected an error for a buffer shorter than the header")
	}
}

func TestSharedBufferFieldRoundTrip(t *testing.T) {
	sb, err := NewSharedBuffer(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewSharedBuffer: %v", err)
	}

	sb.SetStatus(StatusSearching)
	sb.SetProgress(42)
	sb.SetRegionsDone(3)
	sb.SetFoundCount(123456789)
	sb.SetErrorCode(ErrKindReaderFailure)
	sb.BumpHeartbeat()
	sb.BumpHeartbeat()
	sb.SetCancelRequested(true)

	if got := sb.Status(); got != StatusSearching {
		t.Errorf("Status() = %v, want %v", got, StatusSearching)
	}
	if got := sb.Progress(); got != 42 {
		t.Errorf("Progress() = %d, want 42", got)
	}
	if got := sb.RegionsDone(); got != 3 {
		t.Errorf("RegionsDone() = %d, want 3", got)
	}
	if got := sb.FoundCount(); got != 123456789 {
		t.Errorf("FoundCount() = %d, want 123456789", got)
	}
	if got := sb.ErrorCode(); got != ErrKindReaderFailure {
		t.Errorf("ErrorCode() = %v, want %v", got, ErrKindReaderFailure)
	}
	if got := sb.Heartbeat(); got != 2 {
		t.Errorf("Heartbeat() = %d, want 2", got)
	}
	if !sb.CancelRequested() {
		t.Error("CancelRequested() = false, want true")
	}

	sb.SetCancelRequested(false)
	if sb.CancelRequested() {
		t.Error("CancelRequested() = true after clearing, want false")
	}
}

func TestSharedBufferDecodeRawMatchesOffsets(t *testing.T) {
	sb, err := NewSharedBuffer(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewSharedBuffer: %v", err)
	}
	sb.SetStatus(StatusCompleted)
	sb.SetProgress(100)
	sb.SetFoundCount(-1)

	raw := sb.DecodeRaw()
	if raw.Status != uint32(StatusCompleted) {
		t.Errorf("raw.Status = %d, want %d", raw.Status, StatusCompleted)
	}
	if raw.Progress != 100 {
		t.Errorf("raw.Progress = %d, want 100", raw.Progress)
	}
	if raw.FoundCount != -1 {
		t.Errorf("raw.FoundCount = %d, want -1", raw.FoundCount)
	}
}

func TestSharedBufferReset(t *testing.T) {
	sb, err := NewSharedBuffer(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewSharedBuffer: %v", err)
	}
	sb.SetStatus(StatusError)
	sb.SetFoundCount(999)
	sb.Reset()
	if sb.Status() != StatusIdle {
		t.Errorf("Status() after Reset() = %v, want StatusIdle", sb.Status())
	}
	if sb.FoundCount() != 0 {
		t.Errorf("FoundCount() after Reset() = %d, want 0", sb.FoundCount())
	}
}
