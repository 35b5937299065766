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
	"testing"

	"github.com/memscan/memscan/pkg/bptree"
)

func TestRefineSingleKeepsOnlySurvivors(t *testing.T) {
	data := make([]byte, 64)
	binary.LittleEndian.PutUint32(data[0:], 100)
	binary.LittleEndian.PutUint32(data[4:], 200)
	binary.LittleEndian.PutUint32(data[8:], 100)
	reader := NewMapReader(0x1000, data)

	prev := bptree.New[uint64, ValueType](4)
	prev.Insert(0x1000, TypeDword)
	prev.Insert(0x1004, TypeDword)
	prev.Insert(0x1008, TypeDword)

	value := NewFixedIntValue(100, TypeDword)
	survivors, err := RefineSingle(reader, prev, value, nil)
	if err != nil {
		t.Fatalf("RefineSingle: %v", err)
	}
	if survivors.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", survivors.Len())
	}
	if _, ok := survivors.Get(0x1000); !ok {
		t.Error("0x1000 should survive (still 100)")
	}
	if _, ok := survivors.Get(0x1004); ok {
		t.Error("0x1004 should not survive (changed to 200)")
	}
	if _, ok := survivors.Get(0x1008); !ok {
		t.Error("0x1008 should survive (still 100)")
	}
}

func TestRefineSingleReportsProgress(t *testing.T) {
	data := make([]byte, 8*400)
	for i := 0; i < 400; i++ {
		binary.LittleEndian.PutUint32(data[i*8:], 7)
	}
	reader := NewMapReader(0, data)

	prev := bptree.New[uint64, ValueType](16)
	for i := 0; i < 400; i++ {
		prev.Insert(uint64(i*8), TypeDword)
	}

	sb, err := NewSharedBuffer(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewSharedBuffer: %v", err)
	}
	value := NewFixedIntValue(7, TypeDword)
	survivors, err := RefineSingle(reader, prev, value, sb)
	if err != nil {
		t.Fatalf("RefineSingle: %v", err)
	}
	if survivors.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", survivors.Len())
	}
	if sb.FoundCount() != 400 {
		t.Errorf("FoundCount() = %d, want 400", sb.FoundCount())
	}
}

func TestRefineGroupRederivesAroundSurvivingAnchors(t *testing.T) {
	data := make([]byte, 128)
	binary.LittleEndian.PutUint32(data[16:], 111)
	binary.LittleEndian.PutUint32(data[20:], 222)
	reader := NewMapReader(0, data)

	v1 := NewFixedIntValue(111, TypeDword)
	v2 := NewFixedIntValue(222, TypeDword)
	query, err := NewSearchQuery([]SearchValue{v1, v2}, ModeOrdered, 32)
	if err != nil {
		t.Fatalf("NewSearchQuery: %v", err)
	}

	// Both addresses must already be in prev: refine narrows a previous
	// result set, it never discovers a brand-new address.
	prevAnchors := bptree.New[uint64, ValueType](4)
	prevAnchors.Insert(16, TypeDword)
	prevAnchors.Insert(20, TypeDword)

	out, err := RefineGroup(reader, prevAnchors, query, nil, nil)
	if err != nil {
		t.Fatalf("RefineGroup: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", out.Len())
	}
	if _, ok := out.Get(16); !ok {
		t.Error("expected match at offset 16")
	}
	if _, ok := out.Get(20); !ok {
		t.Error("expected match at offset 20")
	}
}

func TestRefineGroupNeverIntroducesAnAddressNotInPrev(t *testing.T) {
	data := make([]byte, 128)
	binary.LittleEndian.PutUint32(data[16:], 111)
	binary.LittleEndian.PutUint32(data[20:], 222)
	binary.LittleEndian.PutUint32(data[40:], 222) // matches v2, but was never a prior result
	reader := NewMapReader(0, data)

	v1 := NewFixedIntValue(111, TypeDword)
	v2 := NewFixedIntValue(222, TypeDword)
	query, err := NewSearchQuery([]SearchValue{v1, v2}, ModeOrdered, 32)
	if err != nil {
		t.Fatalf("NewSearchQuery: %v", err)
	}

	prevAnchors := bptree.New[uint64, ValueType](4)
	prevAnchors.Insert(16, TypeDword)

	out, err := RefineGroup(reader, prevAnchors, query, nil, nil)
	if err != nil {
		t.Fatalf("RefineGroup: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("Len() = %d, want 0: address 40 satisfies v2 but was never in prev", out.Len())
	}
}

func TestRefineGroupDropsAnchorsThatChanged(t *testing.T) {
	data := make([]byte, 64)
	binary.LittleEndian.PutUint32(data[0:], 999)
	reader := NewMapReader(0, data)

	v1 := NewFixedIntValue(111, TypeDword)
	v2 := NewFixedIntValue(222, TypeDword)
	query, err := NewSearchQuery([]SearchValue{v1, v2}, ModeOrdered, 8)
	if err != nil {
		t.Fatalf("NewSearchQuery: %v", err)
	}

	prevAnchors := bptree.New[uint64, ValueType](4)
	prevAnchors.Insert(0, TypeDword)

	out, err := RefineGroup(reader, prevAnchors, query, nil, nil)
	if err != nil {
		t.Fatalf("RefineGroup: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 since the anchor byte changed", out.Len())
	}
}
