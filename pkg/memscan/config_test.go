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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memscan.yaml")
	contents := "ramCapacityBytes: 1048576\nchunkSizeBytes: 8192\ndebug: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.RAMCapacityBytes != 1048576 {
		t.Errorf("RAMCapacityBytes = %d, want 1048576", cfg.RAMCapacityBytes)
	}
	if cfg.ChunkSizeBytes != 8192 {
		t.Errorf("ChunkSizeBytes = %d, want 8192", cfg.ChunkSizeBytes)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.FreezeIntervalMs != defaultFreezeIntervalMs {
		t.Errorf("FreezeIntervalMs = %d, want default %d (field omitted from file)", cfg.FreezeIntervalMs, defaultFreezeIntervalMs)
	}
}

func TestLoadConfigFileMissingReturnsIOError(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	ee, ok := err.(*EngineError)
	if !ok || ee.Kind != ErrKindIO {
		t.Errorf("err = %v, want ErrKindIO", err)
	}
}
