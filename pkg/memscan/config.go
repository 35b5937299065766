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

	"gopkg.in/yaml.v3"
)

// Config is the engine's top-level, YAML-loadable configuration, the
// memscan analogue of memtierd's Config{Policy, Routines} struct.
type Config struct {
	// RAMCapacityBytes bounds the result store's in-RAM prefix before it
	// spills to the overflow file.
	RAMCapacityBytes int `yaml:"ramCapacityBytes"`

	// CacheDir holds the result store's overflow file.
	CacheDir string `yaml:"cacheDir"`

	// ChunkSizeBytes is the read granularity a scan uses when sweeping a
	// region.
	ChunkSizeBytes int `yaml:"chunkSizeBytes"`

	// FreezeIntervalMs is the write-back period the engine passes to its
	// freeze loop; a value <= 0 makes NewFreezer fall back to its built-in
	// default interval.
	FreezeIntervalMs int `yaml:"freezeIntervalMs"`

	// Debug turns on debug-level logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the configuration the engine starts with when no
// config file is given.
func DefaultConfig() Config {
	return Config{
		RAMCapacityBytes: 64 << 20,
		CacheDir:         os.TempDir(),
		ChunkSizeBytes:   defaultQuerySize * 1024,
		FreezeIntervalMs: defaultFreezeIntervalMs,
	}
}

// LoadConfigFile reads and parses a YAML config file, filling in defaults
// for any field the file omits.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, ioError(err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, invalidArgumentError("parsing config file " + path + ": " + err.Error())
	}
	return cfg, nil
}
