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

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memscan/memscan/pkg/memscan"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "memscand: "+format+"\n", a...)
	os.Exit(1)
}

func main() {
	memscan.SetLogger(log.New(os.Stderr, "", 0))

	optPid := flag.Int("pid", 0, "target process PID")
	optConfig := flag.String("config", "", "path to a YAML config file")
	optPrompt := flag.Bool("prompt", false, "launch interactive prompt")
	optDebug := flag.Bool("debug", false, "print debug output")
	optMetricsAddr := flag.String("metrics-listen", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")

	flag.Parse()
	memscan.SetLogDebug(*optDebug)

	if *optPid <= 0 {
		exit("missing -pid")
	}

	cfg := memscan.DefaultConfig()
	if *optConfig != "" {
		loaded, err := memscan.LoadConfigFile(*optConfig)
		if err != nil {
			exit("%s", err)
		}
		cfg = loaded
	}

	reader, err := memscan.OpenProcMem(*optPid)
	if err != nil {
		exit("failed to open target process memory: %s", err)
	}
	defer reader.Close()

	engine, err := memscan.New(reader, cfg)
	if err != nil {
		exit("failed to create engine: %s", err)
	}
	defer engine.Close()

	if *optMetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(engine.Metrics())
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*optMetricsAddr, mux); err != nil {
				log.Printf("memscand: metrics server stopped: %s", err)
			}
		}()
	}

	prompt := NewPrompt("memscand> ", bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout), engine, *optPid)
	if !*optPrompt {
		if stdinFileInfo, statErr := os.Stdin.Stat(); statErr == nil && (stdinFileInfo.Mode()&os.ModeCharDevice) == 0 {
			prompt.SetEcho(true)
		}
	}
	prompt.Interact()
}
