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

// This file implements the interactive prompt for memscand testability.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/memscan/memscan/pkg/memscan"
)

type Cmd struct {
	description string
	Run         func([]string) commandStatus
}

type commandStatus int

const (
	csOk commandStatus = iota
	csErr
)

type Prompt struct {
	r      *bufio.Reader
	w      *bufio.Writer
	f      *flag.FlagSet
	engine *memscan.Engine
	pid    int
	cmds   map[string]Cmd
	ps1    string
	echo   bool
	quit   bool
}

func NewPrompt(ps1 string, reader *bufio.Reader, writer *bufio.Writer, engine *memscan.Engine, pid int) *Prompt {
	p := &Prompt{r: reader, w: writer, ps1: ps1, engine: engine, pid: pid}
	p.cmds = map[string]Cmd{
		"q":        {"quit interactive prompt.", p.cmdQuit},
		"regions":  {"list mapped regions of the target process.", p.cmdRegions},
		"search":   {"search for a value or group query over regions.", p.cmdSearch},
		"refine":   {"re-test the current results against a new value or query.", p.cmdRefine},
		"results":  {"print current results.", p.cmdResults},
		"remove":   {"remove a result by index.", p.cmdRemove},
		"clear":    {"clear all results.", p.cmdClear},
		"freeze":   {"pin an address to a fixed 32-bit value.", p.cmdFreeze},
		"unfreeze": {"stop pinning an address.", p.cmdUnfreeze},
		"cancel":   {"cancel the in-flight search or refine.", p.cmdCancel},
		"status":   {"print search/refine status.", p.cmdStatus},
		"help":     {"print help.", p.cmdHelp},
		"nop":      {"no operation.", p.cmdNop},
	}
	return p
}

func (p *Prompt) output(format string, a ...interface{}) {
	if p.w == nil {
		return
	}
	p.w.WriteString(fmt.Sprintf(format, a...))
	p.w.Flush()
}

func (p *Prompt) SetEcho(newEcho bool) { p.echo = newEcho }

func (p *Prompt) Interact() {
	for !p.quit {
		p.output(p.ps1)
		rawcmd, err := p.r.ReadString('\n')
		if err != nil {
			p.output("quit: %s\n", err)
			break
		}
		if p.echo {
			p.output("%s", rawcmd)
		}
		cmdSlice := strings.Fields(rawcmd)
		if len(cmdSlice) == 0 {
			continue
		}
		p.f = flag.NewFlagSet(cmdSlice[0], flag.ContinueOnError)
		if cmd, ok := p.cmds[cmdSlice[0]]; ok {
			cmd.Run(cmdSlice[1:])
		} else {
			p.output("unknown command %q\n", cmdSlice[0])
		}
	}
	p.output("quit.\n")
}

func sortedStringKeys(m map[string]Cmd) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Prompt) cmdNop(args []string) commandStatus { return csOk }

func (p *Prompt) cmdQuit(args []string) commandStatus {
	p.quit = true
	return csOk
}

func (p *Prompt) cmdHelp(args []string) commandStatus {
	p.output("Available commands:\n")
	for _, name := range sortedStringKeys(p.cmds) {
		p.output("        %-10s %s\n", name, p.cmds[name].description)
	}
	return csOk
}

func (p *Prompt) cmdRegions(args []string) commandStatus {
	writable := p.f.Bool("writable", true, "only list writable regions")
	if err := p.f.Parse(args); err != nil {
		return csErr
	}
	regions, err := memscan.ListRegions(p.pid, *writable)
	if err != nil {
		p.output("regions: %s\n", err)
		return csErr
	}
	for _, r := range regions {
		p.output("%#016x-%#016x (%d bytes)\n", r.Start, r.End, r.Len())
	}
	return csOk
}

func (p *Prompt) typeFromFlag(s string) memscan.ValueType {
	switch strings.ToUpper(s) {
	case "B":
		return memscan.TypeByte
	case "W":
		return memscan.TypeWord
	case "Q":
		return memscan.TypeQword
	case "F":
		return memscan.TypeFloat
	case "E":
		return memscan.TypeDouble
	default:
		return memscan.TypeDword
	}
}

func (p *Prompt) cmdSearch(args []string) commandStatus {
	typ := p.f.String("type", "D", "default value type: B,W,D,Q,F,E")
	writable := p.f.Bool("writable", true, "only scan writable regions")
	if err := p.f.Parse(args); err != nil {
		return csErr
	}
	rest := p.f.Args()
	if len(rest) == 0 {
		p.output("usage: search [-type T] <query-text>\n")
		return csErr
	}
	query, err := memscan.ParseQuery(strings.Join(rest, " "), p.typeFromFlag(*typ))
	if err != nil {
		p.output("search: %s\n", err)
		return csErr
	}
	regions, err := memscan.ListRegions(p.pid, *writable)
	if err != nil {
		p.output("search: %s\n", err)
		return csErr
	}
	if query.IsGroup() {
		err = p.engine.StartGroupSearch(regions, query, false)
	} else {
		err = p.engine.StartSearch(regions, query.Values[0])
	}
	if err != nil {
		p.output("search: %s\n", err)
		return csErr
	}
	p.output("found %d results\n", p.engine.TotalCount())
	return csOk
}

func (p *Prompt) cmdRefine(args []string) commandStatus {
	typ := p.f.String("type", "D", "default value type: B,W,D,Q,F,E")
	if err := p.f.Parse(args); err != nil {
		return csErr
	}
	rest := p.f.Args()
	if len(rest) == 0 {
		p.output("usage: refine [-type T] <query-text>\n")
		return csErr
	}
	query, err := memscan.ParseQuery(strings.Join(rest, " "), p.typeFromFlag(*typ))
	if err != nil {
		p.output("refine: %s\n", err)
		return csErr
	}
	if query.IsGroup() {
		err = p.engine.Refine(memscan.SearchValue{}, query)
	} else {
		err = p.engine.Refine(query.Values[0], nil)
	}
	if err != nil {
		p.output("refine: %s\n", err)
		return csErr
	}
	p.output("%d results remain\n", p.engine.TotalCount())
	return csOk
}

func (p *Prompt) cmdResults(args []string) commandStatus {
	start := p.f.Int("start", 0, "first result index")
	n := p.f.Int("n", 20, "number of results to print")
	if err := p.f.Parse(args); err != nil {
		return csErr
	}
	items, err := p.engine.GetResults(*start, min(*n, p.engine.TotalCount()-*start))
	if err != nil {
		p.output("results: %s\n", err)
		return csErr
	}
	for i, it := range items {
		p.output("%d: %#016x (type %d)\n", *start+i, it.Addr, it.Type)
	}
	return csOk
}

func (p *Prompt) cmdRemove(args []string) commandStatus {
	if err := p.f.Parse(args); err != nil || p.f.NArg() != 1 {
		p.output("usage: remove <index>\n")
		return csErr
	}
	idx, err := strconv.Atoi(p.f.Arg(0))
	if err != nil {
		p.output("remove: %s\n", err)
		return csErr
	}
	if err := p.engine.Remove(idx); err != nil {
		p.output("remove: %s\n", err)
		return csErr
	}
	return csOk
}

func (p *Prompt) cmdClear(args []string) commandStatus {
	if err := p.engine.ClearResults(); err != nil {
		p.output("clear: %s\n", err)
		return csErr
	}
	return csOk
}

func (p *Prompt) cmdFreeze(args []string) commandStatus {
	if err := p.f.Parse(args); err != nil || p.f.NArg() != 2 {
		p.output("usage: freeze <address> <value>\n")
		return csErr
	}
	addr, err := strconv.ParseUint(p.f.Arg(0), 0, 64)
	if err != nil {
		p.output("freeze: %s\n", err)
		return csErr
	}
	val, err := strconv.ParseInt(p.f.Arg(1), 0, 64)
	if err != nil {
		p.output("freeze: %s\n", err)
		return csErr
	}
	v := memscan.NewFixedIntValue(val, memscan.TypeDword)
	b, _ := v.Bytes()
	p.engine.Freezer().Set(addr, memscan.FrozenValue{Bytes: b, Type: memscan.TypeDword})
	if !p.engine.Freezer().Running() {
		p.engine.Freezer().Start()
	}
	return csOk
}

func (p *Prompt) cmdUnfreeze(args []string) commandStatus {
	if err := p.f.Parse(args); err != nil || p.f.NArg() != 1 {
		p.output("usage: unfreeze <address>\n")
		return csErr
	}
	addr, err := strconv.ParseUint(p.f.Arg(0), 0, 64)
	if err != nil {
		p.output("unfreeze: %s\n", err)
		return csErr
	}
	p.engine.Freezer().Unset(addr)
	return csOk
}

func (p *Prompt) cmdCancel(args []string) commandStatus {
	p.engine.RequestCancel()
	return csOk
}

func (p *Prompt) cmdStatus(args []string) commandStatus {
	p.output("searching: %v, total results: %d, frozen: %d\n",
		p.engine.IsSearching(), p.engine.TotalCount(), p.engine.Freezer().Count())
	return csOk
}
