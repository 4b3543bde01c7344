/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/gopkg/util/gctuner"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/klauspost/cpuid/v2"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/cloudwego/brlower"
	"github.com/cloudwego/brlower/debug"
)

const (
	MB uint64 = 1024 * 1024
)

var (
	outDir  = flag.String("o", "", "write lowered snapshots into this directory instead of next to the input")
	listing = flag.Bool("print", false, "print the lowered program")
	dotOut  = flag.Bool("dot", false, "write a graphviz file next to every lowered snapshot")
	stats   = flag.Bool("stats", false, "print cumulative statistics")
	gen     = flag.Int("gen", 0, "generate this many random snapshots instead of lowering files")
	seed    = flag.Int64("seed", 1, "first seed for -gen")
	gfx     = flag.String("gfx", brlower.DefaultShape.Gfx, "hardware generation for -gen")
	wave    = flag.Int("wave", 64, "wave size for -gen")
	blocks  = flag.Int("blocks", brlower.DefaultShape.Blocks, "block count for -gen")
	budget  = flag.Int("budget", -1, "skip budget, negative means the default")
	prefer  = flag.Bool("prefer-remove", false, "remove forward branches regardless of cost")
	jobs    = flag.Int("j", cpuid.CPU.PhysicalCores, "number of files lowered concurrently")
	memMB   = flag.Uint64("mem", 0, "soft memory limit in MB for the garbage collector")
	verbose = flag.String("v", "", "comma separated trace topics, e.g. brlower")
)

type _Job struct {
	path string
	err  error
	rp   *brlower.Report
	text string
}

func main() {
	flag.Parse()
	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	if *verbose != "" {
		tlog.SetVerbosity(*verbose)
	}

	if *memMB != 0 {
		gctuner.Tuning(*memMB * MB)
	}

	var err error
	if *gen > 0 {
		err = generate(flag.Args())
	} else {
		err = run(flag.Args())
	}

	if err != nil {
		tlog.Printw("brlower", "err", err)
		os.Exit(1)
	}

	if *stats {
		st := debug.GetStats()
		fmt.Printf("programs: %d\n", st.Programs)
		fmt.Printf("branches: %d kept, %d removed\n", st.Branches.Kept, st.Branches.Removed)
		fmt.Printf("blocks: %d collapsed, %d pruned\n", st.Blocks.Collapsed, st.Blocks.Pruned)
		fmt.Printf("exec writes deleted: %d\n", st.ExecWrites)
	}
}

func generate(args []string) error {
	if len(args) != 1 {
		return errors.New("-gen needs exactly one output directory")
	}

	err := os.MkdirAll(args[0], 0o755)
	if err != nil {
		return errors.Wrap(err, "create %v", args[0])
	}

	shape := brlower.Shape{Gfx: *gfx, Wave: *wave, Blocks: *blocks}
	for i := 0; i < *gen; i++ {
		buf, err := brlower.Generate(*seed+int64(i), shape)
		if err != nil {
			return errors.Wrap(err, "seed %d", *seed+int64(i))
		}

		name := filepath.Join(args[0], fmt.Sprintf("prog_%d.bin", *seed+int64(i)))
		if err = os.WriteFile(name, buf, 0o644); err != nil {
			return errors.Wrap(err, "write %v", name)
		}
	}
	return nil
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("no input snapshots")
	}

	var options []brlower.Option
	if *budget >= 0 {
		options = append(options, brlower.WithSkipBudget(*budget))
	}
	if *prefer {
		options = append(options, brlower.WithPreferRemove(true))
	}

	if *jobs < 1 {
		*jobs = 1
	}

	tr := tlog.Start("brlower", "files", len(args), "jobs", *jobs)
	defer tr.Finish()
	ctx := tlog.ContextWithSpan(context.Background(), tr)

	var wg sync.WaitGroup
	sem := make(chan struct{}, *jobs)
	res := make([]_Job, len(args))

	for i, path := range args {
		job := &res[i]
		job.path = path
		sem <- struct{}{}
		wg.Add(1)
		gopool.CtxGo(ctx, func() {
			defer func() { <-sem; wg.Done() }()
			defer func() {
				if v := recover(); v != nil {
					job.err = fmt.Errorf("%v", v)
				}
			}()
			job.rp, job.text, job.err = lowerFile(ctx, job.path, options)
		})
	}
	wg.Wait()

	failed := 0
	for _, job := range res {
		if job.err != nil {
			failed++
			tr.Printw("failed", "file", job.path, "err", job.err)
			continue
		}

		if job.rp.Changed() {
			fmt.Printf("%s: %v\n", job.path, job.rp)
		} else {
			fmt.Printf("%s: unchanged\n", job.path)
		}
		if *listing {
			fmt.Print(job.text)
		}
	}

	if failed != 0 {
		return errors.New("%d of %d files failed", failed, len(args))
	}
	return nil
}

func lowerFile(ctx context.Context, path string, options []brlower.Option) (*brlower.Report, string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "read")
	}

	out, rp, err := brlower.Lower(ctx, src, options...)
	if err != nil {
		return nil, "", errors.Wrap(err, "lower %v", path)
	}

	dst := outPath(path, ".lowered.bin")
	if err = os.WriteFile(dst, out, 0o644); err != nil {
		return nil, "", errors.Wrap(err, "write")
	}

	if *dotOut {
		gv, err := brlower.Dot(out, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if err != nil {
			return nil, "", errors.Wrap(err, "dot")
		}
		if err = os.WriteFile(outPath(path, ".dot"), gv, 0o644); err != nil {
			return nil, "", errors.Wrap(err, "write dot")
		}
	}

	var text string
	if *listing {
		if text, err = brlower.Listing(out); err != nil {
			return nil, "", errors.Wrap(err, "listing")
		}
	}
	return rp, text, nil
}

func outPath(path string, ext string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ext
	if *outDir != "" {
		return filepath.Join(*outDir, base)
	}
	return filepath.Join(filepath.Dir(path), base)
}
