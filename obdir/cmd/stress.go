// Copyright 2026 The gVisor Authors.
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


package cmd

import (
	"context"
	"flag"
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/obdir/obdir/cmd/util"
	"gvisor.dev/obdir/obdir/config"
	"gvisor.dev/obdir/pkg/pool"
	"gvisor.dev/obdir/pkg/syscalls/nt"
)

// stressDirectory is the directory the stress workers operate in.
const stressDirectory = `\Stress`

// Stress implements subcommands.Command for the "stress" command.
type Stress struct {
	workers    int
	iterations int
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "run concurrent directory creation and enumeration"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return `stress [flags] - run concurrent directory creation and enumeration.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.workers, "workers", 8, "number of workers; half create directories, half enumerate.")
	f.IntVar(&s.iterations, "iterations", 1000, "iterations per worker.")
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || s.workers < 2 || s.iterations < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	sess, err := newSession(ctx, conf)
	if err != nil {
		return util.Errorf("creating namespace: %v", err)
	}
	defer sess.close()

	res, err := sess.stress(ctx, s.workers, s.iterations, uint32(conf.BufferSize))
	if err != nil {
		return util.Errorf("stress: %v", err)
	}
	util.Infof("%s directories created, %s queries returned %s entries (%s)",
		humanize.Comma(res.created), humanize.Comma(res.queries),
		humanize.Comma(res.entries), humanize.Bytes(res.bytes))
	return subcommands.ExitSuccess
}

type stressResult struct {
	created int64
	queries int64
	entries int64
	bytes   uint64
}

// stress runs workers concurrently: even workers create and close
// temporary directories under stressDirectory, odd workers enumerate it.
// Every call must return one of the statuses list and mkdir accept, and
// all objects and pool memory must be released afterwards.
func (s *session) stress(ctx context.Context, workers, iterations int, size uint32) (stressResult, error) {
	m := s.k.ObjectManager
	baseline := m.Stats().Live

	dir, err := s.mkdir(stressDirectory, false, false)
	if err != nil {
		return stressResult{}, fmt.Errorf("creating %s: %w", stressDirectory, err)
	}

	var (
		created atomic.Int64
		queries atomic.Int64
		entries atomic.Int64
		bytes   atomic.Uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		w := s.fork(gctx)
		g.Go(func() error {
			defer w.close()
			if i%2 == 0 {
				for j := 0; j < iterations && gctx.Err() == nil; j++ {
					path := fmt.Sprintf(`%s\w%d-%d`, stressDirectory, i, j)
					h, err := w.mkdir(path, false, false)
					if err != nil {
						return fmt.Errorf("creating %s: %w", path, err)
					}
					if err := nt.Close(w.t, h); err != nil {
						return fmt.Errorf("closing %s: %w", path, err)
					}
					created.Add(1)
				}
				return nil
			}
			h, err := w.open(stressDirectory, 0)
			if err != nil {
				return fmt.Errorf("opening %s: %w", stressDirectory, err)
			}
			for j := 0; j < iterations && gctx.Err() == nil; j++ {
				l, err := w.list(h, size, j%4 == 1)
				if err != nil {
					return fmt.Errorf("listing %s: %w", stressDirectory, err)
				}
				queries.Add(int64(l.Calls))
				entries.Add(int64(len(l.Entries)))
				bytes.Add(l.Bytes)
			}
			return nil
		})
	}
	err = g.Wait()
	if cerr := nt.Close(s.t, dir); err == nil {
		err = cerr
	}
	res := stressResult{
		created: created.Load(),
		queries: queries.Load(),
		entries: entries.Load(),
		bytes:   bytes.Load(),
	}
	if err != nil {
		return res, err
	}

	if live := m.Stats().Live; live != baseline {
		return res, fmt.Errorf("%d objects live after stress, want %d", live, baseline)
	}
	if out := s.k.Pool.Stats(pool.NonPaged).Outstanding; out != 0 {
		return res, fmt.Errorf("%s of non-paged pool outstanding after stress", humanize.Bytes(uint64(out)))
	}
	return res, nil
}
