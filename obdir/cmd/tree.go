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
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"gvisor.dev/obdir/obdir/cmd/util"
	"gvisor.dev/obdir/obdir/config"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/syscalls/nt"
)

// Tree implements subcommands.Command for the "tree" command.
type Tree struct{}

// Name implements subcommands.Command.Name.
func (*Tree) Name() string {
	return "tree"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Tree) Synopsis() string {
	return "recursively list object directories"
}

// Usage implements subcommands.Command.Usage.
func (*Tree) Usage() string {
	return `tree [path] - recursively list object directories, starting at path or \.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Tree) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Tree) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := `\`
	if f.NArg() == 1 {
		path = f.Arg(0)
	}
	conf := args[0].(*config.Config)

	s, err := newSession(ctx, conf)
	if err != nil {
		return util.Errorf("creating namespace: %v", err)
	}
	defer s.close()

	h, err := s.open(path, 0)
	if err != nil {
		return util.Errorf("opening %q: %v", path, err)
	}
	defer nt.Close(s.t, h)
	fmt.Fprintln(os.Stdout, path)
	if err := s.tree(os.Stdout, h, 1, uint32(conf.BufferSize)); err != nil {
		return util.Errorf("listing %q: %v", path, err)
	}
	return subcommands.ExitSuccess
}

// tree writes the entries below the directory at h to w, indented by
// depth, descending into named subdirectories.
func (s *session) tree(w io.Writer, h ob.Handle, depth int, size uint32) error {
	l, err := s.list(h, size, false)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	for _, e := range l.Entries {
		fmt.Fprintf(w, "%s%s (%s)\n", indent, displayName(e.Name), e.TypeName)
		if e.Name == "" || e.TypeName != "Directory" {
			continue
		}
		ch, err := s.open(e.Name, h)
		if err != nil {
			return fmt.Errorf("opening %q: %w", e.Name, err)
		}
		err = s.tree(w, ch, depth+1, size)
		nt.Close(s.t, ch)
		if err != nil {
			return err
		}
	}
	return nil
}
