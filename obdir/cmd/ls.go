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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
	"gvisor.dev/obdir/obdir/cmd/util"
	"gvisor.dev/obdir/obdir/config"
	"gvisor.dev/obdir/pkg/syscalls/nt"
)

// List implements subcommands.Command for the "ls" command.
type List struct {
	single     bool
	bufferSize uint
	jsonOutput bool
}

// Name implements subcommands.Command.Name.
func (*List) Name() string {
	return "ls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*List) Synopsis() string {
	return "list the entries of an object directory"
}

// Usage implements subcommands.Command.Usage.
func (*List) Usage() string {
	return `ls [flags] <path> - list the entries of an object directory.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *List) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.single, "single", false, "query one entry per call.")
	f.UintVar(&l.bufferSize, "buffer", 0, "initial query buffer size in bytes, 0 for --buffer-size.")
	f.BoolVar(&l.jsonOutput, "json", false, "print the listing as JSON.")
}

// Execute implements subcommands.Command.Execute.
func (l *List) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)
	conf := args[0].(*config.Config)

	size := l.bufferSize
	if size == 0 {
		size = conf.BufferSize
	}
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
	res, err := s.list(h, uint32(size), l.single)
	if err != nil {
		return util.Errorf("listing %q: %v", path, err)
	}

	format := "text"
	switch {
	case l.jsonOutput:
		format = "json"
	case term.IsTerminal(int(os.Stdout.Fd())):
		format = "table"
	}
	if err := printListing(os.Stdout, path, res, format); err != nil {
		return util.Errorf("%v", err)
	}
	return subcommands.ExitSuccess
}

// printListing writes res to w in the given format.
func printListing(w io.Writer, path string, res listing, format string) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling listing: %v", err)
		}
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	case "text":
		for _, e := range res.Entries {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", displayName(e.Name), e.TypeName); err != nil {
				return err
			}
		}
		return nil
	case "table":
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Name", "Type"})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		for _, e := range res.Entries {
			table.Append([]string{displayName(e.Name), e.TypeName})
		}
		table.SetFooter([]string{
			fmt.Sprintf("%s: %d entries", path, len(res.Entries)),
			fmt.Sprintf("%s in %d calls", humanize.Bytes(res.Bytes), res.Calls),
		})
		table.Render()
		return nil
	default:
		return fmt.Errorf("invalid format %q, must be table, text, or json", format)
	}
}

// displayName returns the printable form of an entry name.
func displayName(name string) string {
	if name == "" {
		return "<anonymous>"
	}
	return name
}
