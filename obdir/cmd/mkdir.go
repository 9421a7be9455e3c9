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

	"github.com/google/subcommands"
	"gvisor.dev/obdir/obdir/cmd/util"
	"gvisor.dev/obdir/obdir/config"
	"gvisor.dev/obdir/pkg/status"
)

// Mkdir implements subcommands.Command for the "mkdir" command.
type Mkdir struct {
	openIf    bool
	permanent bool
}

// Name implements subcommands.Command.Name.
func (*Mkdir) Name() string {
	return "mkdir"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkdir) Synopsis() string {
	return "create object directories"
}

// Usage implements subcommands.Command.Usage.
func (*Mkdir) Usage() string {
	return `mkdir [flags] <path>... - create object directories, in order.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mkdir) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.openIf, "openif", false, "open directories that already exist instead of failing.")
	f.BoolVar(&m.permanent, "permanent", false, "create permanent directories.")
}

// Execute implements subcommands.Command.Execute.
func (m *Mkdir) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	s, err := newSession(ctx, conf)
	if err != nil {
		return util.Errorf("creating namespace: %v", err)
	}
	defer s.close()

	for _, path := range f.Args() {
		h, err := s.mkdir(path, m.openIf, m.permanent)
		switch {
		case err == nil:
			util.Infof("%s: created, handle %v", path, h)
		case err == status.ObjectNameExists:
			util.Infof("%s: exists, handle %v", path, h)
		case err == status.ObjectNameCollision:
			return util.Errorf("%s: already exists", path)
		default:
			return util.Errorf("creating %q: %v (status %v)", path, err, status.CodeOf(err))
		}
	}
	return subcommands.ExitSuccess
}
