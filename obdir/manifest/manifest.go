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


// Package manifest loads namespace manifests and populates an object
// namespace from them.
//
// A manifest lists object types, directories and objects. It is written in
// TOML or YAML, chosen by the file extension:
//
//	[[type]]
//	name = "Device"
//
//	[[directory]]
//	path = '\Device'
//	permanent = true
//
//	[[object]]
//	path = '\Device\Harddisk0'
//	type = "Device"
//	permanent = true
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
	"gvisor.dev/obdir/pkg/log"
)

// Manifest describes the contents of a namespace.
type Manifest struct {
	Types       []TypeSpec      `toml:"type" yaml:"types"`
	Directories []DirectorySpec `toml:"directory" yaml:"directories"`
	Objects     []ObjectSpec    `toml:"object" yaml:"objects"`
}

// TypeSpec describes an object type to register.
type TypeSpec struct {
	Name string `toml:"name" yaml:"name"`

	// ValidAccess is the set of specific rights the type grants. Zero
	// selects DefaultValidAccess.
	ValidAccess uint32 `toml:"valid-access" yaml:"valid-access"`

	Comment string `toml:"comment" yaml:"comment,omitempty"`
}

// DirectorySpec describes a directory to create.
type DirectorySpec struct {
	Path      string `toml:"path" yaml:"path"`
	Permanent bool   `toml:"permanent" yaml:"permanent"`
	Comment   string `toml:"comment" yaml:"comment,omitempty"`
}

// ObjectSpec describes a typed object to create. Anonymous objects are
// linked into the directory at Path without a name.
type ObjectSpec struct {
	Path      string `toml:"path" yaml:"path"`
	Type      string `toml:"type" yaml:"type"`
	Permanent bool   `toml:"permanent" yaml:"permanent"`
	Anonymous bool   `toml:"anonymous" yaml:"anonymous"`
	Comment   string `toml:"comment" yaml:"comment,omitempty"`
}

// errLocked is returned while another process holds the manifest lock.
var errLocked = errors.New("manifest is locked")

// Load reads the manifest at path. A shared lock is held on the file while
// it is read; Load waits up to timeout for conflicting locks to go away.
func Load(path string, timeout time.Duration) (*Manifest, error) {
	unlock, err := lockShared(path, timeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}
	return m, nil
}

// lockShared takes a shared lock on path, retrying until timeout.
func lockShared(path string, timeout time.Duration) (func() error, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	l := flock.New(path)

	var b backoff.BackOff = &backoff.StopBackOff{}
	if timeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 5 * time.Millisecond
		eb.MaxInterval = 250 * time.Millisecond
		eb.MaxElapsedTime = timeout
		b = eb
	}
	op := func() error {
		ok, err := l.TryRLock()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLocked
		}
		return nil
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("error acquiring lock on manifest %q: %w", path, err)
	}
	return l.Unlock, nil
}

// Parse decodes a manifest. format is a file extension: ".toml", ".yaml" or
// ".yml".
func Parse(format string, data []byte) (*Manifest, error) {
	m := &Manifest{}
	switch strings.ToLower(format) {
	case ".toml":
		md, err := toml.Decode(string(data), m)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys %v", undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(m); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (mf *Manifest) validate() error {
	for i, t := range mf.Types {
		if t.Name == "" {
			return fmt.Errorf("type %d: missing name", i)
		}
	}
	for i, d := range mf.Directories {
		if d.Path == "" {
			return fmt.Errorf("directory %d: missing path", i)
		}
	}
	for i, o := range mf.Objects {
		if o.Path == "" {
			return fmt.Errorf("object %d: missing path", i)
		}
		if o.Type == "" {
			return fmt.Errorf("object %q: missing type", o.Path)
		}
	}
	return nil
}

// LogManifest logs the manifest in a human-friendly way.
func LogManifest(orig *Manifest) {
	if !log.IsLogging(log.Debug) {
		return
	}

	// Comments are not interesting.
	m := deepcopy.Copy(orig).(*Manifest)
	for i := range m.Types {
		m.Types[i].Comment = ""
	}
	for i := range m.Directories {
		m.Directories[i].Comment = ""
	}
	for i := range m.Objects {
		m.Objects[i].Comment = ""
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		log.Debugf("Failed to marshal manifest: %v", err)
		return
	}
	log.Debugf("Manifest:\n%s", out)
}
