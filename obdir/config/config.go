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


// Package config holds the configuration of the obdir tool.
package config

import (
	"fmt"
	"time"

	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/pool"
	"gvisor.dev/obdir/pkg/refs"
)

// Config holds configuration that is not part of a command's own flags.
// Fields with a `flag` tag are populated from the flag of the same name.
type Config struct {
	// LogFormat is the log format: "text", "json" or "logrus".
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// DebugLog is the path to log debug information to, if not empty. It
	// may contain %COMMAND% and %TIMESTAMP%.
	DebugLog string `flag:"debug-log"`

	// AlsoLogToStderr allows sending log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// Manifest is the path of a namespace manifest used to populate the
	// namespace before running the command.
	Manifest string `flag:"manifest"`

	// NonPagedQuota is the number of bytes of non-paged pool available to
	// directory queries. Zero means unlimited.
	NonPagedQuota int64 `flag:"nonpaged-quota"`

	// LockPages backs non-paged allocations with locked memory.
	LockPages bool `flag:"lock-pages"`

	// ReferenceLeak sets reference leak check mode.
	ReferenceLeak refs.LeakMode `flag:"ref-leak-mode"`

	// BufferSize is the initial size of query buffers.
	BufferSize uint `flag:"buffer-size"`

	// LockTimeout bounds how long to wait for the manifest lock.
	LockTimeout time.Duration `flag:"lock-timeout"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "logrus":
	default:
		return fmt.Errorf("invalid log format %q, must be text, json or logrus", c.LogFormat)
	}
	if c.NonPagedQuota < 0 {
		return fmt.Errorf("nonpaged-quota must be non-negative, got %d", c.NonPagedQuota)
	}
	if c.BufferSize > 1<<31 {
		return fmt.Errorf("buffer-size %d is too large", c.BufferSize)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock-timeout must be non-negative, got %v", c.LockTimeout)
	}
	return nil
}

// PoolConfig returns the pool configuration described by c.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		NonPagedQuota: c.NonPagedQuota,
		LockPages:     c.LockPages,
	}
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config: %s", c.ToFlags())
}
