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

package log

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if len(tw.lines) != len(expected) {
		t.Fatalf("Writer should have logged %d lines, got: %v, expected: %v", len(expected), tw.lines, expected)
	}
	for i, l := range tw.lines {
		if l != expected[i] {
			t.Fatalf("line %d doesn't match, got: %q, expected: %q", i, l, expected[i])
		}
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := BasicLogger{Level: Info, Emitter: &Writer{Next: &buf}}
	l.Debugf("hidden")
	l.Infof("shown %d", 1)
	l.Warningf("shown %d", 2)
	if got, want := buf.String(), "shown 1\nshown 2\n"; got != want {
		t.Errorf("output: got %q, wanted %q", got, want)
	}

	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug): got false after SetLevel(Debug)")
	}
}

func TestGoogleEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := GoogleEmitter{&Writer{Next: &buf}}
	ts := time.Date(2026, time.May, 4, 3, 2, 1, 5000, time.UTC)
	e.Emit(0, Warning, ts, "hello %s", "world")

	line := buf.String()
	if !strings.HasPrefix(line, "W0504 03:02:01.000005 ") {
		t.Errorf("header: got %q", line)
	}
	if !strings.Contains(line, "log_test.go:") {
		t.Errorf("caller missing from %q", line)
	}
	if !strings.HasSuffix(line, "] hello world\n") {
		t.Errorf("message: got %q", line)
	}
}

func TestMultiEmitter(t *testing.T) {
	var a, b bytes.Buffer
	m := MultiEmitter{&Writer{Next: &a}, &Writer{Next: &b}}
	m.Emit(0, Info, time.Now(), "both")
	if a.String() != "both\n" || b.String() != "both\n" {
		t.Errorf("MultiEmitter: got %q and %q, wanted both lines", a.String(), b.String())
	}
}

func TestLogrusEmitter(t *testing.T) {
	var buf bytes.Buffer
	lr := logrus.New()
	lr.SetOutput(&buf)
	lr.SetLevel(logrus.DebugLevel)
	lr.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	e := LogrusEmitter{Logger: lr}
	e.Emit(0, Warning, time.Now(), "directory %q", "Device")
	if got := buf.String(); !strings.Contains(got, "level=warning") || !strings.Contains(got, `directory \"Device\"`) {
		t.Errorf("logrus output: got %q", got)
	}
}

func TestRateLimitedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := &BasicLogger{Level: Debug, Emitter: &Writer{Next: &buf}}
	rl := RateLimitedLogger(base, time.Hour)
	for i := 0; i < 10; i++ {
		rl.Warningf("flood %d", i)
	}
	if got, want := buf.String(), "flood 0\n"; got != want {
		t.Errorf("rate limited output: got %q, wanted %q", got, want)
	}

	// The next message emitted reports the ones dropped before it.
	buf.Reset()
	rl.(*rateLimitedLogger).limit.SetLimit(rate.Inf)
	rl.Warningf("flood %d", 10)
	rl.Warningf("flood %d", 11)
	if got, want := buf.String(), "flood 10 (9 similar messages suppressed)\nflood 11\n"; got != want {
		t.Errorf("rate limited output: got %q, wanted %q", got, want)
	}
}

func TestCommandFileOpts(t *testing.T) {
	opts := CommandFileOpts{Command: "ls", Start: time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)}
	if got, want := opts.Build("/tmp/logs/"), "/tmp/logs/obdir.20260102-030405.000000.ls.txt"; got != want {
		t.Errorf("Build: got %q, wanted %q", got, want)
	}
	if got, want := opts.Build("/tmp/%COMMAND%.log"), "/tmp/ls.log"; got != want {
		t.Errorf("Build: got %q, wanted %q", got, want)
	}
}
