// CLASSIFICATION: COMMUNITY
// Filename: logger_test.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, "")
	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("unexpected low level output: %q", out)
	}
	if !strings.Contains(out, "WARN shown 3") || !strings.Contains(out, "ERROR shown 4") {
		t.Fatalf("missing output: %q", out)
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo, "")
	l.Debugf("first")
	l.SetLevel(LevelDebug)
	l.Debugf("second")
	if strings.Contains(buf.String(), "first") || !strings.Contains(buf.String(), "second") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if l.Level() != LevelDebug {
		t.Fatalf("level = %v", l.Level())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"error": LevelError, "WARN": LevelWarn, "": LevelInfo, "debug": LevelDebug}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
