// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"slices"
	"strconv"
	"strings"
	"testing"
)

func TestInterpRunner_CapturesOutputLines(t *testing.T) {
	t.Parallel()
	r := NewInterpRunner()

	res, err := r.Run(context.Background(), `echo one; echo two >&2; echo three`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	want := []string{"one", "two", "three"}
	if !slices.Equal(res.Lines, want) {
		t.Errorf("Lines = %q, want %q", res.Lines, want)
	}
}

func TestInterpRunner_NonzeroExitIsNotAnError(t *testing.T) {
	t.Parallel()
	r := NewInterpRunner()

	for _, code := range []int{1, 2, 4, 6, 127} {
		res, err := r.Run(context.Background(), "exit "+strconv.Itoa(code))
		if err != nil {
			t.Fatalf("Run(exit %d) error = %v", code, err)
		}
		if res.ExitCode != code {
			t.Errorf("Run(exit %d) ExitCode = %d", code, res.ExitCode)
		}
	}
}

func TestInterpRunner_PipelineExitCodeIsLastCommand(t *testing.T) {
	t.Parallel()
	r := NewInterpRunner()

	res, err := r.Run(context.Background(), `echo hi | { read line; echo "got-$line"; }`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 || !slices.Equal(res.Lines, []string{"got-hi"}) {
		t.Errorf("Run() = %+v, want exit 0 and [got-hi]", res)
	}

	res, err = r.Run(context.Background(), `echo hi | false`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
}

func TestInterpRunner_ParseError(t *testing.T) {
	t.Parallel()
	r := NewInterpRunner()

	if _, err := r.Run(context.Background(), `echo "unterminated`); err == nil {
		t.Fatal("Run() expected parse error")
	}
}

func TestInterpRunner_Echo(t *testing.T) {
	t.Parallel()
	var echo bytes.Buffer
	r := NewInterpRunner(WithEcho(&echo), WithDir(t.TempDir()))

	if _, err := r.Run(context.Background(), `echo visible`); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(echo.String(), "visible") {
		t.Errorf("echo writer got %q, want it to contain %q", echo.String(), "visible")
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	got, err := Join("docker", "exec", "db2_community", "bash", "-c", "chmod o+rx /init.sql")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	want := `docker exec db2_community bash -c 'chmod o+rx /init.sql'`
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}

	// A joined line must round-trip through the interpreter as the same argv.
	r := NewInterpRunner()
	line, err := Join("printf", "%s|", "it's", "two words")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	res, err := r.Run(context.Background(), line)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !slices.Equal(res.Lines, []string{"it's|two words|"}) {
		t.Errorf("Lines = %q", res.Lines)
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"\"healthy\"\n", []string{`"healthy"`}},
		{"a\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 2<<20)
	got := SplitLines("first\n" + long + "\nlast\n")
	if len(got) != 3 || got[1] != long || got[2] != "last" {
		t.Errorf("SplitLines dropped output after a %d byte line: got %d lines", len(long), len(got))
	}
}
