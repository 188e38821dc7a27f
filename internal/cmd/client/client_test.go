package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

// run executes the CLI against dir and returns its output.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HYPERKV_FSYNC", "never")
	root := NewRoot(&Env{})
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--data-dir", dir, "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestInitPutGet(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "source:") || !strings.Contains(out, "local:") {
		t.Fatalf("expected keys in output, got: %s", out)
	}

	if _, err := run(t, dir, "put", "example/first", "hello"); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err = run(t, dir, "get", "example/first")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Fatalf("get printed %q", out)
	}

	if _, err := run(t, dir, "del", "example/first"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := run(t, dir, "get", "example/first"); !errors.Is(err, hyperkv.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	out, err = run(t, dir, "keys")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !strings.Contains(out, "authorized: true") {
		t.Fatalf("creator should be authorized, got: %s", out)
	}
}

func TestDataDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HYPERKV_FSYNC", "never")
	t.Setenv("HYPERKV_DATA_DIR", dir)
	root := NewRoot(&Env{})
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--log-level", "error", "init"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(buf.String(), dir) {
		t.Fatalf("expected store in %s, got: %s", dir, buf.String())
	}
	if _, err := run(t, dir, "put", "k", "v"); err != nil {
		t.Fatalf("put with --data-dir %s: %v", dir, err)
	}
}

func TestCommandsNeedInit(t *testing.T) {
	if _, err := run(t, t.TempDir(), "get", "a"); err == nil {
		t.Fatal("expected error without init")
	}
}

func TestFeedsFilter(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, kv := range [][2]string{{"user/1", "ann"}, {"group/1", "admins"}} {
		if _, err := run(t, dir, "put", kv[0], kv[1]); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	out, err := run(t, dir, "feeds", "--filter", `key.startsWith("user/")`)
	if err != nil {
		t.Fatalf("feeds: %v", err)
	}
	if !strings.Contains(out, "(source) (local)") {
		t.Fatalf("missing feed tags: %s", out)
	}
	if !strings.Contains(out, "key: user/1") || strings.Contains(out, "group/1") {
		t.Fatalf("filter not applied: %s", out)
	}

	if _, err := run(t, dir, "feeds", "--filter", "key +"); err == nil {
		t.Fatal("expected invalid filter error")
	}
}

func TestRunExample(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := hyperkv.Options{Fsync: pebblestore.FsyncModeNever}
	if err := RunExample(context.Background(), buf, t.TempDir(), opts); err != nil {
		t.Fatalf("example: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"===== db 1 =====",
		"===== db 2 =====",
		"feeds: 2",
		"key: example/fourth",
		"value: db2 was here",
		"inflate entry",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "(unauthorized)") {
		t.Fatalf("db2 should be authorized:\n%s", out)
	}
}
