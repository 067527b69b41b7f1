package strata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Azhovan/strata/value"
)

func dumpStore(t *testing.T) *Store {
	t.Helper()
	store, _, _, _ := newTestStore(
		map[string]string{
			"conf/base":    `{:port 5000 :http-port #conf/ref :port :tags [:a :b] :empty nil}`,
			"conf/default": `{:password "hunter2"}`,
		},
		map[string]string{"DATABASE_URL": "sql://dev.fake/foobar"},
		nil,
	)
	return store
}

func TestDumpEffective_Text(t *testing.T) {
	store := dumpStore(t)

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}

	want := strings.Join([]string{
		`database-url: "sql://dev.fake/foobar"`,
		`empty: nil`,
		`http-port: #conf/ref :port => 5000`,
		`password: "hunter2"`,
		`port: 5000`,
		`tags: [:a :b]`,
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("DumpEffective output mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestDumpEffective_TextWithSources(t *testing.T) {
	store := dumpStore(t)

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store, WithSources(), WithRedactKeys("password")); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}

	output := buf.String()
	for _, line := range []string{
		`database-url: "sql://dev.fake/foobar" (source: env:DATABASE_URL)`,
		`password: ***redacted*** (source: file:conf/default.edn)`,
		`port: 5000 (source: file:conf/base.edn)`,
	} {
		if !strings.Contains(output, line+"\n") {
			t.Errorf("output missing line %q\ngot:\n%s", line, output)
		}
	}
	if strings.Contains(output, "hunter2") {
		t.Error("redacted value leaked into output")
	}
}

func TestDumpEffective_SetKey(t *testing.T) {
	store := dumpStore(t)
	store.Set("port", value.Int(1))

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store, WithSources()); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}
	if !strings.Contains(buf.String(), "port: 1 (source: set)\n") {
		t.Errorf("expected set source, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "http-port: #conf/ref :port => 1") {
		t.Errorf("indirection should follow Set, got:\n%s", buf.String())
	}
}

func TestDumpEffective_UnresolvedRef(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{"conf/base": `{:a #conf/ref :missing}`}, nil, nil)

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}
	if got, want := buf.String(), "a: #conf/ref :missing => <nil>\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDumpEffective_JSON(t *testing.T) {
	store := dumpStore(t)

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store, AsJSON(), WithRedactKeys("password")); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	if result["port"] != float64(5000) {
		t.Errorf("port = %v, want 5000", result["port"])
	}
	if result["http-port"] != float64(5000) {
		t.Errorf("http-port = %v, want resolved 5000", result["http-port"])
	}
	if result["password"] != "***redacted***" {
		t.Errorf("password = %v, want redacted", result["password"])
	}
	if result["empty"] != nil {
		t.Errorf("empty = %v, want null", result["empty"])
	}
	tags, ok := result["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" {
		t.Errorf("tags = %v, want [a b]", result["tags"])
	}
	if !strings.Contains(buf.String(), "\n  \"") {
		t.Error("JSON should be indented with two spaces by default")
	}
}

func TestDumpEffective_JSONWithSources(t *testing.T) {
	store := dumpStore(t)

	var buf bytes.Buffer
	if err := DumpEffective(&buf, store, AsJSON(), WithSources(), WithIndent("")); err != nil {
		t.Fatalf("DumpEffective failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("WithIndent(\"\") should produce compact JSON, got:\n%s", buf.String())
	}

	var result map[string]struct {
		Value  any    `json:"value"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["database-url"].Source != "env:DATABASE_URL" {
		t.Errorf("database-url source = %q", result["database-url"].Source)
	}
	if result["database-url"].Value != "sql://dev.fake/foobar" {
		t.Errorf("database-url value = %v", result["database-url"].Value)
	}
}

// TestDumpSnapshot verifies that a snapshot renders its own values even
// after the store has changed.
func TestDumpSnapshot(t *testing.T) {
	store := dumpStore(t)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	st := store.current.Load()
	snap := Snapshot{Config: st.data, Sources: st.sources, Version: 1}

	store.Set("port", value.Int(6000))

	var buf bytes.Buffer
	if err := DumpSnapshot(&buf, store, snap, WithSources()); err != nil {
		t.Fatalf("DumpSnapshot failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "port: 5000 (source: file:conf/base.edn)\n") {
		t.Errorf("expected the snapshot's port, got:\n%s", out)
	}
	if !strings.Contains(out, "http-port: #conf/ref :port => 5000") {
		t.Errorf("expected the indirection to resolve within the snapshot, got:\n%s", out)
	}
	if strings.Contains(out, "6000") {
		t.Errorf("snapshot output should not see later writes, got:\n%s", out)
	}

	if err := DumpSnapshot(&buf, nil, snap); !errors.Is(err, ErrNilStore) {
		t.Errorf("expected ErrNilStore, got %v", err)
	}
}

func TestDumpEffective_NilStore(t *testing.T) {
	if err := DumpEffective(&bytes.Buffer{}, nil); !errors.Is(err, ErrNilStore) {
		t.Errorf("error = %v, want ErrNilStore", err)
	}
}

func TestDumpEffective_LoadError(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{"conf/base": `{`}, nil, nil)

	var parseErr *ParseError
	if err := DumpEffective(&bytes.Buffer{}, store); !errors.As(err, &parseErr) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestDumpEffective_WriteError(t *testing.T) {
	store := dumpStore(t)

	if err := DumpEffective(failingWriter{}, store); err == nil {
		t.Error("expected text write error")
	}
	if err := DumpEffective(failingWriter{}, store, AsJSON()); err == nil {
		t.Error("expected JSON write error")
	}
}
