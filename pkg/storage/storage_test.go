package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

const sha = "3f2a9c1e4b5d6f708192a3b4c5d6e7f8091a2b3c"

func testEntries() map[string][]string {
	return map[string][]string{
		"core@" + sha:    {"util@[DEAD]old", "lodash@^4.17.21"},
		"util@[DEAD]old": {},
	}
}

func TestPartialPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"out/deps.json", "out/deps.partial.json"},
		{"deps", "deps.partial.json"},
		{"/tmp/a/b.data", "/tmp/a/b.partial.data"},
	}
	for _, tt := range tests {
		if got := PartialPath(tt.in); got != tt.want {
			t.Errorf("PartialPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(testEntries(), &buf); err != nil {
		t.Fatal(err)
	}
	want := "{\n" +
		"    \"core@" + sha + "\": [\n" +
		"        \"util@[DEAD]old\",\n" +
		"        \"lodash@^4.17.21\"\n" +
		"    ],\n" +
		"    \"util@[DEAD]old\": []\n" +
		"}"
	if buf.String() != want {
		t.Errorf("WriteJSON() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteJSONNilEntry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(map[string][]string{"a@x": nil}, &buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Errorf("nil entry encoded as null: %s", buf.String())
	}
}

func TestWriteArtifactCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "deps.json")

	if err := WriteArtifact(path, testEntries()); err != nil {
		t.Fatalf("WriteArtifact() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string][]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("artifact has %d entries, want 2", len(got))
	}

	files, _ := os.ReadDir(filepath.Dir(path))
	if len(files) != 1 {
		t.Errorf("directory holds %d files, want only the artifact", len(files))
	}
}

func TestWriteArtifactReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := WriteArtifact(path, testEntries()); err != nil {
		t.Fatal(err)
	}
	if err := WriteArtifact(path, map[string][]string{}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{}" {
		t.Errorf("artifact = %q, want {}", data)
	}
}

func TestReadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := WriteArtifact(path, testEntries()); err != nil {
		t.Fatal(err)
	}

	cache, err := ReadArtifact(path)
	if err != nil {
		t.Fatalf("ReadArtifact() error: %v", err)
	}
	got, ok := cache.Get("core@" + sha)
	if !ok || len(got) != 2 || got[0] != "util@[DEAD]old" {
		t.Errorf("Get(core) = %v, %v", got, ok)
	}
	if _, err := ReadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadArtifact(missing) should fail")
	}
}

func TestReadJSONInvalid(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`["not", "an", "object"]`)); err == nil {
		t.Error("ReadJSON(array) should fail")
	}
}

func TestFileSinkPartial(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(filepath.Join(dir, "deps.json"))

	cache := deps.NewCache()
	if err := cache.UnmarshalJSON([]byte(`{"a@x": []}`)); err != nil {
		t.Fatal(err)
	}
	snap := NewSnapshot("graasp", cache, deps.Stats{Nodes: 1}, true)
	if err := sink.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "deps.json")); !os.IsNotExist(err) {
		t.Error("partial snapshot must not write the artifact path")
	}
	if _, err := os.Stat(filepath.Join(dir, "deps.partial.json")); err != nil {
		t.Errorf("partial artifact missing: %v", err)
	}
}

func TestFileSinkLatest(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(filepath.Join(dir, "deps.json"))
	ctx := context.Background()

	if _, err := sink.Latest(ctx, "graasp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() before save = %v, want ErrNotFound", err)
	}

	snap := Snapshot{Org: "graasp", Entries: testEntries()}
	if err := sink.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, err := sink.Latest(ctx, "graasp")
	if err != nil {
		t.Fatal(err)
	}
	if got.Org != "graasp" || len(got.Entries) != 2 || got.Stats.Nodes != 2 {
		t.Errorf("Latest() = %+v", got)
	}
}

func TestNewSnapshot(t *testing.T) {
	cache := deps.NewCache()
	a := NewSnapshot("graasp", cache, deps.Stats{}, false)
	b := NewSnapshot("graasp", cache, deps.Stats{}, false)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("snapshot IDs %q and %q should be unique", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() || a.Entries == nil {
		t.Errorf("snapshot = %+v", a)
	}
}

func TestDocumentConversion(t *testing.T) {
	snap := Snapshot{
		ID:      "run-1",
		Org:     "graasp",
		Entries: map[string][]string{"b.io@x": nil, "a@y": {"b.io@x"}},
		Stats:   deps.Stats{Nodes: 2},
	}
	doc := toDocument(snap)
	if len(doc.Entries) != 2 || doc.Entries[0].Key != "a@y" || doc.Entries[1].Key != "b.io@x" {
		t.Errorf("document entries = %+v", doc.Entries)
	}
	if doc.Entries[1].Deps == nil {
		t.Error("nil dependencies should be stored as an empty array")
	}

	back := doc.snapshot()
	if back.ID != "run-1" || len(back.Entries) != 2 || back.Stats.Nodes != 2 {
		t.Errorf("snapshot() = %+v", back)
	}
}

type recordingSink struct {
	saved  int
	err    error
	closed bool
}

func (r *recordingSink) Save(context.Context, Snapshot) error {
	r.saved++
	return r.err
}

func (r *recordingSink) Close(context.Context) error {
	r.closed = true
	return nil
}

func TestMultiSink(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &recordingSink{}, &recordingSink{err: boom}, &recordingSink{}
	m := MultiSink{a, b, c}

	if err := m.Save(context.Background(), Snapshot{}); !errors.Is(err, boom) {
		t.Errorf("Save() = %v, want boom", err)
	}
	if a.saved != 1 || b.saved != 1 || c.saved != 0 {
		t.Errorf("saves = %d/%d/%d, want 1/1/0", a.saved, b.saved, c.saved)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("Close() should close every sink")
	}
}
