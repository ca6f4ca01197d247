package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

// artifactIndent matches the layout consumers of the artifact expect.
const artifactIndent = "    "

// PartialPath returns where a partial artifact for path is written:
// "out/deps.json" becomes "out/deps.partial.json".
func PartialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".partial" + orDefault(ext, ".json")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// WriteJSON encodes entries as the artifact JSON object and writes it to w.
// Keys are sorted; an entry without dependencies encodes as [].
func WriteJSON(entries map[string][]string, w io.Writer) error {
	data, err := encode(entries)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func encode(entries map[string][]string) ([]byte, error) {
	out := make(map[string][]string, len(entries))
	for k, v := range entries {
		if v == nil {
			v = []string{}
		}
		out[k] = v
	}
	data, err := json.MarshalIndent(out, "", artifactIndent)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// WriteArtifact writes entries to path, creating parent directories. The
// file is replaced atomically, so readers never observe a partial write.
func WriteArtifact(path string, entries map[string][]string) error {
	data, err := encode(entries)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes an artifact from r into a dependency cache.
func ReadJSON(r io.Reader) (*deps.Cache, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	cache := deps.NewCache()
	if err := cache.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return cache, nil
}

// ReadArtifact reads the artifact at path.
func ReadArtifact(path string) (*deps.Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// FileSink writes snapshots as artifact files. Complete snapshots go to
// Path; partial ones go to [PartialPath] so they never replace a good
// artifact.
type FileSink struct {
	Path string
}

// NewFileSink creates a FileSink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Target returns the file a snapshot is written to.
func (s *FileSink) Target(partial bool) string {
	if partial {
		return PartialPath(s.Path)
	}
	return s.Path
}

// Save writes the snapshot entries.
func (s *FileSink) Save(_ context.Context, snap Snapshot) error {
	return WriteArtifact(s.Target(snap.Partial), snap.Entries)
}

// Latest reads the artifact at Path. The file carries no run metadata, so
// only Org, CreatedAt (the modification time) and Entries are set.
func (s *FileSink) Latest(_ context.Context, org string) (Snapshot, error) {
	info, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		return Snapshot{}, err
	}
	cache, err := ReadArtifact(s.Path)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Org:       org,
		CreatedAt: info.ModTime().UTC(),
		Entries:   cache.Entries(),
		Stats:     deps.Stats{Nodes: cache.Len()},
	}, nil
}

// Close does nothing for file sinks.
func (s *FileSink) Close(context.Context) error { return nil }

var (
	_ Sink   = (*FileSink)(nil)
	_ Source = (*FileSink)(nil)
)
