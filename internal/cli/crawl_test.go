package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/orgdeps/internal/config"
	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/storage"
)

const (
	coreSHA = "c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0"
	sdkSHA  = "5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d5d"
)

// fakeGitHub serves an organization "graasp" with two repositories: core
// depends on sdk through a github: specifier and on lodash from npm.
// Requests whose path matches fail are answered with status 401.
func fakeGitHub(t *testing.T, fail string) *httptest.Server {
	t.Helper()
	manifests := map[string]string{
		"/raw/graasp/core/" + coreSHA + "/package.json": `{"dependencies":{"graasp-sdk":"github:graasp/sdk","lodash":"^4.17.21"}}`,
		"/raw/graasp/sdk/" + sdkSHA + "/package.json":   `{"dependencies":{}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail != "" && r.URL.Path == fail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch path := r.URL.Path; {
		case path == "/orgs/graasp/repos":
			fmt.Fprint(w, `[
				{"name":"core","full_name":"graasp/core","default_branch":"main"},
				{"name":"sdk","full_name":"graasp/sdk","default_branch":"main"}
			]`)
		case path == "/repos/graasp/core/commits/main":
			json.NewEncoder(w).Encode(map[string]string{"sha": coreSHA})
		case path == "/repos/graasp/sdk/commits/main":
			json.NewEncoder(w).Encode(map[string]string{"sha": sdkSHA})
		case strings.HasPrefix(path, "/raw/"):
			body, ok := manifests[path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			io.WriteString(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func crawlConfig(t *testing.T, srv *httptest.Server) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Org = "graasp"
	cfg.OutPath = filepath.Join(t.TempDir(), "data", "deps.json")
	cfg.BaseURL = srv.URL
	cfg.RawURL = srv.URL + "/raw"
	cfg.RateLimit = 0
	cfg.NoCache = true
	return cfg
}

func TestRunCrawl(t *testing.T) {
	srv := fakeGitHub(t, "")
	cfg := crawlConfig(t, srv)
	c := testCLI(nil)

	var out bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(io.Discard, LogInfo))
	snap, err := c.runCrawl(ctx, &out, cfg, false)
	if err != nil {
		t.Fatalf("runCrawl() error: %v", err)
	}

	want := map[string][]string{
		"core@" + coreSHA: {"sdk@" + sdkSHA, "lodash@^4.17.21"},
		"sdk@" + sdkSHA:   {},
	}
	if !reflect.DeepEqual(snap.Entries, want) {
		t.Errorf("snapshot entries = %v, want %v", snap.Entries, want)
	}
	if snap.Partial || snap.ID == "" {
		t.Errorf("snapshot = %+v, want a complete snapshot with an ID", snap)
	}
	if snap.Stats.Repositories != 2 || snap.Stats.Nodes != 2 || snap.Stats.ManifestsFetched != 2 {
		t.Errorf("stats = %+v", snap.Stats)
	}

	cache, err := storage.ReadArtifact(cfg.OutPath)
	if err != nil {
		t.Fatalf("ReadArtifact() error: %v", err)
	}
	if got := cache.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("artifact = %v, want %v", got, want)
	}
	if !strings.Contains(out.String(), cfg.OutPath) {
		t.Errorf("output should name the artifact, got:\n%s", out.String())
	}
}

func TestRunCrawlFailure(t *testing.T) {
	srv := fakeGitHub(t, "/raw/graasp/sdk/"+sdkSHA+"/package.json")
	cfg := crawlConfig(t, srv)
	c := testCLI(nil)

	ctx := withLogger(context.Background(), newLogger(io.Discard, LogInfo))
	_, err := c.runCrawl(ctx, io.Discard, cfg, false)
	if err == nil {
		t.Fatal("runCrawl() should fail")
	}
	if code := orgerrors.GetCode(err); code != orgerrors.ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q (%v)", code, orgerrors.ErrCodeUnauthorized, err)
	}
	if _, err := os.Stat(cfg.OutPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("a failed crawl must not write the artifact")
	}
	if _, err := os.Stat(storage.PartialPath(cfg.OutPath)); !errors.Is(err, os.ErrNotExist) {
		t.Error("partial result written without PartialOnFailure")
	}
}

func TestRunCrawlPartial(t *testing.T) {
	srv := fakeGitHub(t, "/raw/graasp/sdk/"+sdkSHA+"/package.json")
	cfg := crawlConfig(t, srv)
	cfg.PartialOnFailure = true
	c := testCLI(nil)

	var out bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(io.Discard, LogInfo))
	if _, err := c.runCrawl(ctx, &out, cfg, false); err == nil {
		t.Fatal("runCrawl() should fail")
	}

	if _, err := os.Stat(cfg.OutPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("a failed crawl must not write the artifact")
	}
	partial := storage.PartialPath(cfg.OutPath)
	if _, err := storage.ReadArtifact(partial); err != nil {
		t.Fatalf("partial artifact: %v", err)
	}
	if !strings.Contains(out.String(), partial) {
		t.Errorf("output should name the partial artifact, got:\n%s", out.String())
	}
}

func TestCrawlError(t *testing.T) {
	cfg := config.Config{Org: "graasp", Timeout: 1}
	err := crawlError(fmt.Errorf("commit: %w", context.DeadlineExceeded), cfg)
	if orgerrors.GetCode(err) != orgerrors.ErrCodeTimeout {
		t.Errorf("code = %q, want %q", orgerrors.GetCode(err), orgerrors.ErrCodeTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("the deadline should stay in the chain")
	}

	plain := errors.New("boom")
	if got := crawlError(plain, cfg); got != plain {
		t.Errorf("crawlError() = %v, want the error unchanged", got)
	}
}
