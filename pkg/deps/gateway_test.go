package deps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matzehuels/orgdeps/pkg/integrations"
)

// sha returns a deterministic 40-character commit hash.
func sha(n int) string { return fmt.Sprintf("%040x", n) }

// fakeGateway serves an in-memory organization. A branch without an entry in
// commits does not resolve (dead branch).
type fakeGateway struct {
	mu sync.Mutex

	repos     []integrations.Repository
	branches  map[string]string // repo → default branch
	commits   map[string]string // "repo@branch" → sha
	empty     map[string]bool   // repos without commits
	manifests map[string]string // "repo@sha" → package.json
	errs      map[string]error  // "repo@branch" → commit lookup error
	listErr   error
	delay     time.Duration

	branchCalls   map[string]int
	commitCalls   map[string]int
	manifestCalls map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		branches:      make(map[string]string),
		commits:       make(map[string]string),
		empty:         make(map[string]bool),
		manifests:     make(map[string]string),
		errs:          make(map[string]error),
		branchCalls:   make(map[string]int),
		commitCalls:   make(map[string]int),
		manifestCalls: make(map[string]int),
	}
}

// addRepo registers repo with its default branch at commit and manifest.
// An empty manifest means the file does not exist.
func (f *fakeGateway) addRepo(repo, branch, commit, manifest string) {
	f.repos = append(f.repos, integrations.Repository{FullName: repo, DefaultBranch: branch})
	f.branches[repo] = branch
	f.commits[repo+"@"+branch] = commit
	if manifest != "" {
		f.manifests[repo+"@"+commit] = manifest
	}
}

func (f *fakeGateway) ListRepositories(ctx context.Context, org string) ([]integrations.Repository, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.repos, nil
}

func (f *fakeGateway) DefaultBranch(ctx context.Context, repo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branchCalls[repo]++
	if f.empty[repo] {
		return "", integrations.ErrEmptyRepository
	}
	b, ok := f.branches[repo]
	if !ok {
		return "", integrations.ErrNotFound
	}
	return b, nil
}

func (f *fakeGateway) CommitHash(ctx context.Context, repo, ref string) (string, error) {
	f.sleep(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls[repo+"@"+ref]++
	if err := f.errs[repo+"@"+ref]; err != nil {
		return "", err
	}
	if f.empty[repo] {
		return "", integrations.ErrEmptyRepository
	}
	c, ok := f.commits[repo+"@"+ref]
	if !ok {
		return "", integrations.ErrDeadBranch
	}
	return c, nil
}

func (f *fakeGateway) FetchRawFile(ctx context.Context, repo, commit, path string) ([]byte, error) {
	f.sleep(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifestCalls[repo+"@"+commit]++
	m, ok := f.manifests[repo+"@"+commit]
	if !ok {
		return nil, integrations.ErrNotFound
	}
	return []byte(m), nil
}

func (f *fakeGateway) sleep(ctx context.Context) {
	if f.delay <= 0 {
		return
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
}

func (f *fakeGateway) manifestFetches(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manifestCalls[key]
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range []map[string]int{f.branchCalls, f.commitCalls, f.manifestCalls} {
		for _, v := range m {
			n += v
		}
	}
	return n
}

// pkg renders a package.json with the given dependencies in order.
func pkg(deps ...string) string {
	if len(deps)%2 != 0 {
		panic("pkg: odd number of arguments")
	}
	s := `{"name":"x","dependencies":{`
	for i := 0; i < len(deps); i += 2 {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%q:%q", deps[i], deps[i+1])
	}
	return s + "}}"
}
