package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

func update(t *testing.T, m crawlModel, msg tea.Msg) (crawlModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(crawlModel)
	if !ok {
		t.Fatalf("Update() returned %T", next)
	}
	return model, cmd
}

func TestCrawlModelCounts(t *testing.T) {
	m := newCrawlModel("graasp", func() {})
	m, _ = update(t, m, reposMsg{count: 12})
	m, _ = update(t, m, startMsg{key: "core@abc"})
	m, _ = update(t, m, startMsg{key: "sdk@def"})
	m, _ = update(t, m, completeMsg{key: "core@abc", deps: 3})
	m, _ = update(t, m, deadMsg{repo: "graasp/old", branch: "legacy"})
	m, _ = update(t, m, emptyMsg{repo: "graasp/empty"})

	if m.repos != 12 || m.started != 2 || m.completed != 1 || m.dead != 1 || m.empty != 1 {
		t.Errorf("model = %+v", m)
	}

	view := m.View()
	for _, want := range []string{"Crawling graasp", "12", "1/2", "Dead branches", "Empty repos", "core@abc (3)", "q to stop"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestCrawlModelRecentLimit(t *testing.T) {
	m := newCrawlModel("graasp", func() {})
	for i := range recentLimit + 4 {
		m, _ = update(t, m, completeMsg{key: fmt.Sprintf("repo-%d@abc", i)})
	}
	if len(m.recent) != recentLimit {
		t.Fatalf("len(recent) = %d, want %d", len(m.recent), recentLimit)
	}
	if last := m.recent[recentLimit-1]; last != fmt.Sprintf("repo-%d@abc (0)", recentLimit+3) {
		t.Errorf("last recent = %q", last)
	}
	if strings.Contains(m.View(), "repo-0@abc") {
		t.Error("View() should drop the oldest entries")
	}
}

func TestCrawlModelStop(t *testing.T) {
	calls := 0
	m := newCrawlModel("graasp", func() { calls++ })

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if calls != 1 {
		t.Errorf("cancel called %d times, want 1", calls)
	}
	if !m.stopping || !strings.Contains(m.View(), "Stopping") {
		t.Error("model should show that it is stopping")
	}
}

func TestCrawlModelDone(t *testing.T) {
	m := newCrawlModel("graasp", func() {})
	m, cmd := update(t, m, doneMsg{stats: deps.Stats{Nodes: 42}})
	if cmd == nil {
		t.Fatal("doneMsg should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("doneMsg should return tea.Quit")
	}
	if !strings.Contains(m.View(), "42 nodes") {
		t.Errorf("View() = %q", m.View())
	}

	m, _ = update(t, newCrawlModel("graasp", func() {}), doneMsg{err: errors.New("unauthorized")})
	if !strings.Contains(m.View(), "unauthorized") {
		t.Errorf("View() should show the error: %q", m.View())
	}
}

func TestCrawlModelTick(t *testing.T) {
	m := newCrawlModel("graasp", func() {})
	now := m.start.Add(3 * time.Second)
	m, cmd := update(t, m, tickMsg(now))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if !strings.Contains(m.View(), "3s") {
		t.Errorf("View() should show the elapsed time: %q", m.View())
	}
}

func TestTeaHooks(t *testing.T) {
	var got []tea.Msg
	h := teaHooks{send: func(msg tea.Msg) { got = append(got, msg) }}

	h.OnRepositories(t.Context(), "graasp", 3)
	h.OnResolveStart(t.Context(), "core@abc")
	h.OnResolveComplete(t.Context(), "core@abc", 2, time.Second)
	h.OnDeadBranch(t.Context(), "graasp/old", "legacy")
	h.OnEmptyRepository(t.Context(), "graasp/empty")

	want := []tea.Msg{
		reposMsg{3},
		startMsg{"core@abc"},
		completeMsg{"core@abc", 2},
		deadMsg{"graasp/old", "legacy"},
		emptyMsg{"graasp/empty"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}
