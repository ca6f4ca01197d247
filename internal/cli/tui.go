package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/orgdeps/pkg/deps"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

// recentLimit is the number of recently resolved nodes the view lists.
const recentLimit = 6

var (
	tuiLabelStyle = lipgloss.NewStyle().Foreground(colorGray)
	tuiKeyStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	tuiDoneStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	tuiErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Messages
// =============================================================================

type (
	reposMsg    struct{ count int }
	startMsg    struct{ key string }
	completeMsg struct {
		key  string
		deps int
	}
	deadMsg struct{ repo, branch string }
	emptyMsg struct{ repo string }
	doneMsg  struct {
		stats deps.Stats
		err   error
	}
	tickMsg time.Time
)

// teaHooks forwards crawl events to a running bubbletea program.
type teaHooks struct {
	send func(tea.Msg)
}

func (h teaHooks) OnRepositories(_ context.Context, _ string, count int) {
	h.send(reposMsg{count})
}

func (h teaHooks) OnResolveStart(_ context.Context, key string) {
	h.send(startMsg{key})
}

func (h teaHooks) OnResolveComplete(_ context.Context, key string, n int, _ time.Duration) {
	h.send(completeMsg{key, n})
}

func (h teaHooks) OnDeadBranch(_ context.Context, repo, branch string) {
	h.send(deadMsg{repo, branch})
}

func (h teaHooks) OnEmptyRepository(_ context.Context, repo string) {
	h.send(emptyMsg{repo})
}

var _ observability.CrawlHooks = teaHooks{}

// =============================================================================
// crawlModel - live crawl progress
// =============================================================================

// crawlModel renders the progress of a running crawl.
type crawlModel struct {
	org    string
	cancel context.CancelFunc
	start  time.Time
	now    time.Time

	repos     int
	started   int
	completed int
	dead      int
	empty     int
	recent    []string

	done     bool
	stopping bool
	stats    deps.Stats
	err      error
}

func newCrawlModel(org string, cancel context.CancelFunc) crawlModel {
	now := time.Now()
	return crawlModel{org: org, cancel: cancel, start: now, now: now}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m crawlModel) Init() tea.Cmd {
	return tick()
}

func (m crawlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The crawl goroutine reports back with doneMsg once cancelled.
			if !m.stopping {
				m.stopping = true
				m.cancel()
			}
		}
	case reposMsg:
		m.repos = msg.count
	case startMsg:
		m.started++
	case completeMsg:
		m.completed++
		m.recent = append(m.recent, fmt.Sprintf("%s (%d)", msg.key, msg.deps))
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
	case deadMsg:
		m.dead++
	case emptyMsg:
		m.empty++
	case doneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, tea.Quit
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	}
	return m, nil
}

func (m crawlModel) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Crawling " + m.org))
	b.WriteString("\n\n")

	row := func(label string, value any) {
		b.WriteString("  " + tuiLabelStyle.Width(14).Render(label) + " " + styleNumber.Render(fmt.Sprint(value)) + "\n")
	}
	row("Repositories", m.repos)
	row("Resolved", fmt.Sprintf("%d/%d", m.completed, m.started))
	if m.dead > 0 {
		row("Dead branches", m.dead)
	}
	if m.empty > 0 {
		row("Empty repos", m.empty)
	}
	row("Elapsed", m.now.Sub(m.start).Round(time.Second))

	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, key := range m.recent {
			b.WriteString("  " + styleDim.Render(iconArrow) + " " + tuiKeyStyle.Render(key) + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.done && m.err != nil:
		b.WriteString(tuiErrorStyle.Render(iconError+" "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString(tuiDoneStyle.Render(fmt.Sprintf("%s %d nodes", iconSuccess, m.stats.Nodes)) + "\n")
	case m.stopping:
		b.WriteString(styleWarning.Render("Stopping...") + "\n")
	default:
		b.WriteString(styleDim.Render("q to stop") + "\n")
	}
	return b.String()
}

// runWithProgress runs crawl under a live progress view written to w. The
// crawl receives hooks that feed the view; pressing q cancels it.
func runWithProgress(ctx context.Context, w io.Writer, org string, crawl func(context.Context, observability.CrawlHooks) (deps.Stats, error)) (deps.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newCrawlModel(org, cancel), tea.WithOutput(w), tea.WithContext(ctx))

	type result struct {
		stats deps.Stats
		err   error
	}
	resultc := make(chan result, 1)
	go func() {
		stats, err := crawl(ctx, teaHooks{send: p.Send})
		resultc <- result{stats, err}
		p.Send(doneMsg{stats, err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		// The view failed; let the crawl finish without it.
		loggerFromContext(ctx).Warnf("Progress view unavailable: %v", err)
	}
	r := <-resultc
	return r.stats, r.err
}
