package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/aecg-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

const (
	// DefaultPollInterval is how often the indexer status is read.
	DefaultPollInterval = 100 * time.Millisecond

	minBarWidth = 10
	maxBarWidth = 80
)

// App is the progress view of one index run following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// req is the run being shown.
	req driving.IndexRequest

	// ctx is cancelled when the user cancels or the run returns.
	ctx    context.Context
	cancel context.CancelFunc

	styles *styles.Styles
	keys   *keymap.KeyMap
	bar    progress.Model

	pollEvery time.Duration
	phase     messages.Phase
	status    domain.IndexStatus
	lastPoll  time.Time
	details   bool

	index *domain.CohortIndex
	err   error
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a progress view for the given run.
func NewApp(ports *Ports, req driving.IndexRequest) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	theme := s.Theme()
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		ports:  ports,
		req:    req,
		ctx:    ctx,
		cancel: cancel,
		styles: s,
		keys:   keymap.DefaultKeyMap(),
		bar: progress.New(
			progress.WithGradient(string(theme.BarStart), string(theme.BarEnd)),
			progress.WithWidth(40),
		),
		pollEvery: DefaultPollInterval,
		phase:     messages.PhaseStarting,
	}, nil
}

// WithContext derives the run context from ctx.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// WithPollInterval sets how often the status is read.
func (a *App) WithPollInterval(d time.Duration) *App {
	if d > 0 {
		a.pollEvery = d
	}
	return a
}

// Init implements tea.Model.
// It starts the run and the status poller.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.startIndex(), a.poll())
}

func (a *App) startIndex() tea.Cmd {
	ctx, index, req := a.ctx, a.ports.Index, a.req
	return func() tea.Msg {
		idx, err := index.Index(ctx, req)
		return messages.IndexCompleted{Index: idx, Err: err}
	}
}

func (a *App) poll() tea.Cmd {
	index := a.ports.Index
	return tea.Tick(a.pollEvery, func(t time.Time) tea.Msg {
		return messages.StatusPolled{Status: index.Status(), At: t}
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.bar.Width = min(max(msg.Width-24, minBarWidth), maxBarWidth)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg.String())

	case messages.CancelRequested:
		return a.handleKey(a.keys.Cancel.Keys()[0])

	case messages.StatusPolled:
		a.status = msg.Status
		a.lastPoll = msg.At
		if a.phase == messages.PhaseStarting && msg.Status.Total > 0 {
			a.phase = messages.PhaseIndexing
		}
		if a.phase == messages.PhaseDone {
			return a, nil
		}
		return a, a.poll()

	case messages.IndexCompleted:
		a.phase = messages.PhaseDone
		a.index = msg.Index
		a.err = msg.Err
		a.cancel()
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(key string) (tea.Model, tea.Cmd) {
	switch {
	case keymap.Matches(key, a.keys.Cancel):
		if a.phase == messages.PhaseDone {
			return a, tea.Quit
		}
		// The run stops between files and returns through IndexCompleted.
		a.phase = messages.PhaseCancelling
		a.cancel()
	case keymap.Matches(key, a.keys.Details):
		a.details = !a.details
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Indexing " + a.req.Dir))
	b.WriteString("\n\n")

	processed, total, failed := a.counts()
	b.WriteString(a.bar.ViewAs(a.Percent()))
	b.WriteString(a.styles.Counter.Render(fmt.Sprintf("  %d/%d", processed, total)))
	if failed > 0 {
		b.WriteString(a.styles.Partial.Render(fmt.Sprintf("  %d failed", failed)))
	}
	b.WriteString("\n")

	if a.phase != messages.PhaseDone && a.status.Current != "" {
		b.WriteString(a.styles.Muted.Render(a.status.Current))
		b.WriteString("\n")
	}

	if a.details {
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf("run %s  %s  elapsed %s",
			a.status.RunID, a.phase, a.elapsed().Round(time.Second))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.footer())
	b.WriteString("\n")

	return a.styles.Box.Render(b.String())
}

func (a *App) footer() string {
	switch a.phase {
	case messages.PhaseCancelling:
		return a.styles.Partial.Render("Cancelling after the current file...")
	case messages.PhaseDone:
		return a.outcome()
	}

	parts := make([]string, 0, len(a.keys.ShortHelp()))
	for _, k := range a.keys.ShortHelp() {
		parts = append(parts, k.Help().Key+" "+k.Help().Desc)
	}
	return a.styles.Muted.Render(strings.Join(parts, " • "))
}

func (a *App) outcome() string {
	processed, total, failed := a.counts()
	cancelled := errors.Is(a.err, context.Canceled) ||
		(a.index != nil && a.index.Run.Status == domain.RunCancelled)
	style := a.styles.Outcome(a.err != nil && !cancelled, cancelled)
	switch {
	case cancelled && a.index != nil:
		return style.Render(fmt.Sprintf("Cancelled after %d of %d files", processed, total))
	case cancelled:
		return style.Render("Cancelled")
	case a.err != nil:
		return style.Render("Index failed: " + a.err.Error())
	}
	return style.Render(fmt.Sprintf("Indexed %d files, %d failed", processed, failed))
}

func (a *App) counts() (processed, total, failed int) {
	if a.index != nil {
		return a.index.Run.Processed, a.index.Run.Total, a.index.Run.Failed
	}
	return a.status.Processed, a.status.Total, a.status.Failed
}

func (a *App) elapsed() time.Duration {
	if a.status.StartedAt.IsZero() || a.lastPoll.IsZero() {
		return 0
	}
	return a.lastPoll.Sub(a.status.StartedAt)
}

// Percent returns the fraction of files processed.
func (a *App) Percent() float64 {
	processed, total, _ := a.counts()
	if total == 0 {
		if a.phase == messages.PhaseDone {
			return 1
		}
		return 0
	}
	return float64(processed) / float64(total)
}

// Phase returns where the run is.
func (a *App) Phase() messages.Phase {
	return a.phase
}

// Result returns the outcome of the run once it has returned.
func (a *App) Result() (*domain.CohortIndex, error) {
	return a.index, a.err
}

// Run shows the progress view until the index run returns.
// Cancelling ctx or pressing the cancel key stops the run between files.
func Run(ctx context.Context, ports *Ports, req driving.IndexRequest, opts ...tea.ProgramOption) (*domain.CohortIndex, error) {
	app, err := NewApp(ports, req)
	if err != nil {
		return nil, err
	}
	app.WithContext(ctx)
	defer app.cancel()

	p := tea.NewProgram(app, opts...)
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return app.Result()
}
