package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/aecg-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// progressInterval is the minimum time between two plain progress lines.
var progressInterval = 500 * time.Millisecond

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// runWithProgress runs one index and shows its progress: the interactive
// view on a terminal, throttled status lines otherwise.
func runWithProgress(ctx context.Context, out, errOut io.Writer, req driving.IndexRequest, show bool) (*domain.CohortIndex, error) {
	if show && isTerminal(out) {
		return tui.Run(ctx, tui.NewPorts(indexService), req, tea.WithOutput(out))
	}

	pctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if show {
			printProgress(pctx, errOut, indexService.Status, progressInterval)
		}
	}()

	index, err := indexService.Index(ctx, req)
	stop()
	<-done
	return index, err
}

// printProgress writes a status line whenever progress changed, at most once
// per interval, until ctx is done.
func printProgress(ctx context.Context, w io.Writer, status func() domain.IndexStatus, every time.Duration) {
	limiter := rate.NewLimiter(rate.Every(every), 1)
	last := -1
	for limiter.Wait(ctx) == nil {
		st := status()
		if st.Total == 0 || st.Processed == last {
			continue
		}
		last = st.Processed
		fmt.Fprintf(w, "Indexed %d/%d files (%d failed)\n", st.Processed, st.Total, st.Failed)
	}
}
