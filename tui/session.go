package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/poiesic/wordfind/core"
	"github.com/poiesic/wordfind/search"
)

// ErrEngineRequired is returned when a session is created without an engine.
var ErrEngineRequired = errors.New("ranking engine required")

// defaultMaxRows is the number of suggestion rows rendered below the prompt.
const defaultMaxRows = 20

// resultsEvent carries a finished ranking update into the tcell event loop.
type resultsEvent struct {
	when    time.Time
	seq     uint64
	results []core.MatchResult
	elapsed time.Duration
}

func (e *resultsEvent) When() time.Time { return e.when }

// Session is one interactive picking session over a ranking engine.
type Session struct {
	engine *search.Engine
	screen tcell.Screen
	logger *slog.Logger

	maxRows  int
	query    []rune
	results  []core.MatchResult
	lastSeq  uint64
	elapsed  time.Duration
	selected int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRows caps the number of suggestion rows shown below the prompt.
// Default is 20.
func WithMaxRows(rows int) SessionOption {
	return func(s *Session) {
		if rows > 0 {
			s.maxRows = rows
		}
	}
}

// withScreen injects a screen, used by tests with tcell simulation screens.
func withScreen(screen tcell.Screen) SessionOption {
	return func(s *Session) {
		s.screen = screen
	}
}

// NewSession creates a session over the given engine.
func NewSession(engine *search.Engine, opts ...SessionOption) (*Session, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}

	s := &Session{
		engine:  engine,
		maxRows: defaultMaxRows,
		logger:  slog.Default().With("component", "tui"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("create terminal screen: %w", err)
		}
		s.screen = screen
	}
	return s, nil
}

// Run enters the interactive loop and blocks until the user accepts a
// suggestion (Enter), aborts (Esc or Ctrl-C), or ctx is cancelled.
// Returns the accepted candidate text and true when a suggestion was
// accepted. The terminal is always restored before returning.
func (s *Session) Run(ctx context.Context) (string, bool, error) {
	if err := s.screen.Init(); err != nil {
		return "", false, fmt.Errorf("init terminal screen: %w", err)
	}
	defer s.screen.Fini()

	stop := context.AfterFunc(ctx, func() {
		// Wake the poll loop so cancellation is observed
		if err := s.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
			s.logger.Warn("failed to wake event loop after cancellation", "err", err)
		}
	})
	defer stop()

	// Initial ranking for the empty query shows the whole list
	s.refresh(ctx)
	s.draw()

	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		switch ev := s.screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape:
				return "", false, nil

			case ev.Key() == tcell.KeyEnter:
				if s.selected < len(s.results) {
					return s.results[s.selected].Text, true, nil
				}
				return "", false, nil

			case ev.Key() == tcell.KeyBackspace || ev.Key() == tcell.KeyBackspace2:
				if len(s.query) > 0 {
					s.query = s.query[:len(s.query)-1]
					s.refresh(ctx)
				}

			case ev.Key() == tcell.KeyUp:
				if s.selected > 0 {
					s.selected--
					s.draw()
				}

			case ev.Key() == tcell.KeyDown:
				if s.selected+1 < s.visibleRows() {
					s.selected++
					s.draw()
				}

			case ev.Key() == tcell.KeyRune:
				s.query = append(s.query, ev.Rune())
				s.refresh(ctx)
			}

		case *resultsEvent:
			// Drop anything older than what is already on screen
			if ev.seq >= s.lastSeq {
				s.lastSeq = ev.seq
				s.results = ev.results
				s.elapsed = ev.elapsed
				if s.selected >= s.visibleRows() {
					s.selected = 0
				}
				s.draw()
			}

		case *tcell.EventResize:
			s.screen.Sync()
			s.draw()
		}
	}
}

// refresh schedules an asynchronous ranking update for the current query.
func (s *Session) refresh(ctx context.Context) {
	start := time.Now()
	err := s.engine.UpdateAsync(ctx, string(s.query), func(seq uint64, results []core.MatchResult) {
		ev := &resultsEvent{
			when:    time.Now(),
			seq:     seq,
			results: results,
			elapsed: time.Since(start),
		}
		if err := s.screen.PostEvent(ev); err != nil {
			// The ranking stays stale on screen; make that visible in logs
			s.logger.Warn("dropping ranking results, event queue full", "seq", seq, "err", err)
		}
	})
	if err != nil {
		s.logger.Warn("failed to schedule ranking update", "err", err)
	}
	s.draw()
}

func (s *Session) visibleRows() int {
	if len(s.results) > s.maxRows {
		return s.maxRows
	}
	return len(s.results)
}

func (s *Session) draw() {
	s.screen.Clear()

	width, _ := s.screen.Size()
	header := fmt.Sprintf("> %s", string(s.query))
	status := fmt.Sprintf("%s | %d matches | %.1fms",
		s.engine.Mode(), len(s.results), float64(s.elapsed.Microseconds())/1000.0)

	drawText(s.screen, 0, 0, tcell.StyleDefault.Bold(true), header)
	if pad := width - len(status); pad > len(header)+1 {
		drawText(s.screen, pad, 0, tcell.StyleDefault.Dim(true), status)
	}

	highlight := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	for row := 0; row < s.visibleRows(); row++ {
		result := s.results[row]
		style := tcell.StyleDefault
		if row == s.selected {
			style = style.Reverse(true)
		}

		matched := make(map[int]bool, len(result.Positions))
		for _, p := range result.Positions {
			matched[p] = true
		}

		col := 2
		for i, r := range []rune(result.Text) {
			cellStyle := style
			if matched[i] {
				cellStyle = highlight
				if row == s.selected {
					cellStyle = cellStyle.Reverse(true)
				}
			}
			s.screen.SetContent(col, row+1, r, nil, cellStyle)
			col++
			if col >= width {
				break
			}
		}
	}

	s.screen.ShowCursor(2+len(s.query), 0)
	s.screen.Show()
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
