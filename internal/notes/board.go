package notes

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultAnalysisDelay is how long a note stays pending before analysis starts.
const DefaultAnalysisDelay = 2 * time.Second

var ErrNoteNotFound = errors.New("note not found")

// Board holds a user's priority notes and runs one analysis task per
// pending note. Deleting a note cancels its task; a result that arrives
// for a note that is no longer on the board is dropped.
type Board struct {
	mu         sync.Mutex
	notes      []PriorityNote
	tasks      map[string]context.CancelFunc
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	analyzer   Analyzer
	delay      time.Duration
	onResolved func(PriorityNote)
	now        func() time.Time
	logger     *zap.Logger
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithDelay sets how long notes wait before being analyzed.
func WithDelay(d time.Duration) BoardOption {
	return func(b *Board) { b.delay = d }
}

// OnResolved registers a callback run after a note is approved or declined.
// It is called without the board's lock held.
func OnResolved(fn func(PriorityNote)) BoardOption {
	return func(b *Board) { b.onResolved = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

func WithLogger(l *zap.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

func NewBoard(analyzer Analyzer, opts ...BoardOption) *Board {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		tasks:    make(map[string]context.CancelFunc),
		ctx:      ctx,
		cancel:   cancel,
		analyzer: analyzer,
		delay:    DefaultAnalysisDelay,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load replaces the board's notes with persisted ones and resumes
// analysis for those still pending.
func (b *Board) Load(notes []PriorityNote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, cancel := range b.tasks {
		cancel()
		delete(b.tasks, id)
	}
	b.notes = append([]PriorityNote(nil), notes...)
	for _, n := range b.notes {
		if n.Status == StatusPending {
			b.start(n)
		}
	}
}

// Add creates a pending note and schedules its analysis.
func (b *Board) Add(text string, durationDays int) PriorityNote {
	n := New(text, durationDays, b.now())

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(b.notes, n)
	b.start(n)
	return n
}

// Delete removes a note and cancels its analysis if still running.
func (b *Board) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.index(id)
	if idx < 0 {
		return ErrNoteNotFound
	}
	if cancel, ok := b.tasks[id]; ok {
		cancel()
		delete(b.tasks, id)
	}
	b.notes = append(b.notes[:idx:idx], b.notes[idx+1:]...)
	return nil
}

// Prune drops expired notes and returns how many were removed.
func (b *Board) Prune() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	kept := b.notes[:0:0]
	for _, n := range b.notes {
		if n.Expired(now) {
			if cancel, ok := b.tasks[n.ID]; ok {
				cancel()
				delete(b.tasks, n.ID)
			}
			continue
		}
		kept = append(kept, n)
	}
	removed := len(b.notes) - len(kept)
	b.notes = kept
	return removed
}

// List returns a copy of all notes in creation order.
func (b *Board) List() []PriorityNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PriorityNote(nil), b.notes...)
}

// Get returns the note with the given id.
func (b *Board) Get(id string) (PriorityNote, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx := b.index(id); idx >= 0 {
		return b.notes[idx], true
	}
	return PriorityNote{}, false
}

// Approved returns the notes that can currently be applied.
func (b *Board) Approved() []PriorityNote {
	return Actionable(b.List(), b.now())
}

// Wait blocks until every running analysis has finished.
func (b *Board) Wait() {
	b.wg.Wait()
}

// Close cancels all pending analyses and waits for them to stop.
func (b *Board) Close() {
	b.cancel()
	b.wg.Wait()
}

// start must be called with b.mu held.
func (b *Board) start(n PriorityNote) {
	ctx, cancel := context.WithCancel(b.ctx)
	b.tasks[n.ID] = cancel
	b.wg.Add(1)
	go b.analyze(ctx, n)
}

func (b *Board) analyze(ctx context.Context, n PriorityNote) {
	defer b.wg.Done()

	if b.delay > 0 {
		timer := time.NewTimer(b.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	res, err := b.analyzer.Analyze(ctx, n.Text)
	if ctx.Err() != nil {
		b.logger.Debug("note analysis cancelled", zap.String("note_id", n.ID))
		return
	}

	b.mu.Lock()
	idx := b.index(n.ID)
	if idx < 0 {
		b.mu.Unlock()
		b.logger.Debug("dropping analysis for deleted note", zap.String("note_id", n.ID))
		return
	}
	delete(b.tasks, n.ID)

	note := &b.notes[idx]
	if err != nil {
		b.logger.Warn("note analysis failed", zap.String("note_id", n.ID), zap.Error(err))
		note.Status = StatusDeclined
		note.Reason = "could not analyze the note"
	} else {
		note.Status = res.Status
		note.Logic = res.Logic
		note.Reason = res.Reason
		if note.Status == StatusApproved && note.Logic == nil {
			note.Status = StatusDeclined
		}
	}
	resolved := *note
	b.mu.Unlock()

	b.logger.Info("note analyzed",
		zap.String("note_id", resolved.ID),
		zap.String("status", string(resolved.Status)),
		zap.String("agent", res.Meta.AgentName),
		zap.Int("tokens", res.Meta.Usage.TotalTokens),
	)
	if b.onResolved != nil {
		b.onResolved(resolved)
	}
}

func (b *Board) index(id string) int {
	for i, n := range b.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
