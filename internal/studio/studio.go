// Package studio runs one composition session at a time: it validates the
// user's pick against a template, drives the engine, keeps the attempt log,
// and saves a project when an attempt succeeds.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/logging"
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/planner"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/timeline"
)

var (
	ErrBusy            = errors.New("a composition is already in progress")
	ErrUnknownTemplate = errors.New("unknown template")
)

// Composer runs one composition attempt. *compose.Engine implements it.
type Composer interface {
	Compose(ctx context.Context, clips []timeline.ClipDescriptor) <-chan compose.Result
}

// Saver persists a successful composition. *project.Service implements it.
type Saver interface {
	Save(ctx context.Context, outputRef string, tmpl media.Template, sel media.Selection) (*project.Project, error)
}

// TemplateLookup resolves a template id.
type TemplateLookup func(id int) (media.Template, bool)

type Config struct {
	Templates TemplateLookup // default media.FindTemplate
	MaxTotal  time.Duration  // longest accepted plan; default planner.DefaultMaxTotal, <0 disables
	Logger    *slog.Logger
}

// Snapshot is the session state seen by the UI.
type Snapshot struct {
	Result    compose.Result
	AttemptID string
	ProjectID string
}

type Studio struct {
	composer  Composer
	saver     Saver
	attempts  AttemptRepository
	templates TemplateLookup
	maxTotal  time.Duration
	logger    *slog.Logger

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	newID  func() string
	nowFn  func() time.Time

	mu      sync.Mutex
	state   Snapshot
	busy    bool
	cancel  context.CancelFunc // in-flight attempt
	subs    map[int]chan Snapshot
	nextSub int
}

func New(composer Composer, saver Saver, attempts AttemptRepository, cfg Config) *Studio {
	if cfg.Templates == nil {
		cfg.Templates = media.FindTemplate
	}
	if cfg.MaxTotal == 0 {
		cfg.MaxTotal = planner.DefaultMaxTotal
	}
	base, stop := context.WithCancel(context.Background())
	return &Studio{
		composer:  composer,
		saver:     saver,
		attempts:  attempts,
		templates: cfg.Templates,
		maxTotal:  cfg.MaxTotal,
		logger:    logging.WithComponent(logging.OrDiscard(cfg.Logger), "studio"),
		base:      base,
		stop:      stop,
		newID:     uuid.NewString,
		nowFn:     time.Now,
		state:     Snapshot{Result: compose.Idle{}},
		subs:      make(map[int]chan Snapshot),
	}
}

// Start validates the pick and launches a composition in the background.
// Precondition failures return an error and leave the session unchanged.
func (s *Studio) Start(ctx context.Context, templateID int, items []media.MediaItem) (*Attempt, error) {
	tmpl, ok := s.templates(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTemplate, templateID)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	sel := media.Selection(items).Clone()
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if err := planner.CheckTotal(tmpl, s.maxTotal); err != nil {
		return nil, err
	}
	assignments, err := planner.Plan(tmpl, sel)
	if err != nil {
		return nil, err
	}
	clips := timeline.Build(assignments)

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	now := s.nowFn()
	attempt := &Attempt{
		ID:         s.newID(),
		TemplateID: tmpl.ID,
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	runCtx, cancel := context.WithCancel(s.base)
	s.mu.Lock()
	s.cancel = cancel
	s.publishLocked(Snapshot{Result: compose.Idle{}, AttemptID: attempt.ID})
	s.mu.Unlock()

	logger := logging.WithAttemptID(s.logger, attempt.ID)
	logger.Info("composition requested",
		"template_id", tmpl.ID,
		"slots", tmpl.SlotCount(),
		"stills", sel.HasStills(),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, attempt.ID, tmpl, sel, clips, logger)
	}()

	return attempt, nil
}

func (s *Studio) run(ctx context.Context, attemptID string, tmpl media.Template, sel media.Selection, clips []timeline.ClipDescriptor, logger *slog.Logger) {
	// Bookkeeping writes must land even after the attempt is cancelled.
	dbCtx := context.WithoutCancel(ctx)
	lastPercent := -1

	for r := range s.composer.Compose(ctx, clips) {
		snap := Snapshot{Result: r, AttemptID: attemptID}

		switch v := r.(type) {
		case compose.Progress:
			if v.Percent != lastPercent {
				lastPercent = v.Percent
				if err := s.attempts.UpdateAttemptProgress(dbCtx, attemptID, v.Percent); err != nil {
					logger.Warn("failed to record progress", "error", err)
				}
			}

		case compose.Success:
			projectID := ""
			p, err := s.saver.Save(dbCtx, v.OutputRef, tmpl, sel)
			if err != nil {
				logger.Error("failed to save project", "error", err)
			} else {
				projectID = p.ID
				// The saved copy replaces the cache output.
				v.OutputRef = p.OutputRef
				snap.Result = v
			}
			snap.ProjectID = projectID
			if err := s.attempts.FinishAttempt(dbCtx, attemptID, StatusSucceeded, v.OutputRef, projectID, ""); err != nil {
				logger.Warn("failed to record attempt result", "error", err)
			}
			logger.Info("composition succeeded", "project_id", projectID)

		case compose.Failure:
			if err := s.attempts.FinishAttempt(dbCtx, attemptID, StatusFailed, "", "", v.Message); err != nil {
				logger.Warn("failed to record attempt result", "error", err)
			}
			logger.Warn("composition failed", "reason", v.Message)
		}

		s.mu.Lock()
		if compose.IsTerminal(r) {
			s.busy = false
			s.cancel = nil
		}
		s.publishLocked(snap)
		s.mu.Unlock()
	}
}

// State returns the latest session snapshot.
func (s *Studio) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether an attempt is in flight.
func (s *Studio) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Reset returns the session to Idle. It fails with ErrBusy while an attempt
// is in flight.
func (s *Studio) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.publishLocked(Snapshot{Result: compose.Idle{}})
	return nil
}

// Cancel stops the in-flight attempt, if any. The attempt still ends with a
// terminal Failure.
func (s *Studio) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Subscribe streams session snapshots, starting with the current one. A slow
// subscriber only sees the latest snapshot.
func (s *Studio) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- s.state
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Attempts lists recent attempts, newest first. Storage errors yield an
// empty list.
func (s *Studio) Attempts(ctx context.Context, limit int) []*Attempt {
	list, err := s.attempts.ListAttempts(ctx, limit)
	if err != nil {
		s.logger.Warn("failed to list attempts", "error", err)
		return []*Attempt{}
	}
	if list == nil {
		list = []*Attempt{}
	}
	return list
}

// Close cancels any in-flight attempt and waits for it to finish.
func (s *Studio) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Studio) publishLocked(snap Snapshot) {
	s.state = snap
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
