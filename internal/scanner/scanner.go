// Package scanner runs one pass of the bot: read the cursor, scan the newest
// comments, reply to at most one trigger, and advance the cursor.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/jankiebot/jankie/internal/bounded"
	"github.com/jankiebot/jankie/internal/forum"
	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/secrets"
	"github.com/jankiebot/jankie/internal/trigger"
)

// CommentLimit is how many recent comments a single pass requests.
const CommentLimit = 100

var (
	// ErrReadCursor marks a cursor read failure other than "not found".
	ErrReadCursor = errors.New("read cursor")
	// ErrPersistCursor marks a failed cursor write.
	ErrPersistCursor = errors.New("persist cursor")
)

// Forum is the subset of the forum client used by a pass.
type Forum interface {
	RecentComments(ctx context.Context, subreddit string, limit int) ([]forum.Comment, error)
	Reply(ctx context.Context, c forum.Comment, text string) error
}

// Recorder receives counters for each pass. A nil Recorder is allowed.
type Recorder interface {
	Invocation(result string)
	Inspected(n int)
	Eligible(n int)
	Reply(mode string)
	CursorWrite(mode string)
}

// Config holds per-deployment settings.
type Config struct {
	Subreddit string
	CursorKey string
	DryRun    bool
}

// Eligible is an inspected comment together with the phrase it matched.
type Eligible struct {
	Comment forum.Comment `json:"comment"`
	Phrase  string        `json:"phrase"`
}

// Result describes what a pass saw and did.
type Result struct {
	CursorBefore    string     `json:"cursor_before,omitempty"`
	CursorAfter     string     `json:"cursor_after,omitempty"`
	Inspected       int        `json:"inspected"`
	Eligible        []Eligible `json:"eligible"`
	Selected        *Eligible  `json:"selected,omitempty"`
	Reply           string     `json:"reply,omitempty"`
	DryRun          bool       `json:"dry_run"`
	CursorPersisted bool       `json:"cursor_persisted"`
}

// Scanner performs passes against a forum and a cursor store.
type Scanner struct {
	forum    Forum
	store    secrets.Provider
	table    *trigger.Table
	cfg      Config
	logger   logging.Logger
	exec     *bounded.Executor
	recorder Recorder
	seed     func(string) uint64
}

// New creates a Scanner. Calls run unbounded until WithExecutor is used.
func New(f Forum, store secrets.Provider, table *trigger.Table, cfg Config, logger logging.Logger) *Scanner {
	return &Scanner{
		forum:    f,
		store:    store,
		table:    table,
		cfg:      cfg,
		logger:   logger,
		recorder: nopRecorder{},
		seed:     trigger.Seed,
	}
}

// WithExecutor bounds every collaborator call with exec.
func (s *Scanner) WithExecutor(exec *bounded.Executor) *Scanner {
	s.exec = exec
	return s
}

// WithRecorder reports counters to r.
func (s *Scanner) WithRecorder(r Recorder) *Scanner {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
	return s
}

// WithSeed replaces the selection hash.
func (s *Scanner) WithSeed(seed func(string) uint64) *Scanner {
	s.seed = seed
	return s
}

// Run performs one pass using the configured mode.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	return s.run(ctx, s.cfg.DryRun)
}

// RunDry performs one pass in dry-run mode regardless of configuration.
func (s *Scanner) RunDry(ctx context.Context) (*Result, error) {
	return s.run(ctx, true)
}

func (s *Scanner) run(ctx context.Context, dryRun bool) (*Result, error) {
	res, err := s.pass(ctx, dryRun)
	if err != nil {
		s.recorder.Invocation("failure")
		s.logger.WithError(err).WithField("dry_run", dryRun).Error("Scan failed")
		return res, err
	}
	s.recorder.Invocation("success")
	return res, nil
}

func (s *Scanner) pass(ctx context.Context, dryRun bool) (*Result, error) {
	cursor, err := s.readCursor(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{CursorBefore: cursor, DryRun: dryRun, Eligible: []Eligible{}}

	comments, err := bounded.Call(ctx, s.exec, "list comments", func(ctx context.Context) ([]forum.Comment, error) {
		return s.forum.RecentComments(ctx, s.cfg.Subreddit, CommentLimit)
	})
	if err != nil {
		return res, fmt.Errorf("list comments in r/%s: %w", s.cfg.Subreddit, err)
	}

	candidate := cursor
	for _, c := range comments {
		if cursor != "" && c.ID <= cursor {
			s.logger.WithField("cursor", cursor).Debug("Reached processed comments")
			break
		}
		res.Inspected++
		if c.ID > candidate {
			candidate = c.ID
		}
		phrase, ok := s.table.Match(c.Body)
		if !ok {
			continue
		}
		s.logger.WithFields(logging.Fields{
			"comment_id": c.ID,
			"author":     c.Author,
			"phrase":     phrase,
		}).Info("Found eligible comment")
		res.Eligible = append(res.Eligible, Eligible{Comment: c, Phrase: phrase})
	}
	s.recorder.Inspected(res.Inspected)
	s.recorder.Eligible(len(res.Eligible))

	if len(res.Eligible) > 0 {
		if err := s.reply(ctx, res, candidate, dryRun); err != nil {
			return res, err
		}
	}

	if candidate == "" {
		return res, nil
	}
	res.CursorAfter = candidate
	if dryRun {
		s.logger.WithField("cursor", candidate).Info("DRY RUN: would have saved last comment ID")
		s.recorder.CursorWrite("dry_run")
		return res, nil
	}
	err = bounded.Do(ctx, s.exec, "save cursor", func(ctx context.Context) error {
		return s.store.Put(ctx, s.cfg.CursorKey, candidate)
	})
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrPersistCursor, err)
	}
	res.CursorPersisted = true
	s.recorder.CursorWrite("live")
	s.logger.WithField("cursor", candidate).Debug("Saved last comment ID")
	return res, nil
}

func (s *Scanner) readCursor(ctx context.Context) (string, error) {
	cursor, err := bounded.Call(ctx, s.exec, "read cursor", func(ctx context.Context) (string, error) {
		return s.store.Get(ctx, s.cfg.CursorKey)
	})
	switch {
	case errors.Is(err, secrets.ErrNotFound):
		s.logger.WithField("name", s.cfg.CursorKey).Warn("No last comment ID found, starting fresh")
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%w: %w", ErrReadCursor, err)
	}
	return cursor, nil
}

// reply selects one eligible comment and answers it, or only logs in dry-run.
func (s *Scanner) reply(ctx context.Context, res *Result, candidate string, dryRun bool) error {
	pick := res.Eligible[s.seed(candidate)%uint64(len(res.Eligible))]
	res.Selected = &pick

	text, err := s.table.ChooseResponse(pick.Phrase, s.seed(pick.Comment.ID))
	if err != nil {
		return err
	}
	res.Reply = text

	entry := s.logger.WithFields(logging.Fields{
		"comment_id": pick.Comment.ID,
		"author":     pick.Comment.Author,
		"phrase":     pick.Phrase,
	})
	if dryRun {
		entry.WithField("reply", text).Info("DRY RUN: would have replied")
		s.recorder.Reply("dry_run")
		return nil
	}

	entry.WithField("reply", text).Info("Responding to comment")
	err = bounded.Do(ctx, s.exec, "reply", func(ctx context.Context) error {
		return s.forum.Reply(ctx, pick.Comment, text)
	})
	if err != nil {
		return fmt.Errorf("reply to comment %s: %w", pick.Comment.ID, err)
	}
	s.recorder.Reply("live")
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Invocation(string)  {}
func (nopRecorder) Inspected(int)      {}
func (nopRecorder) Eligible(int)       {}
func (nopRecorder) Reply(string)       {}
func (nopRecorder) CursorWrite(string) {}
