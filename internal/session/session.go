// Package session ties the view state, the submission pipeline and the
// realtime feed together for one open map view.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"backend-catmap/internal/feed"
	"backend-catmap/internal/post"
	"backend-catmap/internal/submission"
	"backend-catmap/internal/viewstate"
)

// View is everything a surface needs to render.
type View struct {
	viewstate.Snapshot
	IsSubmitting      bool
	IsLocationLoading bool
	ComposeOpen       bool
}

type Session struct {
	repo     post.Repository
	feed     feed.Feed
	ctrl     *viewstate.Controller
	pipeline *submission.Pipeline

	mu          sync.Mutex
	sub         feed.Subscription
	opening     bool
	composeOpen bool
	submitting  bool
	locating    bool
}

func New(repo post.Repository, f feed.Feed, opts submission.Options) *Session {
	if f == nil {
		f = feed.None{}
	}
	s := &Session{repo: repo, feed: f, ctrl: viewstate.NewController()}

	observer := opts.Observer
	opts.Observer = func(t submission.Transition) {
		s.mu.Lock()
		s.submitting = t.To != submission.Idle
		s.locating = t.To == submission.LocatingPosition
		s.mu.Unlock()
		if observer != nil {
			observer(t)
		}
	}
	s.pipeline = submission.New(repo, s.ctrl, opts)
	return s
}

func (s *Session) Controller() *viewstate.Controller {
	return s.ctrl
}

// Open subscribes to the feed and loads the list. Arrivals racing the load
// are kept and deduplicated by the controller. A failed load is reported through
// View().FetchError and does not fail Open. Concurrent calls share one
// subscription.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.sub != nil || s.opening {
		s.mu.Unlock()
		return nil
	}
	s.opening = true
	s.mu.Unlock()

	sub, err := s.feed.Subscribe(ctx, func(p post.Post) {
		s.ctrl.ApplyRealtimeArrival(p)
	})

	s.mu.Lock()
	s.opening = false
	if err == nil {
		s.sub = sub
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	if err := s.ctrl.Load(ctx, s.repo); err != nil {
		slog.Warn("initial post load failed", "error", err)
	}
	return nil
}

// Close releases the feed subscription. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}

// Refresh reloads the list from the repository.
func (s *Session) Refresh(ctx context.Context) error {
	return s.ctrl.Load(ctx, s.repo)
}

// OpenCompose shows the compose surface, restoring a draft kept from a
// failed attempt.
func (s *Session) OpenCompose() submission.Draft {
	s.mu.Lock()
	s.composeOpen = true
	s.mu.Unlock()

	if d, ok := s.pipeline.Draft(); ok {
		return d
	}
	return submission.NewDraft()
}

// CloseCompose hides the compose surface. An in-flight submission keeps
// running and its post is still merged.
func (s *Session) CloseCompose() {
	s.mu.Lock()
	s.composeOpen = false
	s.mu.Unlock()
	s.pipeline.DiscardDraft()
}

// Submit detaches from ctx cancellation so closing the surface cannot
// abort the upload or insert.
func (s *Session) Submit(ctx context.Context, d submission.Draft) (post.Post, error) {
	created, err := s.pipeline.Submit(context.WithoutCancel(ctx), d)
	if err != nil {
		return post.Post{}, err
	}
	s.mu.Lock()
	s.composeOpen = false
	s.mu.Unlock()
	return created, nil
}

func (s *Session) Select(p post.Post, anchor *viewstate.Anchor) {
	s.ctrl.Select(p, anchor)
}

func (s *Session) ClearSelection() {
	s.ctrl.ClearSelection()
}

func (s *Session) View() View {
	snap := s.ctrl.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Snapshot:          snap,
		IsSubmitting:      s.submitting,
		IsLocationLoading: s.locating,
		ComposeOpen:       s.composeOpen,
	}
}
