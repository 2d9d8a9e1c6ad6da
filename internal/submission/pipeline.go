// Package submission drives one post draft through locate, upload and
// insert, and hands the confirmed post to the view.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"backend-catmap/internal/locate"
	"backend-catmap/internal/post"
	"backend-catmap/internal/shared/geo"

	"github.com/google/uuid"
)

var ErrSubmissionInFlight = errors.New("a submission is already in progress")

const DefaultLocateTimeout = 10 * time.Second

// Draft is what the compose surface collects. Location is set only when the
// user picked a point on the map.
type Draft struct {
	LocalID  string
	Image    *post.Image
	Comment  string
	Location *geo.Coordinate
}

func NewDraft() Draft {
	return Draft{LocalID: uuid.NewString()}
}

// Target receives confirmed posts.
type Target interface {
	ApplySubmitted(p post.Post) bool
	Load(ctx context.Context, repo post.Repository) error
}

type Options struct {
	Locator       locate.Locator
	LocateTimeout time.Duration
	MaxImageBytes int64
	Policy        RefreshPolicy
	Observer      func(Transition)
}

type Pipeline struct {
	repo   post.Repository
	target Target
	opts   Options

	mu    sync.Mutex
	state State
	draft *Draft
}

func New(repo post.Repository, target Target, opts Options) *Pipeline {
	if opts.Locator == nil {
		opts.Locator = locate.Denied{}
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = DefaultLocateTimeout
	}
	if opts.Policy == "" {
		opts.Policy = RefreshAppend
	}
	return &Pipeline{repo: repo, target: target, opts: opts}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Draft returns the draft of the last failed or current attempt.
func (p *Pipeline) Draft() (Draft, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft == nil {
		return Draft{}, false
	}
	return *p.draft, true
}

// DiscardDraft drops a preserved draft, e.g. when the compose surface is
// cancelled. It does nothing while a submission is running.
func (p *Pipeline) DiscardDraft() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		p.draft = nil
	}
}

// Submit runs d to completion. Pre-flight failures and
// ErrSubmissionInFlight leave the pipeline untouched.
func (p *Pipeline) Submit(ctx context.Context, d Draft) (post.Post, error) {
	d.Comment = post.CollapseNewlines(d.Comment)

	first := Uploading
	if d.Location == nil {
		first = LocatingPosition
	}
	if err := p.begin(d, first); err != nil {
		return post.Post{}, err
	}

	var coord geo.Coordinate
	if d.Location != nil {
		coord = *d.Location
	} else {
		var err error
		coord, err = p.locate(ctx)
		if err != nil {
			return post.Post{}, p.fail(err)
		}
		p.transition(Uploading, nil)
	}

	created, err := p.repo.Create(ctx, post.CreateInput{
		Lat:     coord.Lat,
		Lng:     coord.Lng,
		Comment: d.Comment,
		Image:   d.Image,
		AfterUpload: func(string) {
			p.transition(Persisting, nil)
		},
	})
	if err != nil {
		return post.Post{}, p.fail(err)
	}

	p.merge(ctx, created)

	p.mu.Lock()
	p.draft = nil
	p.mu.Unlock()
	p.transition(Completed, nil)
	p.transition(Idle, nil)
	return created, nil
}

func (p *Pipeline) begin(d Draft, first State) error {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if err := p.preflight(d); err != nil {
		p.mu.Unlock()
		return err
	}
	p.draft = &d
	from := p.state
	p.state = first
	p.mu.Unlock()

	p.notify(Transition{From: from, To: first})
	return nil
}

func (p *Pipeline) preflight(d Draft) error {
	if d.Image == nil || len(d.Image.Data) == 0 {
		return post.ErrMissingImage
	}
	if strings.TrimSpace(d.Comment) == "" {
		return post.ErrEmptyComment
	}
	if err := post.ValidatePayload(d.Image, d.Comment, p.opts.MaxImageBytes); err != nil {
		return err
	}
	if d.Location != nil {
		return post.ValidateCoordinate(d.Location.Lat, d.Location.Lng)
	}
	return nil
}

func (p *Pipeline) locate(ctx context.Context) (geo.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.LocateTimeout)
	defer cancel()

	c, err := p.opts.Locator.Locate(ctx)
	if err != nil {
		if !errors.Is(err, locate.ErrLocation) {
			if errors.Is(err, context.DeadlineExceeded) {
				err = errors.Join(locate.ErrLocationTimeout, err)
			} else {
				err = errors.Join(locate.ErrLocation, err)
			}
		}
		return geo.Coordinate{}, err
	}
	return c, nil
}

func (p *Pipeline) merge(ctx context.Context, created post.Post) {
	if p.opts.Policy == RefreshRefetch {
		if err := p.target.Load(ctx, p.repo); err != nil {
			slog.Warn("refetch after submit failed, merging locally", "id", created.ID, "error", err)
		}
	}
	// no-op when the refetched list already holds it
	p.target.ApplySubmitted(created)
}

func (p *Pipeline) fail(err error) error {
	p.transition(Failed, err)
	p.transition(Idle, nil)
	return err
}

func (p *Pipeline) transition(to State, err error) {
	p.mu.Lock()
	from := p.state
	p.state = to
	p.mu.Unlock()
	p.notify(Transition{From: from, To: to, Err: err})
}

func (p *Pipeline) notify(t Transition) {
	if p.opts.Observer != nil {
		p.opts.Observer(t)
	}
}
