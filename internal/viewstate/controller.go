// Package viewstate owns the post list and selection a map view renders.
package viewstate

import (
	"context"
	"errors"
	"sync"

	"backend-catmap/internal/post"
)

var ErrNoSelection = errors.New("no post selected")

// Anchor is the screen position a detail overlay is drawn next to.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Snapshot struct {
	Posts      []post.Post
	Selected   *post.Post
	Anchor     *Anchor
	IsLoading  bool
	FetchError error
}

// Controller reconciles fetched lists, submitted posts and realtime
// arrivals into one list with unique ids. Safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	posts     []post.Post
	ids       map[string]struct{}
	selected  *post.Post
	anchor    *Anchor
	loading   bool
	fetchErr  error
	listeners []func(Snapshot)

	// loads counts in-flight Load calls. While it is non-zero every post
	// prepended is also recorded in arrived so a fetched list that was
	// requested before it cannot erase it.
	loads   int
	arrived []post.Post
}

func NewController() *Controller {
	return &Controller{posts: []post.Post{}, ids: map[string]struct{}{}}
}

// OnChange registers fn to be called with a fresh snapshot after every
// mutation. Listeners run on the mutating goroutine, outside the lock.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Load replaces the list with repo's. Posts prepended while the fetch was in
// flight are kept in front of the fetched ones. On failure the previous list
// stays and the error is kept for display.
func (c *Controller) Load(ctx context.Context, repo post.Repository) error {
	var mark int
	c.update(func() bool {
		c.loads++
		mark = len(c.arrived)
		c.loading = true
		return true
	})

	posts, err := repo.List(ctx)
	if err != nil {
		c.update(func() bool {
			c.endLoadLocked()
			c.fetchErr = err
			return true
		})
		return err
	}
	c.update(func() bool {
		c.replaceLocked(posts, c.arrived[mark:])
		c.endLoadLocked()
		c.fetchErr = nil
		return true
	})
	return nil
}

// ApplyFetchedList replaces the list wholesale. Within posts the first
// occurrence of an id wins.
func (c *Controller) ApplyFetchedList(posts []post.Post) {
	c.update(func() bool {
		c.replaceLocked(posts, nil)
		c.loading = c.loads > 0
		c.fetchErr = nil
		return true
	})
}

// replaceLocked swaps in posts and then prepends each of arrived, oldest
// first, whose id the fetched list lacks.
func (c *Controller) replaceLocked(posts, arrived []post.Post) {
	c.posts = make([]post.Post, 0, len(posts)+len(arrived))
	c.ids = make(map[string]struct{}, len(posts)+len(arrived))
	for _, p := range posts {
		if _, dup := c.ids[p.ID]; dup {
			continue
		}
		c.ids[p.ID] = struct{}{}
		c.posts = append(c.posts, p)
	}
	var front []post.Post
	for i := len(arrived) - 1; i >= 0; i-- {
		p := arrived[i]
		if _, dup := c.ids[p.ID]; dup {
			continue
		}
		c.ids[p.ID] = struct{}{}
		front = append(front, p)
	}
	c.posts = append(front, c.posts...)
}

func (c *Controller) endLoadLocked() {
	c.loads--
	if c.loads == 0 {
		c.arrived = nil
		c.loading = false
	}
}

// ApplyRealtimeArrival prepends p unless its id is already listed.
func (c *Controller) ApplyRealtimeArrival(p post.Post) bool {
	return c.prepend(p)
}

// ApplySubmitted merges a post confirmed by the repository. It is idempotent
// with a realtime arrival of the same row.
func (c *Controller) ApplySubmitted(p post.Post) bool {
	return c.prepend(p)
}

func (c *Controller) prepend(p post.Post) bool {
	added := false
	c.update(func() bool {
		if _, dup := c.ids[p.ID]; dup {
			return false
		}
		c.ids[p.ID] = struct{}{}
		c.posts = append([]post.Post{p}, c.posts...)
		if c.loads > 0 {
			c.arrived = append(c.arrived, p)
		}
		added = true
		return true
	})
	return added
}

func (c *Controller) Select(p post.Post, anchor *Anchor) {
	c.update(func() bool {
		c.selected = &p
		c.anchor = copyAnchor(anchor)
		return true
	})
}

func (c *Controller) ClearSelection() {
	c.update(func() bool {
		if c.selected == nil && c.anchor == nil {
			return false
		}
		c.selected = nil
		c.anchor = nil
		return true
	})
}

// UpdateAnchor moves the overlay after the viewport changed.
func (c *Controller) UpdateAnchor(a Anchor) error {
	var err error
	c.update(func() bool {
		if c.selected == nil {
			err = ErrNoSelection
			return false
		}
		c.anchor = &a
		return true
	})
	return err
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Posts:      append([]post.Post{}, c.posts...),
		Anchor:     copyAnchor(c.anchor),
		IsLoading:  c.loading,
		FetchError: c.fetchErr,
	}
	if c.selected != nil {
		sel := *c.selected
		s.Selected = &sel
	}
	return s
}

// update runs mutate under the lock and notifies listeners when it reports
// a change.
func (c *Controller) update(mutate func() bool) {
	c.mu.Lock()
	if !mutate() {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func copyAnchor(a *Anchor) *Anchor {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
