package post

import (
	"context"
	"log/slog"
)

// Publisher pushes freshly inserted rows onto the change feed.
type Publisher interface {
	PublishCreated(ctx context.Context, row Row) error
}

type publishing struct {
	Repository
	pub Publisher
}

// WithPublisher announces every post repo creates. A failed publish is
// logged; the post already exists and Create still succeeds.
func WithPublisher(repo Repository, pub Publisher) Repository {
	if pub == nil {
		return repo
	}
	return &publishing{Repository: repo, pub: pub}
}

func (p *publishing) Create(ctx context.Context, in CreateInput) (Post, error) {
	created, err := p.Repository.Create(ctx, in)
	if err != nil {
		return Post{}, err
	}
	if err := p.pub.PublishCreated(ctx, created.Row()); err != nil {
		slog.Error("publish created post", "id", created.ID, "error", err)
	}
	return created, nil
}
