package post

import (
	"context"
	"sync"
	"time"

	"backend-catmap/internal/objectstore"

	"github.com/google/uuid"
)

// MemoryStore keeps posts in process memory, newest first. It is the
// local-only strategy: same contract as Store, nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	posts         []Post
	objects       objectstore.Store
	maxImageBytes int64
	now           func() time.Time
}

func NewMemoryStore(objects objectstore.Store, maxImageBytes int64) *MemoryStore {
	return &MemoryStore{objects: objects, maxImageBytes: maxImageBytes, now: time.Now}
}

func (s *MemoryStore) List(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list posts", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Post{}, s.posts...), nil
}

func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Post, error) {
	if err := ValidateInput(in, s.maxImageBytes); err != nil {
		return Post{}, err
	}

	imageURL, err := s.objects.Put(ctx, ObjectPath(in.Image.ContentType), in.Image.ContentType, in.Image.Data)
	if err != nil {
		return Post{}, backendError("upload image", err)
	}
	if in.AfterUpload != nil {
		in.AfterUpload(imageURL)
	}
	if err := ctx.Err(); err != nil {
		return Post{}, backendError("insert post", err)
	}

	createdAt := s.now().UTC()
	p := Post{
		ID:        uuid.NewString(),
		Lat:       in.Lat,
		Lng:       in.Lng,
		ImageURL:  imageURL,
		Comment:   trimComment(in.Comment),
		CreatedAt: &createdAt,
	}

	s.mu.Lock()
	s.posts = append([]Post{p}, s.posts...)
	s.mu.Unlock()
	return p, nil
}
