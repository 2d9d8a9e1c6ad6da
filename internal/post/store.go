package post

import (
	"context"
	"log/slog"

	"backend-catmap/internal/db"
	"backend-catmap/internal/objectstore"
)

const columns = `id, lat, lng, image_url, comment, created_at`

// Store persists posts in Postgres and their images in object storage.
type Store struct {
	db            db.Querier
	objects       objectstore.Store
	maxImageBytes int64
}

func NewStore(q db.Querier, objects objectstore.Store, maxImageBytes int64) *Store {
	return &Store{db: q, objects: objects, maxImageBytes: maxImageBytes}
}

func (s *Store) List(ctx context.Context) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+`
		FROM cat_posts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, unavailable("list posts", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Lat, &r.Lng, &r.ImageURL, &r.Comment, &r.CreatedAt); err != nil {
			return nil, unavailable("list posts", err)
		}
		posts = append(posts, FromRow(r))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list posts", err)
	}
	return posts, nil
}

func (s *Store) Create(ctx context.Context, in CreateInput) (Post, error) {
	if err := ValidateInput(in, s.maxImageBytes); err != nil {
		return Post{}, err
	}

	path := ObjectPath(in.Image.ContentType)
	imageURL, err := s.objects.Put(ctx, path, in.Image.ContentType, in.Image.Data)
	if err != nil {
		return Post{}, backendError("upload image", err)
	}
	if in.AfterUpload != nil {
		in.AfterUpload(imageURL)
	}

	p, err := s.insert(ctx, Row{Lat: in.Lat, Lng: in.Lng, ImageURL: imageURL, Comment: trimComment(in.Comment)})
	if err != nil {
		// the uploaded object is left behind; nothing references it
		slog.Warn("post insert failed after upload", "path", path, "error", err)
		return Post{}, backendError("insert post", err)
	}
	return p, nil
}

// InsertRow stores a post whose image already lives at an external URL.
func (s *Store) InsertRow(ctx context.Context, r Row) (Post, error) {
	if err := ValidateCoordinate(r.Lat, r.Lng); err != nil {
		return Post{}, err
	}
	if err := validateComment(r.Comment); err != nil {
		return Post{}, err
	}
	p, err := s.insert(ctx, Row{Lat: r.Lat, Lng: r.Lng, ImageURL: r.ImageURL, Comment: trimComment(r.Comment)})
	if err != nil {
		return Post{}, backendError("insert post", err)
	}
	return p, nil
}

func (s *Store) insert(ctx context.Context, r Row) (Post, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO cat_posts (lat, lng, image_url, comment)
		VALUES ($1,$2,$3,$4)
		RETURNING `+columns, r.Lat, r.Lng, r.ImageURL, r.Comment)
	var out Row
	if err := row.Scan(&out.ID, &out.Lat, &out.Lng, &out.ImageURL, &out.Comment, &out.CreatedAt); err != nil {
		return Post{}, err
	}
	return FromRow(out), nil
}
