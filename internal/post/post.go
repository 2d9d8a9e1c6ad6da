package post

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// MaxCommentLength is counted in characters, not bytes.
const MaxCommentLength = 100

// Post is a cat sighting as the app works with it.
type Post struct {
	ID        string     `json:"id"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	ImageURL  string     `json:"imageUrl"`
	Comment   string     `json:"comment"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Row is the cat_posts record as stored and as pushed on the change feed.
type Row struct {
	ID        string     `json:"id"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	ImageURL  string     `json:"image_url"`
	Comment   string     `json:"comment"`
	CreatedAt *time.Time `json:"created_at"`
}

func FromRow(r Row) Post {
	return Post{
		ID:        r.ID,
		Lat:       r.Lat,
		Lng:       r.Lng,
		ImageURL:  r.ImageURL,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (p Post) Row() Row {
	return Row{
		ID:        p.ID,
		Lat:       p.Lat,
		Lng:       p.Lng,
		ImageURL:  p.ImageURL,
		Comment:   p.Comment,
		CreatedAt: p.CreatedAt,
	}
}

// Image is a selected photo that has not been uploaded yet. It never
// travels as part of a post record.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

type CreateInput struct {
	Lat     float64
	Lng     float64
	Comment string
	Image   *Image

	// AfterUpload, when set, is called once the image is stored and before
	// the row is inserted.
	AfterUpload func(imageURL string)
}

// Repository is the storage strategy the client core runs against.
type Repository interface {
	List(ctx context.Context) ([]Post, error)
	Create(ctx context.Context, in CreateInput) (Post, error)
}

var newlines = regexp.MustCompile(`\r?\n`)

// CollapseNewlines turns every line break in user input into a space.
func CollapseNewlines(s string) string {
	return newlines.ReplaceAllString(s, " ")
}

func trimComment(s string) string {
	return strings.TrimSpace(s)
}
