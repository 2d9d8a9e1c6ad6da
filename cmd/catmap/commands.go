package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	"backend-catmap/internal/config"
	"backend-catmap/internal/locate"
	"backend-catmap/internal/post"
	"backend-catmap/internal/session"
	"backend-catmap/internal/shared/geo"
	"backend-catmap/internal/submission"
	"backend-catmap/internal/viewstate"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

// Tokyo Station, the map's default centre.
var defaultCenter = geo.Coordinate{Lat: 35.6812, Lng: 139.7671}

const placeholderImage = "https://placekitten.com/200/300"

func newRootCmd(cfg config.Config, out io.Writer, open backendOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "catmap",
		Short:        "Share and browse cat sightings on a map",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newListCmd(cfg, open),
		newWatchCmd(cfg, open),
		newPostCmd(cfg, open),
		newSeedCmd(cfg, open),
	)
	return root
}

func newSession(cfg config.Config, b *backend) (*session.Session, error) {
	policy, err := submission.ParseRefreshPolicy(cfg.RefreshPolicy)
	if err != nil {
		return nil, err
	}
	var locator locate.Locator = locate.Denied{}
	if lat, lng, ok := cfg.Device(); ok {
		locator = locate.Fixed{Lat: lat, Lng: lng}
	}
	return session.New(b.repo, b.feed, submission.Options{
		Locator:       locator,
		LocateTimeout: cfg.LocateTimeout,
		MaxImageBytes: cfg.MaxImageBytes,
		Policy:        policy,
	}), nil
}

func newListCmd(cfg config.Config, open backendOpener) *cobra.Command {
	var near string
	var radius float64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print all posts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			posts, err := b.repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if near != "" {
				c, err := parseCoordinate(near)
				if err != nil {
					return err
				}
				posts = post.Nearby(posts, c.Lat, c.Lng, radius)
			}
			return printPosts(cmd.OutOrStdout(), posts)
		},
	}
	cmd.Flags().StringVar(&near, "near", "", "only posts around lat,lng")
	cmd.Flags().Float64Var(&radius, "radius-km", 1, "radius for --near")
	return cmd
}

func newWatchCmd(cfg config.Config, open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print posts as they are created until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			arrivals := make(chan post.Post, 16)

			// Anything listed by a fetch is old news; every other post the
			// controller shows is printed once.
			var mu sync.Mutex
			seen := map[string]bool{}
			watched := *b
			watched.repo = listRecorder{Repository: b.repo, fetched: func(posts []post.Post) {
				mu.Lock()
				defer mu.Unlock()
				for _, p := range posts {
					seen[p.ID] = true
				}
			}}

			s, err := newSession(cfg, &watched)
			if err != nil {
				return err
			}
			s.Controller().OnChange(func(snap viewstate.Snapshot) {
				mu.Lock()
				defer mu.Unlock()
				for _, p := range snap.Posts {
					if seen[p.ID] {
						continue
					}
					seen[p.ID] = true
					select {
					case arrivals <- p:
					case <-ctx.Done():
					}
				}
			})

			if err := s.Open(ctx); err != nil {
				return err
			}
			defer s.Close()

			v := s.View()
			if v.FetchError != nil {
				fmt.Fprintf(out, "could not load posts: %v\n", v.FetchError)
			} else {
				fmt.Fprintf(out, "%d posts, watching for new ones\n", len(v.Posts))
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case p := <-arrivals:
					fmt.Fprintf(out, "new: %s\n", formatPost(p))
				}
			}
		},
	}
}

// listRecorder hands every successful listing to fetched before returning it.
type listRecorder struct {
	post.Repository
	fetched func([]post.Post)
}

func (r listRecorder) List(ctx context.Context) ([]post.Post, error) {
	posts, err := r.Repository.List(ctx)
	if err == nil {
		r.fetched(posts)
	}
	return posts, err
}

func newPostCmd(cfg config.Config, open backendOpener) *cobra.Command {
	var imagePath, comment string
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Share a cat sighting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			b, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			s, err := newSession(cfg, b)
			if err != nil {
				return err
			}

			d := s.OpenCompose()
			d.Image = &post.Image{
				Name:        filepath.Base(imagePath),
				ContentType: mimetype.Detect(data).String(),
				Data:        data,
			}
			d.Comment = comment
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				d.Location = &geo.Coordinate{Lat: lat, Lng: lng}
			}

			created, err := s.Submit(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", formatPost(created))
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "photo to upload (JPEG, PNG or WebP)")
	cmd.Flags().StringVar(&comment, "comment", "", "short comment, up to 100 characters")
	cmd.Flags().Float64Var(&lat, "lat", defaultCenter.Lat, "latitude picked on the map")
	cmd.Flags().Float64Var(&lng, "lng", defaultCenter.Lng, "longitude picked on the map")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("comment")
	return cmd
}

func newSeedCmd(cfg config.Config, open backendOpener) *cobra.Command {
	var count int
	var spread float64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert placeholder posts around Tokyo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()
			if b.insertRow == nil {
				return errors.New("seed needs postgres storage")
			}

			gofakeit.Seed(time.Now().UnixNano())
			for i := 0; i < count; i++ {
				row := post.Row{
					Lat:      defaultCenter.Lat + gofakeit.Float64Range(-spread, spread),
					Lng:      defaultCenter.Lng + gofakeit.Float64Range(-spread, spread),
					ImageURL: placeholderImage,
					Comment:  gofakeit.Sentence(6),
				}
				p, err := b.insertRow(cmd.Context(), row)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", formatPost(p))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of posts")
	cmd.Flags().Float64Var(&spread, "spread", 0.05, "max degrees away from the centre")
	return cmd
}

func printPosts(w io.Writer, posts []post.Post) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAT\tLNG\tCREATED\tCOMMENT\tIMAGE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%.5f\t%.5f\t%s\t%s\t%s\n", p.ID, p.Lat, p.Lng, createdAt(p), p.Comment, p.ImageURL)
	}
	return tw.Flush()
}

func formatPost(p post.Post) string {
	return fmt.Sprintf("%s (%.5f, %.5f) %q %s", p.ID, p.Lat, p.Lng, p.Comment, p.ImageURL)
}

func createdAt(p post.Post) string {
	if p.CreatedAt == nil {
		return "-"
	}
	return p.CreatedAt.Local().Format(time.DateTime)
}

func parseCoordinate(s string) (geo.Coordinate, error) {
	lat, lng, ok := config.Config{DeviceLocation: s}.Device()
	if !ok || !geo.ValidCoordinate(lat, lng) {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinate %q, want lat,lng", s)
	}
	return geo.Coordinate{Lat: lat, Lng: lng}, nil
}
