package post

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"backend-catmap/internal/metrics"
	"backend-catmap/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the post API. Wrap repo with WithPublisher to
// announce created posts.
func RegisterRoutes(r fiber.Router, repo Repository, maxImageBytes int64, createLimiter fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		posts, err := repo.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(posts)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil || !geo.ValidCoordinate(lat, lng) {
			return fiber.NewError(fiber.StatusBadRequest, "valid lat and lng required")
		}
		radius, err := strconv.ParseFloat(c.Query("radius_km", "1"), 64)
		if err != nil || radius <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "radius_km must be positive")
		}
		posts, err := repo.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(Nearby(posts, lat, lng, radius))
	})

	r.Post("/", createLimiter, func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			metrics.CreateFailures.WithLabelValues("validation").Inc()
			return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form: "+err.Error())
		}

		lat, errLat := strconv.ParseFloat(formValue(form, "lat"), 64)
		lng, errLng := strconv.ParseFloat(formValue(form, "lng"), 64)
		if errLat != nil || errLng != nil {
			metrics.CreateFailures.WithLabelValues("validation").Inc()
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidCoordinate.Error())
		}

		img, err := readImage(form, maxImageBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		created, err := repo.Create(c.Context(), CreateInput{
			Lat:     lat,
			Lng:     lng,
			Comment: CollapseNewlines(formValue(form, "comment")),
			Image:   img,
		})
		switch {
		case errors.Is(err, ErrValidation):
			metrics.CreateFailures.WithLabelValues("validation").Inc()
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			metrics.CreateFailures.WithLabelValues("backend").Inc()
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		metrics.PostsCreated.Inc()
		return c.Status(fiber.StatusCreated).JSON(created)
	})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// readImage returns nil when the form carries no image; Create reports that.
func readImage(form *multipart.Form, maxImageBytes int64) (*Image, error) {
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if maxImageBytes > 0 {
		// one byte over is enough for Create to reject it
		src = io.LimitReader(f, maxImageBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &Image{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

// Nearby keeps the posts within radiusKm of (lat, lng), preserving order.
func Nearby(posts []Post, lat, lng, radiusKm float64) []Post {
	out := []Post{}
	for _, p := range posts {
		if geo.HaversineKm(lat, lng, p.Lat, p.Lng) <= radiusKm {
			out = append(out, p)
		}
	}
	return out
}
