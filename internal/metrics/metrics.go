package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catmap_posts_created_total",
		Help: "Posts persisted through the API.",
	})

	CreateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catmap_post_create_failures_total",
		Help: "Rejected or failed post creations by kind.",
	}, []string{"kind"})

	FeedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catmap_feed_deliveries_total",
		Help: "Change feed payloads handed to connected websocket clients.",
	})
)

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
