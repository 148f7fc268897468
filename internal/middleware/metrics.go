package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrawl_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// VoteConflictRetries counts vote engine retries caused by ledger races.
	VoteConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrawl_vote_conflict_retries_total",
		Help: "Total number of vote operations retried after a ledger conflict",
	})

	// VoteOperations counts completed vote mutations by outcome.
	VoteOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrawl_vote_operations_total",
		Help: "Total number of completed vote mutations by outcome",
	}, []string{"outcome"})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(service string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(service)
}

// MetricsMiddleware returns the request-level Prometheus middleware handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
