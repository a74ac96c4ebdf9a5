package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/municipal-service/internal/config"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

const submissionWindow = 24 * time.Hour

// SubmissionLimiter caps issue submissions per reporter over a rolling day.
// Counters live in Redis keyed by reporter phone (or client IP when no phone
// is supplied) and expire with the window.
type SubmissionLimiter struct {
	client *redis.Client
	logger *zap.Logger
	cfg    config.RateLimitConfig
}

// NewSubmissionLimiter constructs the limiter. A nil client disables limiting.
func NewSubmissionLimiter(client *redis.Client, logger *zap.Logger, cfg config.RateLimitConfig) *SubmissionLimiter {
	return &SubmissionLimiter{client: client, logger: logger, cfg: cfg}
}

// Handle rejects submissions beyond the daily quota with 429 and a
// retry_after hint. Redis outages fail open so citizens are never locked out
// by cache downtime.
func (l *SubmissionLimiter) Handle(c *fiber.Ctx) error {
	if l.client == nil || l.cfg.IssuesPerDay <= 0 {
		return c.Next()
	}

	key := fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, reporterKey(c))
	ctx := c.Context()

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return c.Next()
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, submissionWindow).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	if count > int64(l.cfg.IssuesPerDay) {
		retryAfter := submissionWindow
		if ttl, err := l.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return apperrors.NewTooManyRequests("daily submission limit reached", map[string]any{
			"limit":       l.cfg.IssuesPerDay,
			"retry_after": int64(retryAfter.Seconds()),
		})
	}
	return c.Next()
}

// reporterKey identifies the submitter: reporter phone when present in the
// payload, client IP otherwise.
func reporterKey(c *fiber.Ctx) string {
	var probe struct {
		ReporterPhone *string `json:"reporterPhone"`
	}
	if err := c.BodyParser(&probe); err == nil && probe.ReporterPhone != nil {
		if phone := strings.TrimSpace(*probe.ReporterPhone); phone != "" {
			return "phone:" + phone
		}
	}
	return "ip:" + c.IP()
}
