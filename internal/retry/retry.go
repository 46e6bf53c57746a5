package retry

import (
	"time"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/samber/do"
)

// Policy bounds the retry loop around one generation batch. Only rate
// limiting is considered transient; everything else fails fast.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func NewPolicy(i *do.Injector) (*Policy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	}, nil
}

// ShouldRetry reports whether another attempt is allowed after the given
// 1-based attempt finished with the given classification.
func (p *Policy) ShouldRetry(attempt int, status image.Status) bool {
	return status == image.StatusRateLimited && attempt < p.MaxAttempts
}

// NextDelay returns the backoff before the attempt following the given
// 1-based attempt: base, then doubling after every retryable failure.
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}
