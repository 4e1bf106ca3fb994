package auth

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"lyricgate/internal/domain"
	"lyricgate/internal/telemetry"
)

// Exchanger performs the network refresh exchange: old refresh credential in,
// new credential pair out.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (access, refresh string, err error)
}

// RefreshCoordinator deduplicates concurrent refresh attempts. However many
// request paths hit 401 at once, at most one exchange is in flight and every
// caller observes its outcome. Letting each 401 race its own exchange would
// invalidate the rotating refresh credential for everyone else.
type RefreshCoordinator struct {
	session   *Session
	exchanger Exchanger
	group     singleflight.Group
	onExpired func()
	metrics   *telemetry.Metrics
}

// NewRefreshCoordinator creates a coordinator. onExpired, fired when a
// refresh fails and the session is cleared, may be nil; metrics may be nil.
func NewRefreshCoordinator(session *Session, exchanger Exchanger, onExpired func(), metrics *telemetry.Metrics) *RefreshCoordinator {
	return &RefreshCoordinator{
		session:   session,
		exchanger: exchanger,
		onExpired: onExpired,
		metrics:   metrics,
	}
}

// Refresh exchanges the refresh credential for a new pair. Concurrent calls
// share one in-flight exchange. On any failure the session is cleared, the
// expiry callback fires, and an AuthenticationError is returned.
func (c *RefreshCoordinator) Refresh(ctx context.Context) error {
	_, err, shared := c.group.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	if shared {
		c.metrics.RecordRefresh(true)
		slog.Debug("joined in-flight credential refresh")
	}
	return err
}

func (c *RefreshCoordinator) doRefresh(ctx context.Context) error {
	c.metrics.RecordRefresh(false)
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return c.expire(&domain.AuthenticationError{Reason: "no refresh credential"})
	}

	access, refresh, err := c.exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		slog.Warn("credential refresh failed", "error", err)
		return c.expire(&domain.AuthenticationError{Reason: "refresh exchange failed", Err: err})
	}

	if err := c.session.SetTokens(access, refresh); err != nil {
		return c.expire(&domain.AuthenticationError{Reason: "failed to store refreshed credentials", Err: err})
	}

	slog.Debug("credential refresh succeeded")
	return nil
}

func (c *RefreshCoordinator) expire(authErr *domain.AuthenticationError) error {
	if err := c.session.Clear(); err != nil {
		slog.Warn("failed to clear session after refresh failure", "error", err)
	}
	c.metrics.RecordAuthFailure()
	if c.onExpired != nil {
		c.onExpired()
	}
	return authErr
}
