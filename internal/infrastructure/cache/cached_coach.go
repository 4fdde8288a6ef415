package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

// CachedCoach serves repeated coaching payloads from the cache and collapses
// identical concurrent requests into one upstream call.
type CachedCoach struct {
	// Timeout bounds a shared upstream call, which outlives any one caller's context.
	Timeout time.Duration

	next   ports.Coach
	store  ports.CacheRepository
	model  string
	logger ports.Logger
	group  singleflight.Group
}

// NewCachedCoach decorates next. model is recorded on entries for display.
func NewCachedCoach(next ports.Coach, store ports.CacheRepository, model string, log ports.Logger) *CachedCoach {
	if log == nil {
		log = logger.Nop{}
	}
	return &CachedCoach{
		Timeout: domain.DefaultCoachingTimeout,
		next:    next,
		store:   store,
		model:   model,
		logger:  log,
	}
}

// SubmitForCoaching implements ports.Coach. Cache read and write failures are
// logged and never fail the call.
func (c *CachedCoach) SubmitForCoaching(ctx context.Context, payload domain.CoachingPayload) (domain.CoachingResult, error) {
	key, err := PayloadKey(payload)
	if err != nil {
		return c.next.SubmitForCoaching(ctx, payload)
	}

	if entry, ok, err := c.store.Get(key); err != nil {
		c.logger.Warn("coaching cache read failed", map[string]interface{}{"error": err.Error()})
	} else if ok {
		c.logger.Debug("coaching cache hit", map[string]interface{}{"key": key[:12]})
		return entry.Result, nil
	}

	// the flight must not die with whichever caller started it
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if entry, ok, _ := c.store.Get(key); ok {
			return entry.Result, nil
		}
		callCtx, cancel := context.WithTimeout(flightCtx, c.timeout())
		defer cancel()

		result, err := c.next.SubmitForCoaching(callCtx, payload)
		if err != nil {
			return domain.CoachingResult{}, err
		}
		if err := c.store.Set(domain.CacheEntry{Key: key, Result: result, Model: c.model}); err != nil {
			c.logger.Warn("coaching cache write failed", map[string]interface{}{"error": err.Error()})
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return domain.CoachingResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.CoachingResult{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("coaching request shared", map[string]interface{}{"key": key[:12]})
		}
		return res.Val.(domain.CoachingResult), nil
	}
}

func (c *CachedCoach) timeout() time.Duration {
	if c.Timeout <= 0 {
		return domain.DefaultCoachingTimeout
	}
	return c.Timeout
}

// PayloadKey is the SHA-256 of the payload's canonical JSON encoding.
func PayloadKey(payload domain.CoachingPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

var _ ports.Coach = (*CachedCoach)(nil)
