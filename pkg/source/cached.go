package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 10 * time.Minute
)

// Cached memoizes successful lookups of another Source. Errors are never
// cached.
type Cached struct {
	next  Source
	cache *expirable.LRU[string, any]
}

var _ Source = (*Cached)(nil)

// NewCached wraps next. Non positive size or ttl fall back to the defaults.
func NewCached(next Source, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, cache: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Len reports the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.cache.Purge()
}

func memo[T any](c *Cached, key string, load func() (T, error)) (T, error) {
	if value, ok := c.cache.Get(key); ok {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.cache.Add(key, value)
	return value, nil
}

func (c *Cached) User(ctx context.Context, login string) (User, error) {
	return memo(c, "user:"+login, func() (User, error) {
		return c.next.User(ctx, login)
	})
}

func (c *Cached) Repositories(ctx context.Context, login string, limit int) ([]Repository, error) {
	return memo(c, fmt.Sprintf("repositories:%s:%d", login, limit), func() ([]Repository, error) {
		return c.next.Repositories(ctx, login, limit)
	})
}

func (c *Cached) Repository(ctx context.Context, owner, name string) (Repository, error) {
	return memo(c, "repository:"+owner+"/"+name, func() (Repository, error) {
		return c.next.Repository(ctx, owner, name)
	})
}

func (c *Cached) Starred(ctx context.Context, login string, limit int) ([]Repository, error) {
	return memo(c, fmt.Sprintf("starred:%s:%d", login, limit), func() ([]Repository, error) {
		return c.next.Starred(ctx, login, limit)
	})
}

func (c *Cached) Calendar(ctx context.Context, login string, from, to time.Time) ([]CalendarDay, error) {
	key := fmt.Sprintf("calendar:%s:%s:%s", login, from.UTC().Format(time.DateOnly), to.UTC().Format(time.DateOnly))
	return memo(c, key, func() ([]CalendarDay, error) {
		return c.next.Calendar(ctx, login, from, to)
	})
}

func (c *Cached) Issues(ctx context.Context, login, repo string) (IssueStats, error) {
	return memo(c, "issues:"+login+":"+repo, func() (IssueStats, error) {
		return c.next.Issues(ctx, login, repo)
	})
}

func (c *Cached) CodeFrequency(ctx context.Context, owner, name string) ([]WeeklyLines, error) {
	return memo(c, "lines:"+owner+"/"+name, func() ([]WeeklyLines, error) {
		return c.next.CodeFrequency(ctx, owner, name)
	})
}
