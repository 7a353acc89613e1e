package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

var (
	mockLanguages = []string{"Go", "TypeScript", "JavaScript", "Python", "Rust", "Shell", "HTML", "CSS"}
	mockLicenses  = []string{"MIT", "Apache-2.0", "BSD-3-Clause", "GPL-3.0", ""}
	mockWords     = []string{
		"metrics", "render", "cards", "insights", "atlas", "forge", "pulse",
		"signal", "orbit", "lattice", "harbor", "ember", "quartz", "tide",
	}
)

// MockEpoch is the reference "now" of the mock source.
var MockEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Mock generates plausible data seeded by the login. Every call builds its
// own generator, so the same arguments always produce the same values.
type Mock struct {
	now  time.Time
	salt string
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithMockNow overrides the reference time.
func WithMockNow(now time.Time) MockOption {
	return func(m *Mock) {
		m.now = now.UTC()
	}
}

// WithMockSalt mixes salt into every seed.
func WithMockSalt(salt string) MockOption {
	return func(m *Mock) {
		m.salt = salt
	}
}

// NewMock builds a deterministic source.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{now: MockEpoch}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

var _ Source = (*Mock)(nil)

func (m *Mock) rng(parts ...string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.salt))
	for _, part := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(part))
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func pick[T any](r *rand.Rand, values []T) T {
	return values[r.IntN(len(values))]
}

func (m *Mock) User(ctx context.Context, login string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(login) == "" {
		return User{}, fmt.Errorf("source: login is required")
	}
	r := m.rng("user", login)
	return User{
		Login:       login,
		Name:        strings.ToUpper(login[:1]) + login[1:],
		Bio:         fmt.Sprintf("Building %s and %s", pick(r, mockWords), pick(r, mockWords)),
		Company:     "@" + pick(r, mockWords),
		Location:    pick(r, []string{"Paris", "Lisbon", "Berlin", "Toronto", "Osaka"}),
		Blog:        fmt.Sprintf("https://%s.dev", strings.ToLower(login)),
		AvatarURL:   fmt.Sprintf("https://github.com/%s.png", login),
		Followers:   r.IntN(5000),
		Following:   r.IntN(300),
		PublicRepos: 5 + r.IntN(60),
		PublicGists: r.IntN(40),
		Hireable:    r.IntN(2) == 0,
		CreatedAt:   m.now.AddDate(-(1 + r.IntN(12)), -r.IntN(12), 0),
	}, nil
}

func (m *Mock) Repositories(ctx context.Context, login string, limit int) ([]Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.rng("repositories", login)
	count := 3 + r.IntN(8)
	if limit > 0 && count > limit {
		count = limit
	}
	repos := make([]Repository, 0, count)
	for i := 0; i < count; i++ {
		repos = append(repos, m.repository(login, fmt.Sprintf("%s-%s", pick(r, mockWords), pick(r, mockWords)), i))
	}
	sort.SliceStable(repos, func(i, j int) bool { return repos[i].Stars > repos[j].Stars })
	return repos, nil
}

func (m *Mock) Repository(ctx context.Context, owner, name string) (Repository, error) {
	if err := ctx.Err(); err != nil {
		return Repository{}, err
	}
	if owner == "" || name == "" {
		return Repository{}, fmt.Errorf("source: owner and name are required")
	}
	return m.repository(owner, name, 0), nil
}

func (m *Mock) repository(owner, name string, index int) Repository {
	r := m.rng("repository", owner, name, fmt.Sprint(index))
	languages := map[string]int{}
	for i := 0; i < 1+r.IntN(4); i++ {
		languages[pick(r, mockLanguages)] += 1000 + r.IntN(90000)
	}
	primary, best := "", -1
	for lang, size := range languages {
		if size > best || (size == best && lang < primary) {
			primary, best = lang, size
		}
	}
	return Repository{
		Owner:       owner,
		Name:        name,
		Description: fmt.Sprintf("A %s for %s", pick(r, mockWords), pick(r, mockWords)),
		Language:    primary,
		License:     pick(r, mockLicenses),
		Stars:       r.IntN(2000),
		Forks:       r.IntN(300),
		Watchers:    r.IntN(100),
		OpenIssues:  r.IntN(50),
		Fork:        r.IntN(5) == 0,
		Languages:   languages,
		UpdatedAt:   m.now.AddDate(0, 0, -r.IntN(365)),
	}
}

func (m *Mock) Starred(ctx context.Context, login string, limit int) ([]Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.rng("starred", login)
	count := 2 + r.IntN(6)
	if limit > 0 && count > limit {
		count = limit
	}
	repos := make([]Repository, 0, count)
	for i := 0; i < count; i++ {
		owner := pick(r, mockWords)
		repos = append(repos, m.repository(owner, pick(r, mockWords), i))
	}
	return repos, nil
}

func (m *Mock) Calendar(ctx context.Context, login string, from, to time.Time) ([]CalendarDay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("source: calendar range ends before it starts")
	}
	r := m.rng("calendar", login, from.UTC().Format(time.DateOnly))
	days := []CalendarDay{}
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		count := 0
		if r.IntN(3) > 0 {
			count = r.IntN(12)
		}
		days = append(days, CalendarDay{Date: day, Count: count})
	}
	return days, nil
}

func (m *Mock) Issues(ctx context.Context, login, repo string) (IssueStats, error) {
	if err := ctx.Err(); err != nil {
		return IssueStats{}, err
	}
	r := m.rng("issues", login, repo)
	return IssueStats{
		IssuesOpen:   r.IntN(40),
		IssuesClosed: r.IntN(400),
		PullsOpen:    r.IntN(20),
		PullsClosed:  r.IntN(50),
		PullsMerged:  r.IntN(300),
	}, nil
}

func (m *Mock) CodeFrequency(ctx context.Context, owner, name string) ([]WeeklyLines, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.rng("lines", owner, name)
	weeks := make([]WeeklyLines, 0, 12)
	for i := 11; i >= 0; i-- {
		weeks = append(weeks, WeeklyLines{
			Week:      m.now.AddDate(0, 0, -7*i),
			Additions: r.IntN(4000),
			Deletions: r.IntN(2500),
		})
	}
	return weeks, nil
}
