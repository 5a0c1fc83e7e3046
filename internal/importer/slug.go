package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const maxSlugLen = 120

// maxSlugProbes bounds the suffix search before falling back to a timestamp suffix
const maxSlugProbes = 1000

// SlugProbe reports whether a slug is already taken in the backing store
type SlugProbe func(ctx context.Context, slug string) (bool, error)

// Slugify lower-cases s and replaces every run of characters outside [a-z0-9] with "-"
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return truncateSlug(strings.Trim(b.String(), "-"), maxSlugLen)
}

func truncateSlug(slug string, max int) string {
	if len(slug) <= max {
		return slug
	}
	return strings.TrimRight(slug[:max], "-")
}

// SlugGenerator assigns unique slugs within one import run. Slugs it has handed
// out count as taken even before they are persisted.
type SlugGenerator struct {
	prefix   string
	reserved map[string]struct{}
	now      func() time.Time
}

func NewSlugGenerator(prefix string) *SlugGenerator {
	return &SlugGenerator{
		prefix:   prefix,
		reserved: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Unique derives a slug from desired, or from title when desired is empty, and
// appends -1, -2, ... until neither the run nor probe reports it taken.
func (g *SlugGenerator) Unique(ctx context.Context, title, desired string, probe SlugProbe) (string, error) {
	base := Slugify(desired)
	if base == "" {
		base = Slugify(title)
	}
	if base == "" {
		base = g.prefix + "-" + strconv.FormatInt(g.now().UnixMilli(), 10)
	}

	for i := 0; i <= maxSlugProbes; i++ {
		candidate := withSuffix(base, i)
		taken, err := g.taken(ctx, candidate, probe)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			g.reserved[candidate] = struct{}{}
			return candidate, nil
		}
	}

	candidate := withSuffix(base, int(g.now().UnixMilli()))
	g.reserved[candidate] = struct{}{}
	return candidate, nil
}

func (g *SlugGenerator) taken(ctx context.Context, slug string, probe SlugProbe) (bool, error) {
	if _, ok := g.reserved[slug]; ok {
		return true, nil
	}
	if probe == nil {
		return false, nil
	}
	return probe(ctx, slug)
}

func withSuffix(base string, n int) string {
	if n == 0 {
		return base
	}
	suffix := "-" + strconv.Itoa(n)
	return truncateSlug(base, maxSlugLen-len(suffix)) + suffix
}
