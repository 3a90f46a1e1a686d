// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from post titles and
// collision-free slug assignment against a persistence collaborator.
package slug

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the base slug used when a title has no letters or digits left
// after slugification (e.g. "!!!").
const Fallback = "post"

// Checker reports whether a slug is already held by a post other than
// excludeID. uuid.Nil means no post is excluded.
type Checker interface {
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
}

// CheckerFunc adapts an ordinary function to the Checker interface.
type CheckerFunc func(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

// SlugExists calls f(ctx, slug, excludeID).
func (f CheckerFunc) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	return f(ctx, slug, excludeID)
}

// Generate creates a URL-friendly slug from the given string.
// Text in any script is transliterated to ASCII, letters are lowercased, and
// every run of other characters becomes a single hyphen.
// Example: "Hello, World! 2026" → "hello-world-2026", "Привет мир" → "privet-mir"
func Generate(s string) string {
	// Transliteration tables are keyed on precomposed code points.
	folded := unidecode.Unidecode(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(folded))
	gap := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// Unique returns a slug for title that no post other than excludeID holds.
// It probes base, base-1, base-2, ... until the checker reports a free
// candidate. Checker errors are returned as-is.
//
// The result is only unique at the instant of the check; callers must rely on
// the storage constraint and retry on conflict.
func Unique(ctx context.Context, title string, excludeID uuid.UUID, checker Checker) (string, error) {
	base := Generate(title)
	if base == "" {
		base = Fallback
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := checker.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(counter)
	}
}
