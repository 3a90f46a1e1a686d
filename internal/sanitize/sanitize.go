// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sanitize cleans user-supplied post HTML before it is stored.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	contentPolicy *bluemonday.Policy
	initOnce      sync.Once
)

func initPolicy() {
	initOnce.Do(func() {
		// Rich-text editor output: headings, lists, links, images, tables,
		// code. No scripts, styles, iframes or event handlers.
		contentPolicy = bluemonday.UGCPolicy()
		contentPolicy.RequireNoFollowOnLinks(true)
		contentPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
}

// HTML sanitizes post content produced by a rich-text editor.
func HTML(s string) string {
	initPolicy()
	return contentPolicy.Sanitize(s)
}

// Sanitizer adapts HTML to an interface value for services that accept a
// pluggable cleaner.
type Sanitizer struct{}

// Sanitize calls HTML.
func (Sanitizer) Sanitize(s string) string {
	return HTML(s)
}
