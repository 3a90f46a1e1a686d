// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlugTaken is returned by writes that hit the posts_slug_key constraint.
// It means another writer claimed the slug between the existence check and
// the write.
var ErrSlugTaken = errors.New("store: slug already taken")

const (
	uniqueViolation   = "23505"
	slugConstraintKey = "posts_slug_key"
)

// isSlugViolation reports whether err is a unique violation on posts.slug.
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == slugConstraintKey
}
