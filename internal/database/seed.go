// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"simpleblog/internal/slug"
)

// samplePosts is how many posts Seed creates; the first half are published.
const samplePosts = 10

// Seed populates the database with initial development data: one admin user
// and a handful of sample posts. It is a no-op when any user already exists.
func Seed(ctx context.Context, db *sql.DB, adminEmail, adminPassword string) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var adminID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, "Admin", adminEmail, string(hash)).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slugs := slug.CheckerFunc(func(ctx context.Context, s string, _ uuid.UUID) (bool, error) {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, s).Scan(&exists)
		return exists, err
	})

	for i := 1; i <= samplePosts; i++ {
		title := fmt.Sprintf("Postingan Ke-%d", i)
		status := "draft"
		if i <= samplePosts/2 {
			status = "published"
		}
		thumbnail := "https://placehold.co/150?text=" + url.QueryEscape(title) + "&font=roboto"

		postSlug, err := slug.Unique(ctx, title, uuid.Nil, slugs)
		if err != nil {
			return fmt.Errorf("seed slug post %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (user_id, title, slug, content, thumbnail, status, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $7 THEN NOW() END)
		`, adminID, title, postSlug, "<p>Ini adalah konten dari "+title+"</p>", thumbnail, status, status == "published")
		if err != nil {
			return fmt.Errorf("seed insert post %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", adminEmail,
		"posts", samplePosts,
	)

	return nil
}
