// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"simpleblog/internal/models"
	"simpleblog/internal/post"
)

// Validation limits for post fields.
const (
	maxTitleLen     = 255
	maxThumbnailLen = 2048
)

// validationErrors maps a field name to its error messages.
type validationErrors map[string][]string

func (v validationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

func (v validationErrors) empty() bool {
	return len(v) == 0
}

// postRequest is the JSON body for creating and updating posts.
type postRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Status    *string `json:"status"`
	Thumbnail *string `json:"thumbnail"`

	// ContentFormat is "html" (default) or "markdown".
	ContentFormat *string `json:"content_format"`
}

// validatePost checks a post body and converts it to a service input.
func validatePost(req postRequest) (post.Input, validationErrors) {
	errs := validationErrors{}
	var in post.Input

	switch {
	case req.Title == nil || strings.TrimSpace(*req.Title) == "":
		errs.add("title", "The title field is required.")
	case utf8.RuneCountInString(strings.TrimSpace(*req.Title)) > maxTitleLen:
		errs.add("title", fmt.Sprintf("The title field must not be greater than %d characters.", maxTitleLen))
	default:
		in.Title = *req.Title
	}

	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		errs.add("content", "The content field is required.")
	} else {
		in.Content = *req.Content
	}

	switch {
	case req.Status == nil || *req.Status == "":
		errs.add("status", "The status field is required.")
	case !models.PostStatus(*req.Status).Valid():
		errs.add("status", "The selected status is invalid.")
	default:
		in.Status = models.PostStatus(*req.Status)
	}

	// An omitted thumbnail keeps the stored one; an empty string clears it.
	in.ThumbnailSet = req.Thumbnail != nil
	if req.Thumbnail != nil && strings.TrimSpace(*req.Thumbnail) != "" {
		thumb := strings.TrimSpace(*req.Thumbnail)
		switch {
		case utf8.RuneCountInString(thumb) > maxThumbnailLen:
			errs.add("thumbnail", fmt.Sprintf("The thumbnail field must not be greater than %d characters.", maxThumbnailLen))
		case !validURL(thumb):
			errs.add("thumbnail", "The thumbnail field must be a valid URL.")
		default:
			in.Thumbnail = &thumb
		}
	}

	if req.ContentFormat != nil {
		switch *req.ContentFormat {
		case "", "html":
		case "markdown":
			in.Markdown = true
		default:
			errs.add("content_format", "The selected content format is invalid.")
		}
	}

	return in, errs
}

// loginRequest is the JSON body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

func validateLogin(req loginRequest) validationErrors {
	errs := validationErrors{}
	email := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		errs.add("email", "The email field is required.")
	case !validEmail(email):
		errs.add("email", "The email field must be a valid email address.")
	}
	if req.Password == "" {
		errs.add("password", "The password field is required.")
	}
	return errs
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
