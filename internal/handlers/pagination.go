// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"simpleblog/internal/post"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// paginated is the page envelope used in list responses.
type paginated struct {
	CurrentPage int  `json:"current_page"`
	Data        any  `json:"data"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

func newPaginated(p *post.Page) paginated {
	out := paginated{
		CurrentPage: p.Page,
		Data:        p.Items,
		PerPage:     p.PerPage,
		Total:       p.Total,
		LastPage:    1,
	}
	if p.Total > 0 && p.PerPage > 0 {
		out.LastPage = (p.Total + p.PerPage - 1) / p.PerPage
	}
	if n := len(p.Items); n > 0 {
		from := (p.Page-1)*p.PerPage + 1
		to := from + n - 1
		out.From, out.To = &from, &to
	}
	return out
}

// pageParams reads ?page= and ?per_page=. Missing values take defaults;
// malformed or out-of-range values are validation errors.
func pageParams(r *http.Request) (page, perPage int, errs validationErrors) {
	errs = validationErrors{}
	page, perPage = 1, defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs.add("page", "The page field must be at least 1.")
		} else {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPerPage {
			errs.add("per_page", "The per page field must be between 1 and 100.")
		} else {
			perPage = n
		}
	}
	return page, perPage, errs
}
