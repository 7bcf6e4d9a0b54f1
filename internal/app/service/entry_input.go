package service

import (
	"net/url"
	"strings"

	"github.com/sifan077/hyperindex/internal/app/model"
)

// EntryInput carries the editable content of an entry.
type EntryInput struct {
	URL   string
	Title string
	Notes string
	Tags  []string
}

func (in EntryInput) normalize() (EntryInput, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Title = strings.TrimSpace(in.Title)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Tags = cleanTagNames(in.Tags)

	if in.URL == "" {
		return in, invalid("url", "is required")
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return in, invalid("url", "must be an absolute http(s) URL")
	}
	if in.Title == "" {
		in.Title = deriveTitle(u)
	}
	return in, nil
}

// deriveTitle builds a title from the URL's host and path.
func deriveTitle(u *url.URL) string {
	title := strings.TrimPrefix(u.Host, "www.")
	if path := strings.Trim(u.Path, "/"); path != "" {
		title += "/" + path
	}
	return title
}

func (in EntryInput) applyTo(e *model.Entry, tags []model.Tag) {
	e.URL = in.URL
	e.Title = in.Title
	e.Notes = in.Notes
	e.Tags = uniqueTags(tags)
}
