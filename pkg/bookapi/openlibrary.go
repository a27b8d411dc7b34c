package bookapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

const (
	DefaultOpenLibraryURL = "https://openlibrary.org"
	openLibraryCoverURL   = "https://covers.openlibrary.org/b/id/%d-M.jpg"
)

// OpenLibrary reads the subjects API.
type OpenLibrary struct {
	base
}

func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{base: newBase("openlibrary", DefaultOpenLibraryURL, opts)}
}

type openLibrarySubject struct {
	Works []struct {
		Key     string `json:"key"`
		Title   string `json:"title"`
		CoverID *int64 `json:"cover_id"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Description json.RawMessage `json:"description"`
	} `json:"works"`
}

// Subject fetches up to limit works for the subject. Works without a title are skipped.
func (c *OpenLibrary) Subject(ctx context.Context, subject string, limit int) ([]Record, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || limit <= 0 {
		return nil, nil
	}

	var body openLibrarySubject
	path := "/subjects/" + url.PathEscape(strings.ToLower(subject)) + ".json"
	if err := c.getJSON(ctx, path, url.Values{"limit": {strconv.Itoa(limit)}}, &body); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(body.Works))
	for _, w := range body.Works {
		title := strings.TrimSpace(w.Title)
		if title == "" {
			continue
		}
		names := make([]string, 0, len(w.Authors))
		for _, a := range w.Authors {
			names = append(names, a.Name)
		}
		rec := Record{
			Title:       title,
			Authors:     joinNames(names, "Unknown"),
			Description: plainDescription(w.Description),
			Source:      enums.BookSourceOpenLibrary,
		}
		if w.CoverID != nil {
			rec.CoverImage = strPtr(fmt.Sprintf(openLibraryCoverURL, *w.CoverID))
		}
		if w.Key != "" {
			rec.PreviewLink = strPtr(DefaultOpenLibraryURL + w.Key)
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// plainDescription keeps string descriptions and drops the {"type","value"} object form.
func plainDescription(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
