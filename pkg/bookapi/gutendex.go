package bookapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

const (
	DefaultGutendexURL  = "https://gutendex.com"
	gutenbergBlurb      = "A classic book from Project Gutenberg"
	gutendexCoverFormat = "image/jpeg"
	gutendexHTMLFormat  = "text/html"
)

// Gutendex reads the Project Gutenberg catalog mirror.
type Gutendex struct {
	base
}

func NewGutendex(opts ...Option) *Gutendex {
	return &Gutendex{base: newBase("gutendex", DefaultGutendexURL, opts)}
}

type gutendexPage struct {
	Results []struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Formats map[string]string `json:"formats"`
	} `json:"results"`
}

// Topic fetches English books for the topic, truncated to limit.
func (c *Gutendex) Topic(ctx context.Context, topic string, limit int) ([]Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" || limit <= 0 {
		return nil, nil
	}

	var page gutendexPage
	if err := c.getJSON(ctx, "/books/", url.Values{"topic": {topic}, "languages": {"en"}}, &page); err != nil {
		return nil, err
	}

	records := make([]Record, 0, limit)
	for _, r := range page.Results {
		if len(records) == limit {
			break
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		names := make([]string, 0, len(r.Authors))
		for _, a := range r.Authors {
			names = append(names, a.Name)
		}
		records = append(records, Record{
			Title:       title,
			Authors:     joinNames(names, ""),
			Description: gutenbergBlurb,
			CoverImage:  strPtr(r.Formats[gutendexCoverFormat]),
			PreviewLink: strPtr(r.Formats[gutendexHTMLFormat]),
			Source:      enums.BookSourceGutenberg,
		})
	}
	return records, nil
}
