package bookapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

const DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// GoogleBooks queries the volumes API. Results are shown, never persisted.
type GoogleBooks struct {
	base
	apiKey string
}

// VolumeInfo is the flattened subset of a Google Books volume the API exposes.
type VolumeInfo struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	Categories  string `json:"categories"`
	Thumbnail   string `json:"thumbnail"`
}

func NewGoogleBooks(apiKey string, opts ...Option) *GoogleBooks {
	return &GoogleBooks{base: newBase("google books", DefaultGoogleBooksURL, opts), apiKey: strings.TrimSpace(apiKey)}
}

type volumesResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			Description         string   `json:"description"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (c *GoogleBooks) Search(ctx context.Context, query string, maxResults int) ([]VolumeInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{"q": {query}, "maxResults": {strconv.Itoa(maxResults)}}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var body volumesResponse
	if err := c.getJSON(ctx, "/volumes", params, &body); err != nil {
		return nil, err
	}

	out := make([]VolumeInfo, 0, len(body.Items))
	for _, item := range body.Items {
		v := item.VolumeInfo
		info := VolumeInfo{
			Title:       v.Title,
			Authors:     joinNames(v.Authors, "Unknown Author"),
			Description: v.Description,
			Categories:  joinNames(v.Categories, "Uncategorized"),
			Thumbnail:   v.ImageLinks.Thumbnail,
		}
		if info.Title == "" {
			info.Title = "Unknown Title"
		}
		if len(v.IndustryIdentifiers) > 0 {
			info.ISBN = v.IndustryIdentifiers[0].Identifier
		}
		out = append(out, info)
	}
	return out, nil
}
