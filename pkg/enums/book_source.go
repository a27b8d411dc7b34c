package enums

import "fmt"

// BookSource tags where a catalog entry came from.
type BookSource string

const (
	BookSourceOpenLibrary BookSource = "openlibrary"
	BookSourceGutenberg   BookSource = "gutenberg"
	BookSourceAdmin       BookSource = "admin"
)

var validBookSources = []BookSource{
	BookSourceOpenLibrary,
	BookSourceGutenberg,
	BookSourceAdmin,
}

func (s BookSource) String() string {
	return string(s)
}

func (s BookSource) IsValid() bool {
	for _, candidate := range validBookSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsExternal reports whether the book was imported from a third-party catalog.
func (s BookSource) IsExternal() bool {
	return s == BookSourceOpenLibrary || s == BookSourceGutenberg
}

func ParseBookSource(value string) (BookSource, error) {
	for _, candidate := range validBookSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid book source %q", value)
}
