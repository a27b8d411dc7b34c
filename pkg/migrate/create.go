package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/pressly/goose/v3"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

	sqlTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.CamelName}} ({{.Version}})
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- +goose StatementEnd
`))
)

// CreateSQLMigration writes an empty timestamped goose migration into dir and
// returns its path. The name is reduced to lower-case snake case first.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	if err := goose.CreateWithTemplate(nil, dir, sqlTemplate, slug, "sql"); err != nil {
		return "", fmt.Errorf("create migration %s: %w", slug, err)
	}

	created, err := filepath.Glob(filepath.Join(dir, "*_"+slug+".sql"))
	if err != nil || len(created) == 0 {
		return "", fmt.Errorf("locate created migration %s: %v", slug, err)
	}
	slices.Sort(created)
	return created[len(created)-1], nil
}

func slugify(name string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
