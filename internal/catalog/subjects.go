package catalog

import "strings"

// categorySubjects maps a category name to the provider subjects synced into it.
var categorySubjects = map[string][]string{
	"Arts":        {"art", "music", "photography", "design", "architecture"},
	"Business":    {"business", "economics", "finance", "management", "marketing"},
	"Fiction":     {"fiction", "novels", "fantasy", "science fiction", "mystery"},
	"History":     {"history", "world history", "ancient history", "military history"},
	"Non-Fiction": {"biography", "autobiography", "essays", "journalism"},
	"Science":     {"science", "physics", "biology", "chemistry", "astronomy"},
	"Self-Help":   {"self-help", "psychology", "personal development", "motivation"},
	"Technology":  {"technology", "computers", "programming", "engineering"},
}

// SubjectsFor returns the sync subjects for a category. Unknown names fall back to
// the lowercase name itself.
func SubjectsFor(category string) []string {
	if subjects, ok := categorySubjects[category]; ok {
		return subjects
	}
	return []string{strings.ToLower(strings.TrimSpace(category))}
}
