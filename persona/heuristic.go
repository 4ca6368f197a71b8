package persona

import (
	"strings"
)

// parseHeuristic recovers a persona from free text by detecting section
// headers. The result is always marked degraded and carries no citations.
func parseHeuristic(username, raw string) (*Record, error) {
	claims := make(map[string][]Claim)
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		if key, ok := matchHeader(line); ok {
			current = key
			continue
		}
		if current == "" {
			continue
		}
		text := stripBullet(line)
		if text != "" {
			claims[current] = append(claims[current], Claim{Text: text})
		}
	}

	if len(claims) == 0 {
		return nil, &SchemaError{Reason: "no structured block and no recognizable section headers"}
	}

	rec := &Record{
		Username:      username,
		SchemaVersion: SchemaVersion,
		Degraded:      true,
	}
	for _, def := range sectionDefs {
		rec.Sections = append(rec.Sections, Section{Key: def.Key, Title: def.Title, Claims: claims[def.Key]})
	}
	return rec, nil
}

// matchHeader reports whether a line is a section header. Markdown markers,
// emphasis, and a trailing colon are tolerated around the section title or
// its snake_case key.
func matchHeader(line string) (string, bool) {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#")
	s = strings.Trim(s, "*_ \t")
	s = strings.TrimSuffix(s, ":")
	s = strings.Trim(s, "*_ \t")
	if s == "" {
		return "", false
	}

	folded := strings.ToLower(s)
	for _, def := range sectionDefs {
		if folded == strings.ToLower(def.Title) || folded == def.Key ||
			folded == strings.ReplaceAll(def.Key, "_", " ") {
			return def.Key, true
		}
	}
	return "", false
}

func stripBullet(line string) string {
	s := strings.TrimSpace(line)
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	// numbered list entries
	if len(s) > 2 && s[0] >= '0' && s[0] <= '9' {
		if rest, ok := strings.CutPrefix(s[1:], ". "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}
