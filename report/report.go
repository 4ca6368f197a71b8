// Package report renders a validated persona as a human-readable markdown
// document, resolving claim citations against the corpus.
package report

import (
	"fmt"
	"strings"
	"time"

	"reddit-persona/corpus"
	"reddit-persona/persona"
)

// Render produces the full persona report.
func Render(rec *persona.Record, c *corpus.Corpus, generatedAt time.Time) string {
	var b strings.Builder

	title := rec.Username
	if name, ok := rec.Section("name"); ok && len(name.Claims) > 0 {
		title = name.Claims[0].Text
	}

	fmt.Fprintf(&b, "# USER PERSONA: %s\n", title)
	fmt.Fprintf(&b, "Generated for: u/%s\n", rec.Username)
	fmt.Fprintf(&b, "Generated on: %s\n", generatedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Schema: %s\n", rec.SchemaVersion)
	if rec.Degraded {
		b.WriteString("\n> Note: this persona was recovered from unstructured model output; citations are unavailable.\n")
	}

	cited := make(map[string]bool)
	for _, section := range rec.Sections {
		if section.Key == "name" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", strings.ToUpper(section.Title))
		if len(section.Claims) == 0 {
			b.WriteString("- Not specified\n")
			continue
		}
		for _, claim := range section.Claims {
			b.WriteString("- " + claim.Text)
			if len(claim.Citations) > 0 {
				b.WriteString(" [" + strings.Join(claim.Citations, ", ") + "]")
				for _, id := range claim.Citations {
					cited[id] = true
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## SOURCES\n")
	if len(cited) == 0 {
		b.WriteString("No citations available\n")
	} else {
		for _, item := range c.Items {
			if !cited[item.ID] {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s (r/%s, score %d)\n", item.ID, item.Permalink, item.Subreddit, item.Score)
		}
	}

	return b.String()
}
