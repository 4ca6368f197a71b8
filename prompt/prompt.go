// Package prompt renders the generation instruction for a corpus. Composing
// is a pure function: identical inputs always produce byte-identical output.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"reddit-persona/corpus"
	"reddit-persona/persona"
)

// Compose builds the full instruction prompt embedding the schema descriptor
// and the corpus items with their citable ids.
func Compose(username string, c *corpus.Corpus) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Analyze the following Reddit user's posts and comments and produce a detailed user persona.
Username: %s
Schema version: %s

Respond with ONLY a JSON object in this exact shape:

{
  "version": %q,
  "sections": {
`, username, persona.SchemaVersion, persona.SchemaVersion)

	defs := persona.Sections()
	for i, def := range defs {
		comma := ","
		if i == len(defs)-1 {
			comma = ""
		}
		fmt.Fprintf(&b, "    %q: [{\"text\": \"...\", \"cites\": [\"item id\"]}]%s\n", def.Key, comma)
	}

	b.WriteString(`  }
}

Every section key must be present; use an empty list when the data supports no claims.
Each claim's "cites" lists the bracketed item ids (for example [` + "`t3_abc`" + `]) that support it.
Cite only ids that appear in the data below. Do not invent ids.

Analyze language patterns, topics and subreddits, posting frequency, interaction style, expertise areas, and any geographic, professional, or personal references.

Reddit data:
`)

	for i, item := range c.Items {
		fmt.Fprintf(&b, "\n[%s] %s #%d in r/%s, score %d, %s\n%s\n---\n",
			item.ID, item.Kind, i+1, item.Subreddit, item.Score,
			time.Unix(item.CreatedUTC, 0).UTC().Format("2006-01-02"),
			item.Content)
	}

	return b.String()
}
