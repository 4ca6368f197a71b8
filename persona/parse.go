package persona

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"reddit-persona/corpus"
)

// Parse turns raw model output into a validated Record. The strict path
// requires a JSON block matching the schema; when no valid block is found it
// falls back to section-header detection and marks the record degraded.
func Parse(username, raw string, c *corpus.Corpus) (*Record, error) {
	if payload, ok := extractPayload(raw); ok {
		return validate(username, payload, c)
	}
	return parseHeuristic(username, raw)
}

// structured response shape expected back from the model

type payload struct {
	Version  string                     `json:"version"`
	Sections map[string]json.RawMessage `json:"sections"`
}

var codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// extractPayload finds and decodes the structured block. A block that is not
// valid JSON counts as absent, not as a schema violation.
func extractPayload(raw string) (*payload, bool) {
	text := strings.TrimSpace(raw)
	if m := codeFenceRegex.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	var p payload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return nil, false
	}
	if p.Sections == nil {
		return nil, false
	}
	return &p, true
}

func validate(username string, p *payload, c *corpus.Corpus) (*Record, error) {
	if p.Version != SchemaVersion {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("unexpected schema version %q, want %q", p.Version, SchemaVersion),
		}
	}

	var missing []string
	for _, def := range sectionDefs {
		if _, ok := p.Sections[def.Key]; !ok {
			missing = append(missing, def.Key)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Reason: "incomplete record", Missing: missing}
	}

	rec := &Record{
		Username:      username,
		SchemaVersion: p.Version,
	}

	for _, def := range sectionDefs {
		claims, err := decodeClaims(p.Sections[def.Key])
		if err != nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("malformed section %q: %v", def.Key, err)}
		}

		kept := make([]Claim, 0, len(claims))
		for _, claim := range claims {
			claim.Text = strings.TrimSpace(claim.Text)
			if claim.Text == "" {
				continue
			}
			var cites []string
			for _, id := range claim.Citations {
				if c.Has(id) {
					cites = append(cites, id)
				} else {
					rec.StrippedCitations++
				}
			}
			claim.Citations = cites
			kept = append(kept, claim)
		}
		rec.Sections = append(rec.Sections, Section{Key: def.Key, Title: def.Title, Claims: kept})
	}

	return rec, nil
}

// decodeClaims accepts a claim list, a bare string, or a list of strings for
// a section value. Models frequently flatten single-valued sections.
func decodeClaims(data json.RawMessage) ([]Claim, error) {
	var claims []Claim
	if err := json.Unmarshal(data, &claims); err == nil {
		return claims, nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []Claim{{Text: text}}, nil
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, err
	}
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			claims = append(claims, Claim{Text: t})
		}
	}
	return claims, nil
}
