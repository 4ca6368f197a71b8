// Package persona defines the persona schema and parses model output into
// validated records with citations back to corpus items.
package persona

import (
	"fmt"
	"strings"
)

// SchemaVersion is the token embedded in prompts and expected back in the
// structured response. Bump it whenever the section set or citation format
// changes.
const SchemaVersion = "persona.v2"

// SectionDef names one required section of a persona record.
type SectionDef struct {
	Key   string
	Title string
}

var sectionDefs = []SectionDef{
	{Key: "name", Title: "Persona Name"},
	{Key: "age_range", Title: "Age Range"},
	{Key: "location", Title: "Location"},
	{Key: "occupation", Title: "Occupation"},
	{Key: "interests", Title: "Interests & Hobbies"},
	{Key: "personality_traits", Title: "Personality Traits"},
	{Key: "communication_style", Title: "Communication Style"},
	{Key: "goals_motivations", Title: "Goals & Motivations"},
	{Key: "pain_points", Title: "Pain Points & Challenges"},
	{Key: "technical_proficiency", Title: "Technical Proficiency"},
	{Key: "social_behavior", Title: "Social Behavior"},
	{Key: "content_preferences", Title: "Content Preferences"},
	{Key: "activity_patterns", Title: "Activity Patterns"},
}

// Sections returns the required sections in canonical order.
func Sections() []SectionDef {
	defs := make([]SectionDef, len(sectionDefs))
	copy(defs, sectionDefs)
	return defs
}

// Claim is a single assertion, optionally backed by corpus item ids.
type Claim struct {
	Text      string   `json:"text"`
	Citations []string `json:"cites,omitempty"`
}

// Section holds the claims for one schema section.
type Section struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	Claims []Claim `json:"claims"`
}

// Record is a validated persona. Degraded marks records recovered through
// the heuristic fallback rather than the strict structured parse.
type Record struct {
	Username          string    `json:"username"`
	SchemaVersion     string    `json:"schema_version"`
	Degraded          bool      `json:"degraded"`
	Sections          []Section `json:"sections"`
	StrippedCitations int       `json:"stripped_citations"`
}

// Section returns the section with the given key, if present.
func (r *Record) Section(key string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// CitationCount is the total number of retained citations.
func (r *Record) CitationCount() int {
	total := 0
	for _, s := range r.Sections {
		for _, c := range s.Claims {
			total += len(c.Citations)
		}
	}
	return total
}

// SchemaError reports a structural violation of the persona schema.
type SchemaError struct {
	Reason  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema validation failed: %s (missing sections: %s)",
			e.Reason, strings.Join(e.Missing, ", "))
	}
	return "schema validation failed: " + e.Reason
}
