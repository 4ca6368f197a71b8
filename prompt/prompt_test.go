package prompt

import (
	"strings"
	"testing"

	"reddit-persona/corpus"
	"reddit-persona/normalize"
	"reddit-persona/persona"
	"reddit-persona/reddit"
)

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	items := []normalize.Item{
		{ID: "t3_a", Kind: reddit.KindPost, Content: "post about Go", Subreddit: "golang", Score: 12, CreatedUTC: 1600000000},
		{ID: "t1_b", Kind: reddit.KindComment, Content: "comment text", Subreddit: "golang", Score: 3, CreatedUTC: 1500000000},
	}
	c, err := corpus.Build(items, corpus.Config{MaxItems: 10, MaxChars: 10000})
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return c
}

func TestComposeIncludesEverything(t *testing.T) {
	c := testCorpus(t)
	p := Compose("someone", c)

	if !strings.Contains(p, persona.SchemaVersion) {
		t.Error("prompt missing schema version token")
	}
	if !strings.Contains(p, "someone") {
		t.Error("prompt missing username")
	}
	for _, def := range persona.Sections() {
		if !strings.Contains(p, `"`+def.Key+`"`) {
			t.Errorf("prompt missing section key %q", def.Key)
		}
	}
	for _, id := range c.IDs() {
		if !strings.Contains(p, "["+id+"]") {
			t.Errorf("prompt missing item id %q", id)
		}
	}
	if !strings.Contains(p, "post about Go") || !strings.Contains(p, "comment text") {
		t.Error("prompt missing item content")
	}
}

func TestComposeDeterministic(t *testing.T) {
	c := testCorpus(t)
	first := Compose("someone", c)
	second := Compose("someone", c)
	if first != second {
		t.Error("Compose is not byte-identical across runs")
	}
}

func TestComposeDiffersByCorpus(t *testing.T) {
	c := testCorpus(t)
	other, err := corpus.Build([]normalize.Item{
		{ID: "t3_z", Content: "different", CreatedUTC: 1},
	}, corpus.Config{MaxItems: 10, MaxChars: 1000})
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}

	if Compose("someone", c) == Compose("someone", other) {
		t.Error("prompts for different corpora should differ")
	}
}
