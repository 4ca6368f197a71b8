// Package normalize converts raw posts and comments into the canonical
// item shape used by the rest of the pipeline.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"reddit-persona/reddit"
)

// ErrMissingID marks a raw item without the required id field.
var ErrMissingID = errors.New("item missing id")

// ErrEmptyContent marks a raw item with no usable text.
var ErrEmptyContent = errors.New("item has no usable content")

// Item is the canonical record derived 1:1 from a RawItem. SourceID always
// points back to the raw item it came from.
type Item struct {
	ID         string      `json:"id"`
	Kind       reddit.Kind `json:"kind"`
	Content    string      `json:"content"`
	Subreddit  string      `json:"subreddit"`
	Score      int         `json:"score"`
	CreatedUTC int64       `json:"created_utc"`
	Permalink  string      `json:"permalink"`
	SourceID   string      `json:"source_id"`
}

// Stats reports what was skipped during normalization.
type Stats struct {
	Malformed int // items missing an id
	Empty     int // items with no usable content
}

// Dropped is the total number of raw items that did not survive.
func (s Stats) Dropped() int {
	return s.Malformed + s.Empty
}

// Normalize converts raw items in input order. Unusable items are skipped
// and counted, never fatal; output length is at most the input length.
func Normalize(raw []reddit.RawItem) ([]Item, Stats) {
	items := make([]Item, 0, len(raw))
	var stats Stats

	for _, r := range raw {
		item, err := One(r)
		switch {
		case errors.Is(err, ErrMissingID):
			stats.Malformed++
		case errors.Is(err, ErrEmptyContent):
			stats.Empty++
		default:
			items = append(items, item)
		}
	}
	return items, stats
}

// One normalizes a single raw item.
func One(r reddit.RawItem) (Item, error) {
	if r.ID == "" {
		return Item{}, fmt.Errorf("%w (%s in r/%s)", ErrMissingID, r.Kind, r.Subreddit)
	}

	content := buildContent(r)
	if content == "" {
		return Item{}, fmt.Errorf("%w: %s", ErrEmptyContent, r.ID)
	}

	return Item{
		ID:         r.ID,
		Kind:       r.Kind,
		Content:    content,
		Subreddit:  r.Subreddit,
		Score:      r.Score,
		CreatedUTC: r.CreatedUTC,
		Permalink:  r.Permalink,
		SourceID:   r.ID,
	}, nil
}

func buildContent(r reddit.RawItem) string {
	title := strings.TrimSpace(r.Title)
	body := strings.TrimSpace(r.Body)

	switch r.Kind {
	case reddit.KindComment:
		if body == "" {
			return ""
		}
		if link := strings.TrimSpace(r.LinkTitle); link != "" {
			return "Re: " + link + "\n" + body
		}
		return body
	default:
		switch {
		case title == "" && body == "":
			return ""
		case body == "":
			return title
		case title == "":
			return body
		default:
			return title + "\n\n" + body
		}
	}
}
