package normalize

import (
	"errors"
	"testing"

	"reddit-persona/reddit"
)

func TestNormalizePreservesOrderAndProvenance(t *testing.T) {
	raw := []reddit.RawItem{
		{ID: "t3_a", Kind: reddit.KindPost, Title: "First", Body: "body one", CreatedUTC: 300},
		{ID: "t1_b", Kind: reddit.KindComment, Body: "comment two", CreatedUTC: 200},
		{ID: "t3_c", Kind: reddit.KindPost, Title: "Third", CreatedUTC: 100},
	}

	items, stats := Normalize(raw)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if stats.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped())
	}

	for i, want := range []string{"t3_a", "t1_b", "t3_c"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
		}
		if items[i].SourceID != raw[i].ID {
			t.Errorf("items[%d].SourceID = %q, want %q", i, items[i].SourceID, raw[i].ID)
		}
	}
}

func TestNormalizeSkipsAndCounts(t *testing.T) {
	raw := []reddit.RawItem{
		{ID: "", Kind: reddit.KindPost, Title: "no id"},
		{ID: "t3_ok", Kind: reddit.KindPost, Title: "fine", Body: "text"},
		{ID: "t1_empty", Kind: reddit.KindComment, Body: "   "},
	}

	items, stats := Normalize(raw)
	if len(items) != 1 || items[0].ID != "t3_ok" {
		t.Fatalf("items = %+v, want only t3_ok", items)
	}
	if stats.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", stats.Malformed)
	}
	if stats.Empty != 1 {
		t.Errorf("Empty = %d, want 1", stats.Empty)
	}
	if stats.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped())
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := []reddit.RawItem{
		{ID: "t3_a", Kind: reddit.KindPost, Title: "T", Body: "B"},
		{ID: "t1_b", Kind: reddit.KindComment, Body: "C", LinkTitle: "T"},
	}

	first, _ := Normalize(raw)
	second, _ := Normalize(raw)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run 1 item %d = %+v, run 2 = %+v", i, first[i], second[i])
		}
	}
}

func TestOneErrors(t *testing.T) {
	_, err := One(reddit.RawItem{Kind: reddit.KindPost, Title: "x"})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("missing id: got %v, want ErrMissingID", err)
	}

	_, err = One(reddit.RawItem{ID: "t3_a", Kind: reddit.KindPost})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("empty content: got %v, want ErrEmptyContent", err)
	}
}

func TestContentPolicy(t *testing.T) {
	tests := []struct {
		name string
		raw  reddit.RawItem
		want string
	}{
		{
			name: "post title and body",
			raw:  reddit.RawItem{ID: "1", Kind: reddit.KindPost, Title: "T", Body: "B"},
			want: "T\n\nB",
		},
		{
			name: "title-only post",
			raw:  reddit.RawItem{ID: "2", Kind: reddit.KindPost, Title: "T"},
			want: "T",
		},
		{
			name: "comment with parent title",
			raw:  reddit.RawItem{ID: "3", Kind: reddit.KindComment, Body: "B", LinkTitle: "Thread"},
			want: "Re: Thread\nB",
		},
		{
			name: "bare comment",
			raw:  reddit.RawItem{ID: "4", Kind: reddit.KindComment, Body: "B"},
			want: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := One(tt.raw)
			if err != nil {
				t.Fatalf("One failed: %v", err)
			}
			if item.Content != tt.want {
				t.Errorf("Content = %q, want %q", item.Content, tt.want)
			}
		})
	}
}
