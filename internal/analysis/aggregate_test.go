package analysis

import (
	"testing"
)

func TestAggregate_UnionAndDedup(t *testing.T) {
	results := []map[string]any{
		{"explicit_interests": []any{"coffee"}},
		{},
		{"explicit_interests": []any{"coffee", "hiking"}},
	}

	p := Aggregate(results)

	if len(p.ExplicitInterests) != 2 {
		t.Fatalf("explicit_interests = %v, want 2 unique entries", p.ExplicitInterests)
	}
	got := map[string]bool{}
	for _, s := range p.ExplicitInterests {
		got[s] = true
	}
	if !got["coffee"] || !got["hiking"] {
		t.Errorf("explicit_interests = %v, want coffee and hiking", p.ExplicitInterests)
	}
}

func TestAggregate_OrderInsensitive(t *testing.T) {
	a := []map[string]any{
		{"dislikes": []any{"crowds"}},
		{"dislikes": []any{"delays", "crowds"}},
	}
	b := []map[string]any{a[1], a[0]}

	pa := Aggregate(a)
	pb := Aggregate(b)

	setOf := func(ss []string) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[s] = true
		}
		return m
	}
	sa, sb := setOf(pa.Dislikes), setOf(pb.Dislikes)
	if len(sa) != len(sb) {
		t.Fatalf("set sizes differ: %v vs %v", pa.Dislikes, pb.Dislikes)
	}
	for k := range sa {
		if !sb[k] {
			t.Errorf("reordered aggregate missing %q", k)
		}
	}
}

func TestAggregate_KeyDatesFeedTopics(t *testing.T) {
	p := Aggregate([]map[string]any{
		{"key_dates": []any{"birthday 12 March"}},
	})

	if len(p.TopicsDiscussed) != 1 || p.TopicsDiscussed[0] != "birthday 12 March" {
		t.Errorf("topics_discussed = %v, want key_dates folded in", p.TopicsDiscussed)
	}
}

func TestAggregate_SkipsMalformedFields(t *testing.T) {
	p := Aggregate([]map[string]any{
		{
			"explicit_interests": "not-an-array",
			"dislikes":           []any{"rain"},
		},
		{
			"explicit_interests": []any{"tea"},
		},
	})

	if len(p.ExplicitInterests) != 1 || p.ExplicitInterests[0] != "tea" {
		t.Errorf("non-array field should be skipped per-field: %v", p.ExplicitInterests)
	}
	if len(p.Dislikes) != 1 || p.Dislikes[0] != "rain" {
		t.Errorf("other fields of the same result should survive: %v", p.Dislikes)
	}
}

func TestAggregate_CanonicalizesObjects(t *testing.T) {
	p := Aggregate([]map[string]any{
		{"inside_jokes": []any{
			map[string]any{"phrase": "chai time", "origin": "office"},
			float64(42),
		}},
		{"inside_jokes": []any{
			map[string]any{"origin": "office", "phrase": "chai time"},
		}},
	})

	if len(p.InsideJokes) != 2 {
		t.Fatalf("inside_jokes = %v, want structurally equal objects deduplicated", p.InsideJokes)
	}
	if p.InsideJokes[0] != `{"origin":"office","phrase":"chai time"}` {
		t.Errorf("object canonical form = %q", p.InsideJokes[0])
	}
	if p.InsideJokes[1] != "42" {
		t.Errorf("number canonical form = %q", p.InsideJokes[1])
	}
}

func TestAggregate_Empty(t *testing.T) {
	p := Aggregate(nil)
	if len(p.ExplicitInterests)+len(p.TopicsDiscussed)+len(p.SentimentTrend) != 0 {
		t.Errorf("empty input should yield empty profile: %+v", p)
	}
}
