package analysis

import (
	"encoding/json"
	"fmt"
)

// Profile is the deduplicated union of extraction signals across all
// batches. Field order within each set is first-occurrence order and
// carries no meaning.
type Profile struct {
	ExplicitInterests    []string `json:"explicit_interests"`
	ImplicitInterests    []string `json:"implicit_interests"`
	GiftMentions         []string `json:"gift_mentions"`
	Dislikes             []string `json:"dislikes"`
	TopicsDiscussed      []string `json:"topics_discussed"`
	RelationshipDynamics []string `json:"relationship_dynamics"`
	InsideJokes          []string `json:"inside_jokes"`
	ClosenessIndicators  []string `json:"closeness_indicators"`
	SentimentTrend       []string `json:"sentiment_trend"`
}

// Aggregate merges per-batch extraction results into one Profile. It is a
// pure function and tolerates anything: results missing a field, or with a
// non-array value for it, are skipped for that field only. The model's
// key_dates output feeds topics_discussed.
func Aggregate(results []map[string]any) Profile {
	var p Profile

	collect := func(dst *[]string, key string) {
		seen := make(map[string]struct{})
		for _, res := range results {
			arr, ok := res[key].([]any)
			if !ok {
				continue
			}
			for _, item := range arr {
				s := canonical(item)
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				*dst = append(*dst, s)
			}
		}
	}

	collect(&p.ExplicitInterests, "explicit_interests")
	collect(&p.ImplicitInterests, "implicit_interests")
	collect(&p.GiftMentions, "gift_mentions")
	collect(&p.Dislikes, "dislikes")
	collect(&p.TopicsDiscussed, "key_dates")
	collect(&p.RelationshipDynamics, "relationship_dynamics")
	collect(&p.InsideJokes, "inside_jokes")
	collect(&p.ClosenessIndicators, "closeness_indicators")
	collect(&p.SentimentTrend, "sentiment_trend")

	return p
}

// canonical reduces an arbitrary JSON value to a string for set
// membership. Objects and arrays serialize with sorted keys, so
// structurally equal values collapse to one entry regardless of the key
// order the model emitted.
func canonical(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
