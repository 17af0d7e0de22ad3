// Package river scores, filters and ranks community posts by importance.
package river

import (
	"time"

	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/source"
)

// ScoredPost is a RawPost enriched with its importance, sentiment and tags.
type ScoredPost struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Text            string          `json:"text"`
	URL             string          `json:"url"`
	Author          string          `json:"author"`
	Community       string          `json:"community"`
	CreatedAt       time.Time       `json:"created_at"`
	Score           int             `json:"score"`
	Comments        int             `json:"num_comments"`
	ImportanceScore float64         `json:"importance_score"`
	SentimentLabel  sentiment.Label `json:"sentiment_label"`
	SentimentScore  float64         `json:"sentiment_score"`
	Tags            []string        `json:"tech_tags"`
}

// NewScoredPost copies the raw fields of p and attaches the computed attributes.
func NewScoredPost(p source.RawPost, importance float64, sent sentiment.Result, tags []string) ScoredPost {
	if tags == nil {
		tags = []string{}
	}
	return ScoredPost{
		ID:              p.ID,
		Title:           p.Title,
		Text:            p.Text,
		URL:             p.URL,
		Author:          p.Author,
		Community:       p.Community,
		CreatedAt:       p.CreatedAt,
		Score:           p.Score,
		Comments:        p.Comments,
		ImportanceScore: importance,
		SentimentLabel:  sent.Label,
		SentimentScore:  sent.Score,
		Tags:            tags,
	}
}
