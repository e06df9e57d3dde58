package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
)

func TestBlend(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.64, Blend(0.8, 0.4), 1e-9)
}

func TestPersonalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		topics []domain.ArticleTopic
		want   float64
	}{
		{name: "no topics", want: 0},
		{
			name:   "zero relevance",
			topics: []domain.ArticleTopic{{Affinity: 1.5, Relevance: 0}},
			want:   0,
		},
		{
			name: "relevance weighted mean",
			topics: []domain.ArticleTopic{
				{Affinity: 2, Relevance: 1},
				{Affinity: -1, Relevance: 0.5},
			},
			want: (2*1 + -1*0.5) / 1.5,
		},
		{
			name: "unknown affinity counts as zero",
			topics: []domain.ArticleTopic{
				{Affinity: 1, Relevance: 1, HasAffinity: true},
				{Relevance: 1},
			},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Personalization(tt.topics), 1e-9)
		})
	}
}

func TestScoreWithoutTopicsLeansOnSignificance(t *testing.T) {
	t.Parallel()

	scores := Score(0.5, nil)
	assert.Zero(t, scores.Personalization)
	assert.InDelta(t, 0.4, scores.Interest, 1e-9)

	clamped := Score(3, nil)
	assert.InDelta(t, 1.0, clamped.Significance, 1e-9)
}

func TestRankPersistsAndSorts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	liked := seedArticle(t, store, "https://news.example/liked")
	plain := seedArticle(t, store, "https://news.example/plain")
	topicID := linkTopic(t, store, liked.ID, "chess", 1.0)
	require.NoError(t, store.SaveAffinity(ctx, domain.TopicAffinity{TopicID: topicID, AffinityScore: 0.8, InteractionCount: 8}))

	liked.SignificanceScore = 0.4
	plain.SignificanceScore = 0.9

	result, err := NewRanker(store, nil).Rank(ctx, []domain.Article{plain, liked})
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, 1, result.Personalized)

	assert.Equal(t, plain.ID, result.Articles[0].ID, "0.9*0.8 outranks the blended 0.64")
	assert.InDelta(t, 0.72, result.Articles[0].InterestScore, 1e-9)
	assert.InDelta(t, 0.64, result.Articles[1].InterestScore, 1e-9)

	stored, err := store.GetArticle(ctx, liked.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, stored.PersonalizationScore, 1e-9)
	assert.InDelta(t, 0.4, stored.SignificanceScore, 1e-9)
	assert.InDelta(t, 0.64, stored.InterestScore, 1e-9)
}
