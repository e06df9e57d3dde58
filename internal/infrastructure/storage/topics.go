package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsCurator/internal/domain"
)

// EnsureTopic returns the id of the named topic, creating it on first use.
func (q *queries) EnsureTopic(ctx context.Context, name string) (int64, error) {
	name = domain.NormalizeTopicName(name)
	if name == "" {
		return 0, fmt.Errorf("topic name is empty")
	}

	if _, err := q.exec(ctx, psql.Insert("topics").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT(name) DO NOTHING")); err != nil {
		return 0, fmt.Errorf("insert topic: %w", err)
	}

	row, err := q.queryRow(ctx, psql.Select("id").From("topics").Where(sq.Eq{"name": name}))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("scan topic id: %w", err)
	}
	return id, nil
}

// LinkArticleTopic links a topic to an article; relevance is clamped to [0,1].
func (q *queries) LinkArticleTopic(ctx context.Context, articleID, topicID int64, relevance float64) error {
	relevance = domain.Clamp(relevance, 0, 1)
	if _, err := q.exec(ctx, psql.Insert("article_topics").
		Columns("article_id", "topic_id", "relevance_score").
		Values(articleID, topicID, relevance).
		Suffix("ON CONFLICT(article_id, topic_id) DO UPDATE SET relevance_score = excluded.relevance_score")); err != nil {
		return fmt.Errorf("link article topic: %w", err)
	}
	return nil
}

// ArticleTopics lists an article's topics joined with their current affinity.
func (q *queries) ArticleTopics(ctx context.Context, articleID int64) ([]domain.ArticleTopic, error) {
	rows, err := q.query(ctx, psql.
		Select("at.article_id", "t.id", "t.name", "at.relevance_score", "ta.affinity_score").
		From("article_topics at").
		Join("topics t ON t.id = at.topic_id").
		LeftJoin("topic_affinities ta ON ta.topic_id = t.id").
		Where(sq.Eq{"at.article_id": articleID}).
		OrderBy("at.relevance_score DESC", "t.name"))
	if err != nil {
		return nil, fmt.Errorf("query article topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.ArticleTopic
	for rows.Next() {
		var (
			topic    domain.ArticleTopic
			affinity sql.NullFloat64
		)
		if err := rows.Scan(&topic.ArticleID, &topic.TopicID, &topic.TopicName, &topic.Relevance, &affinity); err != nil {
			return nil, fmt.Errorf("scan article topic: %w", err)
		}
		topic.Affinity = affinity.Float64
		topic.HasAffinity = affinity.Valid
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// GetAffinity loads the affinity row of a topic; ok is false when none exists yet.
func (q *queries) GetAffinity(ctx context.Context, topicID int64) (domain.TopicAffinity, bool, error) {
	row, err := q.queryRow(ctx, psql.
		Select("ta.topic_id", "t.name", "ta.affinity_score", "ta.interaction_count", "ta.last_updated").
		From("topic_affinities ta").
		Join("topics t ON t.id = ta.topic_id").
		Where(sq.Eq{"ta.topic_id": topicID}))
	if err != nil {
		return domain.TopicAffinity{}, false, err
	}

	affinity, err := scanAffinity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TopicAffinity{}, false, nil
	}
	if err != nil {
		return domain.TopicAffinity{}, false, fmt.Errorf("scan affinity: %w", err)
	}
	return affinity, true, nil
}

func scanAffinity(row rowScanner) (domain.TopicAffinity, error) {
	var (
		affinity    domain.TopicAffinity
		lastUpdated int64
	)
	if err := row.Scan(
		&affinity.TopicID,
		&affinity.TopicName,
		&affinity.AffinityScore,
		&affinity.InteractionCount,
		&lastUpdated,
	); err != nil {
		return domain.TopicAffinity{}, err
	}
	affinity.LastUpdated = time.UnixMilli(lastUpdated).UTC()
	return affinity, nil
}

// SaveAffinity upserts a topic affinity; the score is clamped to [-2,2].
func (q *queries) SaveAffinity(ctx context.Context, affinity domain.TopicAffinity) error {
	score := domain.Clamp(affinity.AffinityScore, domain.MinAffinity, domain.MaxAffinity)
	if _, err := q.exec(ctx, psql.Insert("topic_affinities").
		Columns("topic_id", "affinity_score", "interaction_count", "last_updated").
		Values(affinity.TopicID, score, affinity.InteractionCount, affinity.LastUpdated.UnixMilli()).
		Suffix(`ON CONFLICT(topic_id) DO UPDATE SET
			affinity_score = excluded.affinity_score,
			interaction_count = excluded.interaction_count,
			last_updated = excluded.last_updated`)); err != nil {
		return fmt.Errorf("save affinity: %w", err)
	}
	return nil
}

// ListAffinities returns every learned affinity, strongest first.
func (q *queries) ListAffinities(ctx context.Context) ([]domain.TopicAffinity, error) {
	rows, err := q.query(ctx, psql.
		Select("ta.topic_id", "t.name", "ta.affinity_score", "ta.interaction_count", "ta.last_updated").
		From("topic_affinities ta").
		Join("topics t ON t.id = ta.topic_id").
		OrderBy("ta.affinity_score DESC", "t.name"))
	if err != nil {
		return nil, fmt.Errorf("query affinities: %w", err)
	}
	defer rows.Close()

	var affinities []domain.TopicAffinity
	for rows.Next() {
		affinity, err := scanAffinity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan affinity: %w", err)
		}
		affinities = append(affinities, affinity)
	}
	return affinities, rows.Err()
}

// InsertInteraction appends an interaction event and sets its ID.
func (q *queries) InsertInteraction(ctx context.Context, interaction *domain.Interaction) error {
	res, err := q.exec(ctx, psql.Insert("interactions").
		Columns("article_id", "type", "created_at").
		Values(interaction.ArticleID, string(interaction.Type), interaction.CreatedAt.UnixMilli()))
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	interaction.ID = id
	return nil
}
