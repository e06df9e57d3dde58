package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsCurator/internal/domain"
)

var briefingColumns = []string{"id", "title", "created_at", "topics", "articles", "summary"}

// CreateBriefing stores a briefing with its ordered article links and sets its ID.
func (q *queries) CreateBriefing(ctx context.Context, briefing *domain.Briefing) error {
	topics, err := json.Marshal(nonNilStrings(briefing.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	articleIDs, err := json.Marshal(nonNilIDs(briefing.ArticleIDs))
	if err != nil {
		return fmt.Errorf("marshal article ids: %w", err)
	}

	var summary any
	if briefing.Summary != nil {
		raw, err := json.Marshal(briefing.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		summary = string(raw)
	}

	res, err := q.exec(ctx, psql.Insert("briefings").
		Columns("title", "created_at", "topics", "articles", "summary").
		Values(briefing.Title, briefing.CreatedAt.UnixMilli(), string(topics), string(articleIDs), summary))
	if err != nil {
		return fmt.Errorf("insert briefing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	for position, articleID := range briefing.ArticleIDs {
		if _, err := q.exec(ctx, psql.Insert("briefing_articles").
			Columns("briefing_id", "article_id", "position").
			Values(id, articleID, position)); err != nil {
			return fmt.Errorf("link briefing article %d: %w", articleID, err)
		}
	}

	briefing.ID = id
	return nil
}

// AttachSummary sets the structured summary of an existing briefing.
func (q *queries) AttachSummary(ctx context.Context, briefingID int64, summary domain.BriefingSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	res, err := q.exec(ctx, psql.Update("briefings").Set("summary", string(raw)).Where(sq.Eq{"id": briefingID}))
	if err != nil {
		return fmt.Errorf("attach summary: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("briefing %d", briefingID))
}

// GetBriefing loads a briefing by id.
func (q *queries) GetBriefing(ctx context.Context, id int64) (domain.Briefing, error) {
	return q.getBriefing(ctx, psql.Select(briefingColumns...).From("briefings").Where(sq.Eq{"id": id}))
}

// LatestBriefing loads the most recently created briefing.
func (q *queries) LatestBriefing(ctx context.Context) (domain.Briefing, error) {
	return q.getBriefing(ctx, psql.Select(briefingColumns...).From("briefings").OrderBy("created_at DESC", "id DESC").Limit(1))
}

func (q *queries) getBriefing(ctx context.Context, b sq.SelectBuilder) (domain.Briefing, error) {
	row, err := q.queryRow(ctx, b)
	if err != nil {
		return domain.Briefing{}, err
	}

	var (
		briefing  domain.Briefing
		createdAt int64
		topics    string
		articles  string
		summary   sql.NullString
	)
	err = row.Scan(&briefing.ID, &briefing.Title, &createdAt, &topics, &articles, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Briefing{}, fmt.Errorf("briefing: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Briefing{}, fmt.Errorf("scan briefing: %w", err)
	}

	briefing.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(topics), &briefing.Topics); err != nil {
		return domain.Briefing{}, fmt.Errorf("decode briefing topics: %w", err)
	}
	if err := json.Unmarshal([]byte(articles), &briefing.ArticleIDs); err != nil {
		return domain.Briefing{}, fmt.Errorf("decode briefing articles: %w", err)
	}
	if summary.Valid && summary.String != "" {
		var s domain.BriefingSummary
		if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
			return domain.Briefing{}, fmt.Errorf("decode briefing summary: %w", err)
		}
		briefing.Summary = &s
	}
	return briefing, nil
}

// PruneBriefings deletes briefings created before the cutoff together with the articles
// no remaining briefing references. Call it inside a transaction.
func (q *queries) PruneBriefings(ctx context.Context, before time.Time) (int, error) {
	briefingIDs, err := q.int64Column(ctx, psql.Select("id").From("briefings").Where(sq.Lt{"created_at": before.UnixMilli()}))
	if err != nil {
		return 0, fmt.Errorf("select expired briefings: %w", err)
	}
	if len(briefingIDs) == 0 {
		return 0, nil
	}

	articleIDs, err := q.int64Column(ctx, psql.Select("DISTINCT article_id").From("briefing_articles").Where(sq.Eq{"briefing_id": briefingIDs}))
	if err != nil {
		return 0, fmt.Errorf("select expired briefing articles: %w", err)
	}

	if _, err := q.exec(ctx, psql.Delete("briefings").Where(sq.Eq{"id": briefingIDs})); err != nil {
		return 0, fmt.Errorf("delete briefings: %w", err)
	}

	if len(articleIDs) > 0 {
		if _, err := q.exec(ctx, psql.Delete("articles").
			Where(sq.Eq{"id": articleIDs}).
			Where("id NOT IN (SELECT article_id FROM briefing_articles)")); err != nil {
			return 0, fmt.Errorf("delete orphaned articles: %w", err)
		}
	}

	return len(briefingIDs), nil
}

func (q *queries) int64Column(ctx context.Context, b sq.SelectBuilder) ([]int64, error) {
	rows, err := q.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilIDs(values []int64) []int64 {
	if values == nil {
		return []int64{}
	}
	return values
}
