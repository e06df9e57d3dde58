package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsCurator/internal/domain"
)

var interestColumns = []string{
	"id", "name", "created_at", "last_new_article_at", "discovery_count",
	"avg_discovery_interval_seconds", "last_search_attempt_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterest(row rowScanner) (domain.Interest, error) {
	var (
		interest       domain.Interest
		createdAt      int64
		lastNew        sql.NullInt64
		lastSearchedAt sql.NullInt64
	)
	if err := row.Scan(
		&interest.ID,
		&interest.Name,
		&createdAt,
		&lastNew,
		&interest.DiscoveryCount,
		&interest.AvgDiscoveryIntervalSeconds,
		&lastSearchedAt,
	); err != nil {
		return domain.Interest{}, err
	}
	interest.CreatedAt = time.UnixMilli(createdAt).UTC()
	interest.LastNewArticleAt = fromMillis(lastNew)
	interest.LastSearchAttemptAt = fromMillis(lastSearchedAt)
	return interest, nil
}

// ListInterests returns every interest with its categories, ordered by name.
func (q *queries) ListInterests(ctx context.Context) ([]domain.Interest, error) {
	rows, err := q.query(ctx, psql.Select(interestColumns...).From("interests").OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("query interests: %w", err)
	}
	defer rows.Close()

	var interests []domain.Interest
	for rows.Next() {
		interest, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		interests = append(interests, interest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	categories, err := q.interestCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range interests {
		interests[i].Categories = categories[interests[i].ID]
	}

	return interests, nil
}

func (q *queries) interestCategories(ctx context.Context) (map[int64][]string, error) {
	rows, err := q.query(ctx, psql.
		Select("ic.interest_id", "c.name").
		From("interest_categories ic").
		Join("categories c ON c.id = ic.category_id").
		OrderBy("c.name"))
	if err != nil {
		return nil, fmt.Errorf("query interest categories: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]string)
	for rows.Next() {
		var (
			interestID int64
			name       string
		)
		if err := rows.Scan(&interestID, &name); err != nil {
			return nil, fmt.Errorf("scan interest category: %w", err)
		}
		result[interestID] = append(result[interestID], name)
	}
	return result, rows.Err()
}

// GetInterest loads one interest by name.
func (q *queries) GetInterest(ctx context.Context, name string) (domain.Interest, error) {
	row, err := q.queryRow(ctx, psql.Select(interestColumns...).From("interests").Where(sq.Eq{"name": name}))
	if err != nil {
		return domain.Interest{}, err
	}

	interest, err := scanInterest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Interest{}, fmt.Errorf("interest %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Interest{}, fmt.Errorf("scan interest: %w", err)
	}
	return interest, nil
}

// AddInterest inserts a new interest and links its categories.
func (q *queries) AddInterest(ctx context.Context, name string, categories []string, at time.Time) (domain.Interest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Interest{}, fmt.Errorf("interest name is empty")
	}

	res, err := q.exec(ctx, psql.Insert("interests").
		Columns("name", "created_at").
		Values(name, at.UnixMilli()))
	if isUniqueViolation(err) {
		return domain.Interest{}, fmt.Errorf("interest %q: %w", name, domain.ErrInterestExists)
	}
	if err != nil {
		return domain.Interest{}, fmt.Errorf("insert interest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Interest{}, fmt.Errorf("get last insert id: %w", err)
	}

	interest := domain.Interest{ID: id, Name: name, CreatedAt: time.UnixMilli(at.UnixMilli()).UTC()}
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		if err := q.linkCategory(ctx, id, category); err != nil {
			return domain.Interest{}, err
		}
		interest.Categories = append(interest.Categories, category)
	}

	return interest, nil
}

func (q *queries) linkCategory(ctx context.Context, interestID int64, category string) error {
	if _, err := q.exec(ctx, psql.Insert("categories").
		Columns("name").
		Values(category).
		Suffix("ON CONFLICT(name) DO NOTHING")); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	row, err := q.queryRow(ctx, psql.Select("id").From("categories").Where(sq.Eq{"name": category}))
	if err != nil {
		return err
	}
	var categoryID int64
	if err := row.Scan(&categoryID); err != nil {
		return fmt.Errorf("scan category id: %w", err)
	}

	if _, err := q.exec(ctx, psql.Insert("interest_categories").
		Columns("interest_id", "category_id").
		Values(interestID, categoryID).
		Suffix("ON CONFLICT DO NOTHING")); err != nil {
		return fmt.Errorf("link category: %w", err)
	}
	return nil
}

// RemoveInterest deletes an interest; its category links cascade.
func (q *queries) RemoveInterest(ctx context.Context, name string) error {
	res, err := q.exec(ctx, psql.Delete("interests").Where(sq.Eq{"name": name}))
	if err != nil {
		return fmt.Errorf("delete interest: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("interest %q", name))
}

// StampSearchAttempt records a search attempt for every named interest.
func (q *queries) StampSearchAttempt(ctx context.Context, names []string, at time.Time) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := q.exec(ctx, psql.Update("interests").
		Set("last_search_attempt_at", at.UnixMilli()).
		Where(sq.Eq{"name": names})); err != nil {
		return fmt.Errorf("stamp search attempt: %w", err)
	}
	return nil
}

// UpdateDiscoveryStats overwrites the discovery record of an interest.
func (q *queries) UpdateDiscoveryStats(ctx context.Context, name string, stats domain.DiscoveryStats) error {
	if stats.AvgDiscoveryIntervalSeconds < 0 {
		return fmt.Errorf("negative discovery interval %f for %q", stats.AvgDiscoveryIntervalSeconds, name)
	}

	res, err := q.exec(ctx, psql.Update("interests").
		Set("last_new_article_at", toMillis(stats.LastNewArticleAt)).
		Set("discovery_count", stats.DiscoveryCount).
		Set("avg_discovery_interval_seconds", stats.AvgDiscoveryIntervalSeconds).
		Where(sq.Eq{"name": name}))
	if err != nil {
		return fmt.Errorf("update discovery stats: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("interest %q", name))
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
