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

var articleColumns = []string{
	"id", "url", "title", "description", "source", "published_at", "thumbnail_url", "fetched_at",
	"cluster_id", "significance_score", "personalization_score", "interest_score",
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		article     domain.Article
		publishedAt sql.NullInt64
		fetchedAt   int64
	)
	if err := row.Scan(
		&article.ID,
		&article.URL,
		&article.Title,
		&article.Description,
		&article.Source,
		&publishedAt,
		&article.ThumbnailURL,
		&fetchedAt,
		&article.ClusterID,
		&article.SignificanceScore,
		&article.PersonalizationScore,
		&article.InterestScore,
	); err != nil {
		return domain.Article{}, err
	}
	article.PublishedAt = fromMillis(publishedAt)
	article.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	return article, nil
}

// ArticleExists reports whether an article with the URL is already stored.
func (q *queries) ArticleExists(ctx context.Context, url string) (bool, error) {
	row, err := q.queryRow(ctx, psql.Select("1").From("articles").Where(sq.Eq{"url": url}).Limit(1))
	if err != nil {
		return false, err
	}

	var one int
	switch err := row.Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check article url: %w", err)
	}
	return true, nil
}

// InsertArticle stores a new article and sets its ID.
func (q *queries) InsertArticle(ctx context.Context, article *domain.Article) error {
	if article.URL == "" {
		return fmt.Errorf("insert article: url is empty")
	}

	res, err := q.exec(ctx, psql.Insert("articles").
		Columns(
			"url", "title", "description", "source", "published_at", "thumbnail_url", "fetched_at",
			"cluster_id", "significance_score", "personalization_score", "interest_score",
		).
		Values(
			article.URL,
			article.Title,
			article.Description,
			article.Source,
			toMillis(article.PublishedAt),
			article.ThumbnailURL,
			article.FetchedAt.UnixMilli(),
			article.ClusterID,
			article.SignificanceScore,
			article.PersonalizationScore,
			article.InterestScore,
		))
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	article.ID = id
	return nil
}

// GetArticle loads one article by id.
func (q *queries) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	row, err := q.queryRow(ctx, psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Article{}, err
	}

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}
	return article, nil
}

// ArticlesByIDs loads articles in the order of ids, silently dropping unknown ids.
func (q *queries) ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := q.query(ctx, psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.Article, len(ids))
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		byID[article.ID] = article
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	articles := make([]domain.Article, 0, len(byID))
	for _, id := range ids {
		if article, ok := byID[id]; ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// UpdateArticleCluster records the clusterer's verdict for an article.
func (q *queries) UpdateArticleCluster(ctx context.Context, id int64, clusterID string, significance float64) error {
	res, err := q.exec(ctx, psql.Update("articles").
		Set("cluster_id", clusterID).
		Set("significance_score", significance).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update article cluster: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("article %d", id))
}

// UpdateArticleScores persists the ranker's three scores.
func (q *queries) UpdateArticleScores(ctx context.Context, id int64, scores domain.Scores) error {
	res, err := q.exec(ctx, psql.Update("articles").
		Set("significance_score", scores.Significance).
		Set("personalization_score", scores.Personalization).
		Set("interest_score", scores.Interest).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update article scores: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("article %d", id))
}
