package repo

import (
	"context"
	"database/sql"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

type PodcastRepo struct {
	db *sql.DB
}

func NewPodcastRepo(db *sql.DB) *PodcastRepo {
	return &PodcastRepo{db: db}
}

func (r *PodcastRepo) Upsert(ctx context.Context, p *model.Podcast) error {
	const query = `
		INSERT INTO podcasts (id, title, feed_url, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (feed_url) DO UPDATE SET
			title = EXCLUDED.title,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Title, p.FeedURL, p.Ctime, p.Mtime)
	return err
}

func (r *PodcastRepo) GetByFeedURL(ctx context.Context, feedURL string) (*model.Podcast, error) {
	const query = `SELECT id, title, feed_url, ctime, mtime FROM podcasts WHERE feed_url = $1`
	row := r.db.QueryRowContext(ctx, query, feedURL)
	var p model.Podcast
	if err := row.Scan(&p.ID, &p.Title, &p.FeedURL, &p.Ctime, &p.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PodcastRepo) List(ctx context.Context) ([]model.Podcast, error) {
	const query = `SELECT id, title, feed_url, ctime, mtime FROM podcasts ORDER BY ctime ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var podcasts []model.Podcast
	for rows.Next() {
		var p model.Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.FeedURL, &p.Ctime, &p.Mtime); err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}
