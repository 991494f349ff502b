package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/compasshq/compass/internal/model"
	"github.com/compasshq/compass/internal/pkg/dbutil"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

const episodeColumns = `id, podcast_id, guid, title, description, audio_url, published_at,
	transcript, transcript_data, transcript_generated, transcript_generated_at, ctime, mtime`

type EpisodeRepo struct {
	db *sql.DB
}

func NewEpisodeRepo(db *sql.DB) *EpisodeRepo {
	return &EpisodeRepo{db: db}
}

func (r *EpisodeRepo) Create(ctx context.Context, ep *model.Episode) error {
	data := map[string]interface{}{
		"id":           ep.ID,
		"podcast_id":   ep.PodcastID,
		"guid":         ep.GUID,
		"title":        ep.Title,
		"description":  ep.Description,
		"audio_url":    ep.AudioURL,
		"published_at": ep.PublishedAt,
		"ctime":        ep.Ctime,
		"mtime":        ep.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("episodes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *EpisodeRepo) GetByID(ctx context.Context, id string) (*model.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	ep, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func (r *EpisodeRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Episode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id IN (?)`
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	return r.queryEpisodes(ctx, query, args...)
}

func (r *EpisodeRepo) SaveTranscript(ctx context.Context, id string, transcript *model.Transcript, now int64) error {
	blob, err := json.Marshal(transcript)
	if err != nil {
		return err
	}
	const query = `
		UPDATE episodes SET
			transcript = $1,
			transcript_data = $2,
			transcript_generated = TRUE,
			transcript_generated_at = $3,
			mtime = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, transcript.PlainText(), blob, now, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *EpisodeRepo) ListUntranscribed(ctx context.Context, limit int) ([]model.Episode, error) {
	query := `SELECT ` + episodeColumns + `
		FROM episodes
		WHERE transcript_generated = FALSE AND audio_url <> ''
		ORDER BY published_at DESC
		LIMIT $1`
	return r.queryEpisodes(ctx, query, limit)
}

// ListUnindexed returns transcribed episodes whose transcript is newer than
// their last graph indexing run.
func (r *EpisodeRepo) ListUnindexed(ctx context.Context, limit int) ([]model.Episode, error) {
	query := `SELECT ` + episodeColumns + `
		FROM episodes
		WHERE transcript_generated = TRUE AND indexed_at < transcript_generated_at
		ORDER BY transcript_generated_at ASC
		LIMIT $1`
	return r.queryEpisodes(ctx, query, limit)
}

func (r *EpisodeRepo) MarkIndexed(ctx context.Context, id string, now int64) error {
	const query = `UPDATE episodes SET indexed_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, now, id)
	return err
}

func (r *EpisodeRepo) Stats(ctx context.Context) (*model.TranscriptionStats, error) {
	const query = `
		SELECT count(*) AS total,
			count(*) FILTER (WHERE transcript_generated) AS transcribed
		FROM episodes
	`
	row := r.db.QueryRowContext(ctx, query)
	stats := &model.TranscriptionStats{}
	if err := row.Scan(&stats.TotalEpisodes, &stats.Transcribed); err != nil {
		return nil, err
	}
	stats.Pending = stats.TotalEpisodes - stats.Transcribed
	if stats.TotalEpisodes > 0 {
		stats.CompletionRate = float64(stats.Transcribed) / float64(stats.TotalEpisodes)
	}
	return stats, nil
}

func (r *EpisodeRepo) queryEpisodes(ctx context.Context, query string, args ...interface{}) ([]model.Episode, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var episodes []model.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *ep)
	}
	return episodes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEpisode(row rowScanner) (*model.Episode, error) {
	var ep model.Episode
	var blob []byte
	if err := row.Scan(
		&ep.ID, &ep.PodcastID, &ep.GUID, &ep.Title, &ep.Description, &ep.AudioURL, &ep.PublishedAt,
		&ep.Transcript, &blob, &ep.TranscriptGenerated, &ep.TranscriptGeneratedAt, &ep.Ctime, &ep.Mtime,
	); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		var data model.Transcript
		if err := json.Unmarshal(blob, &data); err != nil {
			return nil, err
		}
		ep.TranscriptData = &data
	}
	return &ep, nil
}
