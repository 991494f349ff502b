package model

type Podcast struct {
	ID      string `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	FeedURL string `json:"feed_url" db:"feed_url"`
	Ctime   int64  `json:"ctime" db:"ctime"`
	Mtime   int64  `json:"mtime" db:"mtime"`
}

type Episode struct {
	ID                    string      `json:"id" db:"id"`
	PodcastID             string      `json:"podcast_id" db:"podcast_id"`
	GUID                  string      `json:"guid" db:"guid"`
	Title                 string      `json:"title" db:"title"`
	Description           string      `json:"description" db:"description"`
	AudioURL              string      `json:"audio_url" db:"audio_url"`
	PublishedAt           int64       `json:"published_at" db:"published_at"`
	Transcript            string      `json:"transcript" db:"transcript"`
	TranscriptData        *Transcript `json:"transcript_data" db:"-"`
	TranscriptGenerated   bool        `json:"transcript_generated" db:"transcript_generated"`
	TranscriptGeneratedAt int64       `json:"transcript_generated_at" db:"transcript_generated_at"`
	Ctime                 int64       `json:"ctime" db:"ctime"`
	Mtime                 int64       `json:"mtime" db:"mtime"`
}

type TranscriptionStats struct {
	TotalEpisodes  int64   `json:"total_episodes"`
	Transcribed    int64   `json:"transcribed"`
	Pending        int64   `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}
