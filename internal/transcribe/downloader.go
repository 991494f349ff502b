package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Downloader fetches episode audio to local disk. The returned cleanup must
// be called on every exit path; it removes the temporary file.
type Downloader interface {
	Download(ctx context.Context, url string) (path string, cleanup func(), err error)
}

type HTTPDownloader struct {
	client *http.Client
	dir    string
}

func NewHTTPDownloader(dir string, timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{Timeout: timeout},
		dir:    dir,
	}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status %d fetching audio", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dir, "episode-*.audio")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
