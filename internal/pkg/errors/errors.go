package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalid          = errors.New("invalid")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal")
	ErrUnavailable      = errors.New("dependency unavailable")
	ErrNoAudio          = errors.New("episode has no audio url")
	ErrDownloadFailed   = errors.New("audio download failed")
	ErrTranscribeFailed = errors.New("transcription failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
