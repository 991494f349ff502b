package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/pkg/errcode"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
	"github.com/compasshq/compass/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrNoAudio):
		response.Error(c, errcode.ErrInvalid, "episode has no audio")
	case errors.Is(err, appErr.ErrDownloadFailed):
		response.Error(c, errcode.ErrDownloadFailed, "audio download failed")
	case errors.Is(err, appErr.ErrTranscribeFailed):
		response.Error(c, errcode.ErrTranscribeFailed, "transcription failed")
	case errors.Is(err, appErr.ErrUnavailable):
		response.Error(c, errcode.ErrGraphUnavailable, "backend unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
