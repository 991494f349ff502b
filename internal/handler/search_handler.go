package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass/internal/pkg/errcode"
	"github.com/compasshq/compass/internal/pkg/response"
	"github.com/compasshq/compass/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req service.SearchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	out, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, out)
}
