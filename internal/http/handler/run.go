package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/store"
)

// RunHandler exposes read-only run status, mainly for dashboards and for
// humans following the link in an acknowledgement comment.
type RunHandler struct {
	runs store.RunStore
}

func NewRunHandler(runs store.RunStore) *RunHandler {
	return &RunHandler{runs: runs}
}

func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runs.GetByRunID(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) ListRunsByIssue(c *gin.Context) {
	provider := model.ParseProvider(c.Query("provider"))
	issueID := c.Query("issue_id")
	if issueID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issue_id is required"})
		return
	}

	runs, err := h.runs.ListByIssue(c.Request.Context(), provider, issueID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
