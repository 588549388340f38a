package handler

import (
	"net/http"
	"strconv"

	"github.com/danh/tracktide/internal/metadata"
	"github.com/gin-gonic/gin"
)

// RunsHandler exposes pipeline run history from the metadata store.
type RunsHandler struct {
	store *metadata.Store
}

// NewRunsHandler creates a runs handler over the given store.
func NewRunsHandler(store *metadata.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// ListRuns returns recent run log entries.
// Query parameters: pipeline (optional filter), limit (default 50, max 500).
func (h *RunsHandler) ListRuns(c *gin.Context) {
	pipeline := c.Query("pipeline")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}

	entries, err := h.store.ListRuns(c.Request.Context(), pipeline, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  entries,
		"count": len(entries),
	})
}

// LastRun returns the terminal entry of a pipeline's most recent
// completed run.
func (h *RunsHandler) LastRun(c *gin.Context) {
	pipeline := c.Param("pipeline")

	entry, err := h.store.LastRun(c.Request.Context(), pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query last run"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed runs for pipeline"})
		return
	}

	c.JSON(http.StatusOK, entry)
}
