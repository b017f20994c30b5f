package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/tasks"
)

// NewHandler wires the HTTP handlers. metrics may be nil to leave /metrics unrouted.
func NewHandler(configCache *feed.ConfigCache, recordRepo database.RecordRepository,
	generator GeneratorInterface, scheduler tasks.TaskSchedulerInterface, metrics http.Handler) *Handler {
	return &Handler{
		recordRepo:  recordRepo,
		generator:   generator,
		configCache: configCache,
		scheduler:   scheduler,
		metrics:     metrics,
	}
}

func (h *Handler) GetLatestFeed(c *gin.Context) {
	batch, err := tasks.LatestNormalizedBatch(h.recordRepo, h.configCache.Rules())
	if err != nil {
		slog.Error("Database error", "operation", "latest_batch", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	var (
		extractionDate time.Time
		records        []feed.Record
	)
	if batch != nil {
		extractionDate = batch.ExtractionDate
		records = tasks.CompleteRecords(batch.Records)
	}

	rss, err := h.generator.Run(extractionDate, records)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	if batch != nil {
		c.Header("X-Batch-ID", batch.ID)
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if batchCount, err := h.recordRepo.BatchCount(); err == nil {
		health["batches"] = batchCount
	}
	if recordCount, err := h.recordRepo.RecordCount(); err == nil {
		health["records"] = recordCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()
	if h.scheduler != nil {
		health["run_in_progress"] = h.scheduler.IsRunning()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))
	for _, feedConfig := range configs {
		feeds = append(feeds, map[string]interface{}{
			"name":         feedConfig.Name,
			"url":          feedConfig.URL,
			"enabled":      feedConfig.Settings.IsEnabled(),
			"timeout":      feedConfig.Settings.GetTimeout().String(),
			"content_mode": string(feedConfig.Settings.ContentMode),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetLatestBatch(c *gin.Context) {
	batch, err := tasks.LatestNormalizedBatch(h.recordRepo, h.configCache.Rules())
	if err != nil {
		slog.Error("Database error", "operation", "latest_batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No batch stored yet"})
		return
	}

	records := make([]recordResponse, 0, len(batch.Records))
	for _, record := range batch.Records {
		records = append(records, toRecordResponse(record))
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":        batch.ID,
		"extraction_date": batch.ExtractionDate.Format(database.ExtractionDateLayout),
		"records":         records,
		"total":           len(records),
	})
}

// APIGetLatestContent returns the cleaned, non-empty contents of the latest
// batch with their URLs at matching indexes.
func (h *Handler) APIGetLatestContent(c *gin.Context) {
	batch, err := tasks.LatestNormalizedBatch(h.recordRepo, h.configCache.Rules())
	if err != nil {
		slog.Error("Database error", "operation", "latest_batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No batch stored yet"})
		return
	}

	complete := tasks.CompleteRecords(batch.Records)
	urls := make([]string, 0, len(complete))
	contents := make([]string, 0, len(complete))
	for _, record := range complete {
		urls = append(urls, record.URL)
		contents = append(contents, record.CleanedContent)
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id": batch.ID,
		"urls":     urls,
		"contents": contents,
		"total":    len(contents),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	err := h.scheduler.Trigger()
	if errors.Is(err, tasks.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}
	if err != nil {
		slog.Error("Error triggering run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to trigger run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Run started",
	})
}

func (h *Handler) APIReloadConfig(c *gin.Context) {
	if err := h.configCache.Reload(); err != nil {
		slog.Error("Error reloading configuration", "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded",
		"feeds":   h.configCache.GetConfigCount(),
	})
}
