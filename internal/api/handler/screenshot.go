package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gargarushee/VisualMemorySearch/internal/api/middleware"
	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/service"
)

// JobSnapshotReader reads persisted job snapshots so status polling can
// answer for jobs that predate the current process.
type JobSnapshotReader interface {
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
}

// ScreenshotHandler handles upload, status, listing, and deletion.
type ScreenshotHandler struct {
	ingest    *service.IngestService
	jobs      *service.JobTracker
	library   *service.LibraryService
	snapshots JobSnapshotReader
}

// NewScreenshotHandler creates a new screenshot handler.
// Parameters:
//   - ingest: ingestion service instance.
//   - jobs: in-memory job tracker.
//   - library: record listing/deletion service.
//   - snapshots: persisted job snapshot reader, may be nil.
// Returns:
//   - *ScreenshotHandler: initialized handler.
func NewScreenshotHandler(
	ingest *service.IngestService,
	jobs *service.JobTracker,
	library *service.LibraryService,
	snapshots JobSnapshotReader,
) *ScreenshotHandler {
	return &ScreenshotHandler{
		ingest:    ingest,
		jobs:      jobs,
		library:   library,
		snapshots: snapshots,
	}
}

// Upload handles POST /api/screenshots/upload. Accepts multipart form data
// with one or more files and responds with the id of the job tracking the
// batch.
func (h *ScreenshotHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid multipart form: " + err.Error(),
		})
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No files provided",
		})
		return
	}

	log := middleware.GetLogger(c)

	files := make([]service.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			log.WithError(err).WithField("filename", fh.Filename).
				Warn("failed to open uploaded file")
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.WithError(err).WithField("filename", fh.Filename).
				Warn("failed to read uploaded file")
			continue
		}
		files = append(files, service.UploadFile{Filename: fh.Filename, Data: data})
	}

	jobID, err := h.ingest.StartIngestion(c.Request.Context(), files)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "No readable files in upload",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Upload failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Processing " + strconv.Itoa(len(fileHeaders)) + " screenshots",
		"job_id":  jobID,
	})
}

// Status handles GET /api/screenshots/status/:job_id. The in-memory
// tracker answers for live jobs; persisted snapshots cover jobs from
// before the last restart, possibly with stale progress.
func (h *ScreenshotHandler) Status(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.Get(jobID)
	if err != nil {
		if h.snapshots != nil {
			if snap, snapErr := h.snapshots.GetByID(c.Request.Context(), jobID); snapErr == nil {
				c.JSON(http.StatusOK, jobStatusResponse(*snap))
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	c.JSON(http.StatusOK, jobStatusResponse(job))
}

func jobStatusResponse(job domain.ProcessingJob) gin.H {
	return gin.H{
		"job_id":   job.ID,
		"status":   string(job.Status),
		"progress": job.Progress,
		"total":    job.Total,
	}
}

// List handles GET /api/screenshots with optional limit/offset query
// parameters.
func (h *ScreenshotHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	shots, err := h.library.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list screenshots: " + err.Error(),
		})
		return
	}

	items := make([]gin.H, 0, len(shots))
	for i := range shots {
		items = append(items, h.screenshotView(&shots[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"screenshots": items,
		"count":       len(items),
	})
}

// Get handles GET /api/screenshots/:id.
func (h *ScreenshotHandler) Get(c *gin.Context) {
	shot, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Screenshot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch screenshot: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.screenshotView(shot))
}

// Delete handles DELETE /api/screenshots/:id. Removes the record and its
// backing file.
func (h *ScreenshotHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.library.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Screenshot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete screenshot: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Screenshot deleted",
		"id":      id,
	})
}

func (h *ScreenshotHandler) screenshotView(shot *domain.Screenshot) gin.H {
	return gin.H{
		"id":                 shot.ID,
		"filename":           shot.Filename,
		"preview_url":        h.library.PreviewURL(shot),
		"processed":          shot.Processed,
		"ocr_text":           shot.OCRText,
		"visual_description": shot.VisualDescription,
		"degraded_stages":    shot.DegradedStages,
		"file_size":          shot.FileSize,
		"width":              shot.Width,
		"height":             shot.Height,
		"uploaded_at":        shot.UploadedAt,
	}
}
