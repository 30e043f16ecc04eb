package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/middleware"
	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/pagination"
	"github.com/sebasr/vitals-service/internal/poller"
	"github.com/sebasr/vitals-service/internal/repository"
)

// Uploader runs acquisition cycles on demand
type Uploader interface {
	Trigger(ctx context.Context, patientID uuid.UUID) poller.Result
	Latest() *models.VitalReading
}

// SessionTracker records which patient the acquisition loop polls for
type SessionTracker interface {
	SetActive(patientID uuid.UUID)
}

// VitalsHandler serves the patient's readings and the manual upload trigger
type VitalsHandler struct {
	pages    *pagination.Registry
	store    repository.VitalsRepository
	uploader Uploader
	sessions SessionTracker
	logger   *zap.Logger
}

// NewVitalsHandler creates a new vitals handler
func NewVitalsHandler(pages *pagination.Registry, store repository.VitalsRepository, uploader Uploader, sessions SessionTracker, logger *zap.Logger) *VitalsHandler {
	return &VitalsHandler{
		pages:    pages,
		store:    store,
		uploader: uploader,
		sessions: sessions,
		logger:   logger,
	}
}

// ReadingResponse is a reading with its position across all pages
type ReadingResponse struct {
	*models.VitalReading
	RowNumber int `json:"rowNumber,omitempty"`
}

// PageResponse represents one page of readings in API responses
type PageResponse struct {
	Readings    []ReadingResponse `json:"readings"`
	HasNext     bool              `json:"hasNext"`
	HasPrev     bool              `json:"hasPrev"`
	PageNumber  int               `json:"pageNumber"`
	PageSize    int               `json:"pageSize"`
	FirstCursor string            `json:"firstCursor,omitempty"`
	LastCursor  string            `json:"lastCursor,omitempty"`
}

// RangeResponse represents one cursor-addressed window of readings
type RangeResponse struct {
	Readings    []*models.VitalReading `json:"readings"`
	FirstCursor string                 `json:"firstCursor,omitempty"`
	LastCursor  string                 `json:"lastCursor,omitempty"`
}

// GetPage returns the next window of the patient's browsing session
// GET /api/v1/vitals?direction=initial|next|prev
func (h *VitalsHandler) GetPage(c *gin.Context) {
	patientID := middleware.MustGetPatientID(c)

	dir, err := pagination.ParseDirection(c.Query("direction"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_direction",
			"message": err.Error(),
		})
		return
	}

	page, err := h.pages.For(patientID).Fetch(c.Request.Context(), dir)
	if err != nil {
		h.writePaginationError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(page))
}

// Refresh discards the browsing session's cursors and returns the first page
// POST /api/v1/vitals/refresh
func (h *VitalsHandler) Refresh(c *gin.Context) {
	patientID := middleware.MustGetPatientID(c)

	page, err := h.pages.For(patientID).Refresh(c.Request.Context())
	if err != nil {
		h.writePaginationError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(page))
}

// GetRange returns the readings adjacent to an opaque cursor
// GET /api/v1/vitals/range?after=<cursor>|before=<cursor>&limit=<n>
func (h *VitalsHandler) GetRange(c *gin.Context) {
	patientID := middleware.MustGetPatientID(c)
	q := models.VitalsQuery{PatientID: patientID}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		q.Limit = limit
	}

	for param, target := range map[string]**models.Cursor{"after": &q.After, "before": &q.Before} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		cursor, err := models.DecodeCursor(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_cursor",
				"message": "Invalid " + param + " cursor",
			})
			return
		}
		*target = &cursor
	}

	readings, err := h.store.Query(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_query",
				"message": "Use at most one of after and before",
			})
			return
		}
		h.logger.Error("range query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "store_unavailable",
			"message": "Readings are temporarily unavailable",
		})
		return
	}

	resp := RangeResponse{Readings: readings}
	if len(readings) > 0 {
		resp.FirstCursor = readings[0].Cursor().Encode()
		resp.LastCursor = readings[len(readings)-1].Cursor().Encode()
	}
	c.JSON(http.StatusOK, resp)
}

// GetLatest returns the patient's most recent reading
// GET /api/v1/vitals/latest
func (h *VitalsHandler) GetLatest(c *gin.Context) {
	patientID := middleware.MustGetPatientID(c)

	if latest := h.uploader.Latest(); latest != nil && latest.PatientID == patientID {
		c.JSON(http.StatusOK, latest)
		return
	}

	readings, err := h.store.Query(c.Request.Context(), models.VitalsQuery{PatientID: patientID, Limit: 1})
	if err != nil {
		h.logger.Error("latest reading query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "store_unavailable",
			"message": "Readings are temporarily unavailable",
		})
		return
	}
	if len(readings) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no_readings",
			"message": "No readings recorded yet",
		})
		return
	}

	c.JSON(http.StatusOK, readings[0])
}

// Upload reads the device now and stores the reading for the authenticated patient.
// The patient becomes the one the background loop polls for.
// POST /api/v1/vitals/upload
func (h *VitalsHandler) Upload(c *gin.Context) {
	patientID := middleware.MustGetPatientID(c)
	h.sessions.SetActive(patientID)

	res := h.uploader.Trigger(c.Request.Context(), patientID)

	switch res.Outcome {
	case poller.OutcomeStored, poller.OutcomeStoredWithoutPrediction:
		if res.Reading == nil || res.Reading.PatientID != patientID {
			h.logger.Error("upload returned a reading for another patient",
				zap.String("patient_id", patientID.String()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to store reading",
			})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"outcome": res.Outcome,
			"reading": res.Reading,
		})
	case poller.OutcomeSkipped:
		c.JSON(http.StatusConflict, gin.H{
			"error":   "upload_in_progress",
			"message": "A reading is already being uploaded",
		})
	case poller.OutcomeDeviceUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "device_unavailable",
			"message": "The sensor device could not be read",
		})
	case poller.OutcomeNoPatient:
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "profile_not_found",
			"message": "No profile is available for this patient",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to store reading",
		})
	}
}

func (h *VitalsHandler) writePaginationError(c *gin.Context, err error) {
	if errors.Is(err, pagination.ErrInvalidDirection) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_direction",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "pagination_unavailable",
		"message": "Readings are temporarily unavailable",
	})
}

func newPageResponse(page *models.Page) PageResponse {
	resp := PageResponse{
		Readings:   make([]ReadingResponse, len(page.Readings)),
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}
	for i, r := range page.Readings {
		resp.Readings[i] = ReadingResponse{VitalReading: r, RowNumber: page.RowNumber(i)}
	}
	if n := len(page.Readings); n > 0 {
		resp.FirstCursor = page.Readings[0].Cursor().Encode()
		resp.LastCursor = page.Readings[n-1].Cursor().Encode()
	}
	return resp
}
