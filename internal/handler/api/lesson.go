package api

import (
	"errors"
	"net/http"
	"time"

	resdto "classbook/internal/handler/dto/response"
	"classbook/internal/handler/middleware"
	"classbook/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errInvalidWindow = errors.New("from must be an RFC3339 timestamp before to")

type LessonHandler struct {
	lessonQueries queries.LessonQueries
}

func NewLessonHandler(lessonQueries queries.LessonQueries) *LessonHandler {
	return &LessonHandler{lessonQueries: lessonQueries}
}

func (h *LessonHandler) GetLesson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid lesson ID format",
		})
		return
	}

	viewer, _ := middleware.GetUserID(c)

	view, err := h.lessonQueries.GetAvailability(c.Request.Context(), id, viewer)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Lesson not found",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromLessonView(view))
}

func (h *LessonHandler) ListLessons(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	from, to, err := parseScheduleWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	views, err := h.lessonQueries.ListByTenant(c.Request.Context(), tenantID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.LessonResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromLessonView(v)
	}
	c.JSON(http.StatusOK, response)
}

// parseScheduleWindow reads the optional from/to query params; the default
// window is the coming week.
func parseScheduleWindow(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now
	to := now.AddDate(0, 0, 7)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidWindow
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidWindow
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	return from, to, nil
}
