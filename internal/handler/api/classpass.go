package api

import (
	"net/http"

	resdto "classbook/internal/handler/dto/response"
	"classbook/internal/handler/middleware"
	"classbook/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type ClassPassHandler struct {
	classPassQueries queries.ClassPassQueries
}

func NewClassPassHandler(classPassQueries queries.ClassPassQueries) *ClassPassHandler {
	return &ClassPassHandler{classPassQueries: classPassQueries}
}

func (h *ClassPassHandler) GetUserClassPasses(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	views, err := h.classPassQueries.ListByUser(c.Request.Context(), tenantID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.ClassPassResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromClassPassView(v)
	}
	c.JSON(http.StatusOK, response)
}
