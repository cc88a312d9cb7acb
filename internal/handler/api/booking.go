package api

import (
	"errors"
	"net/http"

	reqdto "classbook/internal/handler/dto/request"
	resdto "classbook/internal/handler/dto/response"
	"classbook/internal/handler/middleware"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingCommands commands.BookingCommands
	settlement      commands.SettlementCommands
	bookingQueries  queries.BookingQueries
}

func NewBookingHandler(
	bookingCommands commands.BookingCommands,
	settlement commands.SettlementCommands,
	bookingQueries queries.BookingQueries,
) *BookingHandler {
	return &BookingHandler{
		bookingCommands: bookingCommands,
		settlement:      settlement,
		bookingQueries:  bookingQueries,
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
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

	idempotencyKey, err := getIdempotencyKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	params := commands.RequestBookingParams{
		TenantID: tenantID,
		UserID:   userID,
		LessonID: req.LessonID,
		Quantity: req.EffectiveQuantity(),
	}

	result, err := h.bookingCommands.RequestBooking(c.Request.Context(), params, idempotencyKey)
	if err != nil {
		// errs.Is rather than errors.Is: use case errors carry the sentinel
		// as a mark, which stdlib matching cannot see.
		var ineligible *commands.PaymentIneligibleError
		switch {
		case errs.Is(err, commands.ErrLessonNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lesson not found",
			})
		case errs.Is(err, commands.ErrLessonClosed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Lesson is closed for booking",
			})
		case errs.Is(err, commands.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid booking quantity",
			})
		case errs.Is(err, commands.ErrCapacityExceeded):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Not enough remaining capacity",
			})
		case errs.Is(err, commands.ErrDuplicateRequest):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Duplicate booking request with different parameters",
			})
		case errs.Is(err, commands.ErrIdempotencyInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking request is currently being processed",
			})
		case errors.As(err, &ineligible):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "No eligible payment method",
				"reason": string(ineligible.Reason),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromRequestBookingResult(result))
}

func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	result, err := h.settlement.ConfirmBooking(c.Request.Context(), tenantID, id)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errs.Is(err, commands.ErrBookingCancelled):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking is cancelled",
			})
		case errs.Is(err, commands.ErrCapacityExceeded):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Lesson is at capacity",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookingId":        result.BookingID,
		"status":           "confirmed",
		"alreadyConfirmed": result.AlreadyConfirmed,
	})
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor, ok := requestActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	result, err := h.bookingCommands.CancelBooking(c.Request.Context(), id, actor)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errs.Is(err, commands.ErrBookingCancelled):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking is already cancelled",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, &resdto.CancelBookingResponse{
		BookingID:              result.BookingID,
		Status:                 "cancelled",
		PromotedBookingID:      result.PromotedBookingID,
		PromotionAwaitsPayment: result.PromotionAwaitsPayment,
	})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := requestActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	view, err := h.bookingQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Booking not found",
		})
		return
	}

	// Out-of-scope bookings read as missing so existence does not leak
	// across tenants or users.
	if view.TenantID != actor.TenantID || (view.UserID != actor.UserID && !actor.Staff) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Booking not found",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	views, err := h.bookingQueries.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.BookingResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromBookingView(v)
	}
	c.JSON(http.StatusOK, response)
}

func requestActor(c *gin.Context) (commands.Actor, bool) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		return commands.Actor{}, false
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return commands.Actor{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return commands.Actor{
		TenantID: tenantID,
		UserID:   userID,
		Staff:    middleware.HasMinimumRole(role, middleware.RoleStaff),
	}, true
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, errors.New("idempotency key required")
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid idempotency key format")
	}

	return key, nil
}
