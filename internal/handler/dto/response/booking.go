package response

import (
	"time"

	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingResponse struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenantId"`
	UserID         uuid.UUID `json:"userId"`
	LessonID       uuid.UUID `json:"lessonId"`
	LessonName     string    `json:"lessonName"`
	LessonStartsAt time.Time `json:"lessonStartsAt"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateBookingResponse struct {
	Bookings      []*BookingResponse `json:"bookings"`
	PaymentMethod string             `json:"paymentMethod"`
	Confirmed     bool               `json:"confirmed"`
	Waitlisted    bool               `json:"waitlisted"`
	// ClientSecret is present only when the drop-in path requires the client
	// to complete payment.
	ClientSecret    string `json:"clientSecret,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	Replayed        bool   `json:"replayed,omitempty"`
}

type CancelBookingResponse struct {
	BookingID              uuid.UUID  `json:"bookingId"`
	Status                 string     `json:"status"`
	PromotedBookingID      *uuid.UUID `json:"promotedBookingId,omitempty"`
	PromotionAwaitsPayment bool       `json:"promotionAwaitsPayment,omitempty"`
}

func FromBookingView(rm *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:             rm.ID,
		TenantID:       rm.TenantID,
		UserID:         rm.UserID,
		LessonID:       rm.LessonID,
		LessonName:     rm.LessonName,
		LessonStartsAt: rm.LessonStartsAt,
		Status:         rm.Status,
		CreatedAt:      rm.CreatedAt,
		UpdatedAt:      rm.UpdatedAt,
	}
}

func FromRequestBookingResult(result *commands.RequestBookingResult) *CreateBookingResponse {
	bookings := make([]*BookingResponse, len(result.Bookings))
	for i, b := range result.Bookings {
		bookings[i] = FromBookingView(b)
	}
	return &CreateBookingResponse{
		Bookings:        bookings,
		PaymentMethod:   string(result.Method),
		Confirmed:       result.Confirmed,
		Waitlisted:      result.Waitlisted,
		ClientSecret:    result.ClientSecret,
		PaymentIntentID: result.PaymentIntentID,
		Replayed:        result.IsReplayed,
	}
}
