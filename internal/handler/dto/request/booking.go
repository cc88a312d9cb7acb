package request

import (
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	LessonID uuid.UUID `json:"lessonId" binding:"required"`
	Quantity int       `json:"quantity" binding:"omitempty,min=1,max=10"`
}

// EffectiveQuantity treats an omitted quantity as a single slot.
func (r CreateBookingRequest) EffectiveQuantity() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}
