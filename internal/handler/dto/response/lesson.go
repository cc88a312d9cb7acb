package response

import (
	"time"

	"classbook/internal/usecase/queries"

	"github.com/google/uuid"
)

type LessonResponse struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenantId"`
	ClassOptionID   uuid.UUID `json:"classOptionId"`
	Name            string    `json:"name"`
	StartsAt        time.Time `json:"startsAt"`
	EndsAt          time.Time `json:"endsAt"`
	Active          bool      `json:"active"`
	Capacity        int       `json:"capacity"`
	ConfirmedCount  int       `json:"confirmedCount"`
	Remaining       int       `json:"remaining"`
	WaitlistEnabled bool      `json:"waitlistEnabled"`
	Action          string    `json:"action,omitempty"`
}

func FromLessonView(rm *queries.LessonView) *LessonResponse {
	return &LessonResponse{
		ID:              rm.ID,
		TenantID:        rm.TenantID,
		ClassOptionID:   rm.ClassOptionID,
		Name:            rm.Name,
		StartsAt:        rm.StartsAt,
		EndsAt:          rm.EndsAt,
		Active:          rm.Active,
		Capacity:        rm.Capacity,
		ConfirmedCount:  rm.ConfirmedCount,
		Remaining:       rm.Remaining,
		WaitlistEnabled: rm.WaitlistEnabled,
		Action:          rm.Action,
	}
}
