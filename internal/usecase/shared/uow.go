package shared

import (
	"context"
	"time"

	"classbook/internal/domain/booking"
	"classbook/internal/domain/payment"
	"classbook/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Bookings() BookingRepository
	Lessons() LessonRepository
	ClassPasses() ClassPassRepository
	Ledger() LedgerRepository
	Subscriptions() SubscriptionRepository
	Idempotency() IdempotencyRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	LessonByID(ctx context.Context, id uuid.UUID) (*LessonSnapshot, error)
	ClassOptionByID(ctx context.Context, id uuid.UUID) (*ClassOptionSnapshot, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*BookingSnapshot, error)
	LedgerByBookingID(ctx context.Context, bookingID uuid.UUID) (*LedgerSnapshot, error)
	// PassCandidateForUser returns the user's most relevant pass, preferring
	// currently usable ones (soonest-expiring first). NOT_FOUND when the
	// user holds no pass at all.
	PassCandidateForUser(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) (*ClassPassSnapshot, error)
	SubscriptionForPlans(ctx context.Context, userID uuid.UUID, planIDs []uuid.UUID) (*SubscriptionSnapshot, error)
	CountConfirmedForPlanInPeriod(ctx context.Context, userID, planID uuid.UUID, from, to time.Time) (int, error)
	IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
}

// Minimal snapshots for command read operations

type LessonSnapshot struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ClassOptionID   uuid.UUID
	Name            string
	StartsAt        time.Time
	EndsAt          time.Time
	LockOutMinutes  int
	Active          bool
	Capacity        int
	WaitlistEnabled bool
	ConfirmedCount  int
}

// PlanSpec is one membership plan a class option admits, with its
// per-billing-period session limit (0 means unlimited).
type PlanSpec struct {
	PlanID       uuid.UUID
	SessionLimit int
}

type ClassOptionSnapshot struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	Capacity         int
	AllowClassPasses bool
	DropInPriceID    *string
	Plans            []PlanSpec
}

type BookingSnapshot struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	LessonID  uuid.UUID
	Status    booking.Status
	CreatedAt time.Time
}

type LedgerSnapshot struct {
	ID              uuid.UUID
	BookingID       uuid.UUID
	Method          payment.LedgerMethod
	PaymentIntentID *string
	ClassPassID     *uuid.UUID
	CreatedAt       time.Time
}

type ClassPassSnapshot struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	UserID           uuid.UUID
	Quantity         int
	OriginalQuantity int
	ExpiresAt        time.Time
	Status           string
	PriceCents       int64
	PurchasedAt      time.Time
}

type SubscriptionSnapshot struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	UserID             uuid.UUID
	PlanID             uuid.UUID
	Status             string
	ExternalID         string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAt           *time.Time
}

type IdempotencyRecord struct {
	Key              uuid.UUID
	UserID           uuid.UUID
	Status           string
	RequestHash      string
	ResultBookingIDs []uuid.UUID
	ExpiresAt        time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error)
	SetStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, status booking.Status) error
	// OldestWaiting returns the FIFO waitlist candidate for a lesson, locked,
	// ordered by creation time with the booking id as a deterministic
	// tie-break. Returns a NOT_FOUND kind error when no one is waiting.
	OldestWaiting(ctx context.Context, tx db.DBTX, lessonID uuid.UUID) (*BookingSnapshot, error)
	// CancelFutureConfirmedByPlan cancels confirmed bookings for lessons that
	// have not started yet and whose class option admits the given plan.
	CancelFutureConfirmedByPlan(ctx context.Context, tx db.DBTX, userID, planID uuid.UUID, after time.Time) (int64, error)
}

type LessonRepository interface {
	// LockForUpdate takes the lesson row lock that serializes capacity
	// check-and-confirm per lesson.
	LockForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*LessonSnapshot, error)
}

type ClassPassRepository interface {
	// Decrement applies the atomic conditional decrement
	// (UPDATE ... SET quantity = quantity - 1 WHERE quantity > 0) and flips
	// status to used when the last credit is consumed. applied is false when
	// the pass was missing or already at zero.
	Decrement(ctx context.Context, tx db.DBTX, id uuid.UUID) (remaining int, applied bool, err error)
}

type LedgerRepository interface {
	// Record appends the booking transaction; the unique constraint on
	// booking_id rejects duplicates at the storage layer.
	Record(ctx context.Context, tx db.DBTX, bookingID uuid.UUID, method payment.LedgerMethod, paymentIntentID *string, classPassID *uuid.UUID) (uuid.UUID, error)
}

type SubscriptionRepository interface {
	UpsertByExternalID(ctx context.Context, tx db.DBTX, sub *SubscriptionSnapshot) (uuid.UUID, error)
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request. claimed is false when a
	// previous request already holds it.
	TryInsert(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (claimed bool, err error)
	UpdateStatusCompleted(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, resultBookingIDs []uuid.UUID) error
}
