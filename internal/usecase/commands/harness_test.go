//go:build unit

package commands_test

import (
	"context"
	"time"

	"classbook/internal/domain/booking"
	"classbook/internal/domain/payment"
	"classbook/internal/infra"
	"classbook/internal/infra/db"
	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the repositories the command flows
// touch. Every fake below reads and writes these maps so a test can assert
// the state the transaction would have committed.
type memStore struct {
	bookings      map[uuid.UUID]*shared.BookingSnapshot
	lessons       map[uuid.UUID]*shared.LessonSnapshot
	ledgers       map[uuid.UUID]*shared.LedgerSnapshot
	passes        map[uuid.UUID]*shared.ClassPassSnapshot
	options       map[uuid.UUID]*shared.ClassOptionSnapshot
	subscriptions map[uuid.UUID]*shared.SubscriptionSnapshot
	idemRecords   map[uuid.UUID]*shared.IdempotencyRecord
}

func newMemStore() *memStore {
	return &memStore{
		bookings:      map[uuid.UUID]*shared.BookingSnapshot{},
		lessons:       map[uuid.UUID]*shared.LessonSnapshot{},
		ledgers:       map[uuid.UUID]*shared.LedgerSnapshot{},
		passes:        map[uuid.UUID]*shared.ClassPassSnapshot{},
		options:       map[uuid.UUID]*shared.ClassOptionSnapshot{},
		subscriptions: map[uuid.UUID]*shared.SubscriptionSnapshot{},
		idemRecords:   map[uuid.UUID]*shared.IdempotencyRecord{},
	}
}

type memReads struct{ s *memStore }

func (r *memReads) LessonByID(_ context.Context, id uuid.UUID) (*shared.LessonSnapshot, error) {
	l, ok := r.s.lessons[id]
	if !ok {
		return nil, notFound("lesson")
	}
	return l, nil
}

func (r *memReads) ClassOptionByID(_ context.Context, id uuid.UUID) (*shared.ClassOptionSnapshot, error) {
	o, ok := r.s.options[id]
	if !ok {
		return nil, notFound("class option")
	}
	return o, nil
}

func (r *memReads) BookingByID(_ context.Context, id uuid.UUID) (*shared.BookingSnapshot, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFound("booking")
	}
	cp := *b
	return &cp, nil
}

func (r *memReads) LedgerByBookingID(_ context.Context, bookingID uuid.UUID) (*shared.LedgerSnapshot, error) {
	l, ok := r.s.ledgers[bookingID]
	if !ok {
		return nil, notFound("booking transaction")
	}
	return l, nil
}

func (r *memReads) PassCandidateForUser(_ context.Context, tenantID, userID uuid.UUID, at time.Time) (*shared.ClassPassSnapshot, error) {
	var candidate *shared.ClassPassSnapshot
	usable := func(p *shared.ClassPassSnapshot) bool {
		return p.Status == "active" && p.Quantity > 0 && at.Before(p.ExpiresAt)
	}
	for _, p := range r.s.passes {
		if p.TenantID != tenantID || p.UserID != userID {
			continue
		}
		switch {
		case candidate == nil:
			candidate = p
		case usable(p) && !usable(candidate):
			candidate = p
		case usable(p) == usable(candidate) && p.ExpiresAt.Before(candidate.ExpiresAt):
			candidate = p
		}
	}
	if candidate == nil {
		return nil, notFound("class pass")
	}
	cp := *candidate
	return &cp, nil
}

func (r *memReads) SubscriptionForPlans(_ context.Context, userID uuid.UUID, planIDs []uuid.UUID) (*shared.SubscriptionSnapshot, error) {
	for _, sub := range r.s.subscriptions {
		if sub.UserID != userID {
			continue
		}
		for _, planID := range planIDs {
			if sub.PlanID == planID {
				cp := *sub
				return &cp, nil
			}
		}
	}
	return nil, notFound("subscription")
}

func (r *memReads) CountConfirmedForPlanInPeriod(context.Context, uuid.UUID, uuid.UUID, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (r *memReads) IdempotencyByKey(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.s.idemRecords[key]
	if !ok || rec.UserID != userID {
		return nil, notFound("idempotency key")
	}
	cp := *rec
	return &cp, nil
}

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(_ context.Context, _ db.DBTX, b *booking.Booking) (uuid.UUID, error) {
	r.s.bookings[b.ID()] = &shared.BookingSnapshot{
		ID: b.ID(), TenantID: b.TenantID(), UserID: b.UserID(),
		LessonID: b.LessonID(), Status: b.Status(), CreatedAt: b.CreatedAt(),
	}
	return b.ID(), nil
}

func (r *memBookingRepo) SetStatus(_ context.Context, _ db.DBTX, id uuid.UUID, status booking.Status) error {
	b, ok := r.s.bookings[id]
	if !ok {
		return notFound("booking")
	}
	prev := b.Status
	b.Status = status
	if l, ok := r.s.lessons[b.LessonID]; ok {
		if status == booking.StatusConfirmed && prev != booking.StatusConfirmed {
			l.ConfirmedCount++
		}
		if prev == booking.StatusConfirmed && status != booking.StatusConfirmed {
			l.ConfirmedCount--
		}
	}
	return nil
}

func (r *memBookingRepo) OldestWaiting(_ context.Context, _ db.DBTX, lessonID uuid.UUID) (*shared.BookingSnapshot, error) {
	var oldest *shared.BookingSnapshot
	for _, b := range r.s.bookings {
		if b.LessonID != lessonID || b.Status != booking.StatusWaiting {
			continue
		}
		if oldest == nil || b.CreatedAt.Before(oldest.CreatedAt) {
			cp := *b
			oldest = &cp
		}
	}
	if oldest == nil {
		return nil, notFound("waiting booking")
	}
	return oldest, nil
}

func (r *memBookingRepo) CancelFutureConfirmedByPlan(context.Context, db.DBTX, uuid.UUID, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

type memLessonRepo struct{ s *memStore }

func (r *memLessonRepo) LockForUpdate(_ context.Context, _ db.DBTX, id uuid.UUID) (*shared.LessonSnapshot, error) {
	l, ok := r.s.lessons[id]
	if !ok {
		return nil, notFound("lesson")
	}
	cp := *l
	return &cp, nil
}

type memClassPassRepo struct{ s *memStore }

func (r *memClassPassRepo) Decrement(_ context.Context, _ db.DBTX, id uuid.UUID) (int, bool, error) {
	p, ok := r.s.passes[id]
	if !ok || p.Quantity <= 0 {
		return 0, false, nil
	}
	p.Quantity--
	if p.Quantity == 0 {
		p.Status = "used"
	}
	return p.Quantity, true, nil
}

type memLedgerRepo struct{ s *memStore }

func (r *memLedgerRepo) Record(_ context.Context, _ db.DBTX, bookingID uuid.UUID, method payment.LedgerMethod, paymentIntentID *string, classPassID *uuid.UUID) (uuid.UUID, error) {
	if _, exists := r.s.ledgers[bookingID]; exists {
		return uuid.Nil, infra.WrapRepoErr("booking transaction exists", nil, infra.KindDuplicateKey)
	}
	id := uuid.New()
	r.s.ledgers[bookingID] = &shared.LedgerSnapshot{
		ID: id, BookingID: bookingID, Method: method,
		PaymentIntentID: paymentIntentID, ClassPassID: classPassID,
		CreatedAt: time.Now(),
	}
	return id, nil
}

type memSubscriptionRepo struct{ s *memStore }

func (r *memSubscriptionRepo) UpsertByExternalID(_ context.Context, _ db.DBTX, sub *shared.SubscriptionSnapshot) (uuid.UUID, error) {
	for _, existing := range r.s.subscriptions {
		if existing.ExternalID == sub.ExternalID {
			sub.ID = existing.ID
			cp := *sub
			r.s.subscriptions[existing.ID] = &cp
			return existing.ID, nil
		}
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	cp := *sub
	r.s.subscriptions[sub.ID] = &cp
	return sub.ID, nil
}

type memIdempotencyRepo struct{ s *memStore }

func (r *memIdempotencyRepo) TryInsert(_ context.Context, _ db.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	if _, exists := r.s.idemRecords[key]; exists {
		return false, nil
	}
	r.s.idemRecords[key] = &shared.IdempotencyRecord{
		Key: key, UserID: userID, Status: "processing",
		RequestHash: requestHash, ExpiresAt: expiresAt,
	}
	return true, nil
}

func (r *memIdempotencyRepo) UpdateStatusCompleted(_ context.Context, _ db.DBTX, key, userID uuid.UUID, resultBookingIDs []uuid.UUID) error {
	rec, ok := r.s.idemRecords[key]
	if !ok || rec.UserID != userID {
		return notFound("idempotency key")
	}
	rec.Status = "completed"
	rec.ResultBookingIDs = resultBookingIDs
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) Bookings() shared.BookingRepository           { return &memBookingRepo{s: t.s} }
func (t *memTx) Lessons() shared.LessonRepository             { return &memLessonRepo{s: t.s} }
func (t *memTx) ClassPasses() shared.ClassPassRepository      { return &memClassPassRepo{s: t.s} }
func (t *memTx) Ledger() shared.LedgerRepository              { return &memLedgerRepo{s: t.s} }
func (t *memTx) Subscriptions() shared.SubscriptionRepository { return &memSubscriptionRepo{s: t.s} }
func (t *memTx) Idempotency() shared.IdempotencyRepository    { return &memIdempotencyRepo{s: t.s} }
func (t *memTx) Reads() shared.CommandReads                   { return &memReads{s: t.s} }
func (t *memTx) DB() db.DBTX                                  { return nil }

type memUoW struct{ s *memStore }

func (u *memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &memTx{s: u.s})
}

func (u *memUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (u *memUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (u *memUoW) CommandReads() shared.CommandReads { return &memReads{s: u.s} }

// memViewReader projects stored booking snapshots into the views the booking
// command hands back.
type memViewReader struct{ s *memStore }

func (v *memViewReader) FindViewsByIDs(_ context.Context, ids []uuid.UUID) ([]*queries.BookingView, error) {
	views := make([]*queries.BookingView, 0, len(ids))
	for _, id := range ids {
		b, ok := v.s.bookings[id]
		if !ok {
			continue
		}
		view := &queries.BookingView{
			ID: b.ID, TenantID: b.TenantID, UserID: b.UserID,
			LessonID: b.LessonID, Status: string(b.Status),
			CreatedAt: b.CreatedAt, UpdatedAt: b.CreatedAt,
		}
		if l, ok := v.s.lessons[b.LessonID]; ok {
			view.LessonName = l.Name
			view.LessonStartsAt = l.StartsAt
		}
		views = append(views, view)
	}
	return views, nil
}

// fakeGateway records intent requests and returns a canned client secret.
type fakeGateway struct {
	requests []commands.DropInIntentRequest
	err      error
}

func (g *fakeGateway) CreateDropInIntent(_ context.Context, req commands.DropInIntentRequest) (*commands.DropInIntent, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &commands.DropInIntent{
		ID:           "pi_test_intent",
		ClientSecret: "pi_test_intent_secret",
		AmountCents:  3500 * int64(req.Quantity),
		Currency:     "usd",
	}, nil
}
