package payment

import (
	"github.com/google/uuid"
)

// Kind is the closed set of settlement paths a booking can take.
type Kind string

const (
	KindClassPass    Kind = "class_pass"
	KindSubscription Kind = "subscription"
	KindDropIn       Kind = "drop_in"
	KindNone         Kind = "none"
)

// LedgerMethod is the payment method recorded on a booking transaction.
// Only stripe-settled and class-pass-settled bookings get a ledger entry.
type LedgerMethod string

const (
	LedgerMethodStripe    LedgerMethod = "stripe"
	LedgerMethodClassPass LedgerMethod = "class_pass"
)

func (m LedgerMethod) IsValid() bool {
	return m == LedgerMethodStripe || m == LedgerMethodClassPass
}

// Method is a tagged variant: exactly one settlement path with its reference.
type Method struct {
	kind           Kind
	classPassID    uuid.UUID
	subscriptionID uuid.UUID
	planID         uuid.UUID
	dropInPriceID  string
}

func ClassPassMethod(passID uuid.UUID) Method {
	return Method{kind: KindClassPass, classPassID: passID}
}

func SubscriptionMethod(subscriptionID, planID uuid.UUID) Method {
	return Method{kind: KindSubscription, subscriptionID: subscriptionID, planID: planID}
}

func DropInMethod(priceID string) Method {
	return Method{kind: KindDropIn, dropInPriceID: priceID}
}

func NoneMethod() Method {
	return Method{kind: KindNone}
}

func (m Method) Kind() Kind { return m.kind }

func (m Method) ClassPassID() uuid.UUID    { return m.classPassID }
func (m Method) SubscriptionID() uuid.UUID { return m.subscriptionID }
func (m Method) PlanID() uuid.UUID         { return m.planID }
func (m Method) DropInPriceID() string     { return m.dropInPriceID }

// RequiresExternalPayment reports whether settlement waits on a payment
// provider signal rather than confirming immediately.
func (m Method) RequiresExternalPayment() bool {
	return m.kind == KindDropIn
}

// Reason explains why no settlement path was eligible. These surface
// directly to the UI, so each one names the specific obstacle.
type Reason string

const (
	ReasonPassExpired           Reason = "pass expired"
	ReasonPassExhausted         Reason = "pass has no remaining credits"
	ReasonPassNotUsable         Reason = "pass is not usable"
	ReasonSubscriptionNotActive Reason = "subscription not active"
	ReasonSessionLimitReached   Reason = "session limit reached"
	ReasonNoEligibleMethod      Reason = "no eligible payment method"
)

// Eligibility is the resolver's structured result: a valid settlement method
// or a specific reason it could not find one.
type Eligibility struct {
	Valid  bool
	Method Method
	Reason Reason
}

func Eligible(m Method) Eligibility {
	return Eligibility{Valid: true, Method: m}
}

func Ineligible(reason Reason) Eligibility {
	return Eligibility{Valid: false, Method: NoneMethod(), Reason: reason}
}
