package domain

// IntentStatus is the lifecycle of a single payment attempt.
type IntentStatus string

const (
	IntentCreated          IntentStatus = "CREATED"
	IntentProviderAccepted IntentStatus = "PROVIDER_ACCEPTED"
	IntentSucceeded        IntentStatus = "SUCCEEDED"
	IntentFailed           IntentStatus = "FAILED"
	IntentExpired          IntentStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentSucceeded, IntentFailed, IntentExpired:
		return true
	}
	return false
}

// CanTransition is the intent state machine: CREATED -> PROVIDER_ACCEPTED ->
// {SUCCEEDED, FAILED}, with EXPIRED reachable from both non-terminal states.
// Transitions are monotonic; nothing leaves a terminal state.
func CanTransition(from, to IntentStatus) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case IntentCreated:
		return to == IntentProviderAccepted || to == IntentSucceeded || to == IntentFailed || to == IntentExpired
	case IntentProviderAccepted:
		return to == IntentSucceeded || to == IntentFailed || to == IntentExpired
	}
	return false
}

// OwnerKind is the closed set of business entities a payment can activate.
// Adding a kind means extending every exhaustive switch over All().
type OwnerKind string

const (
	OwnerMembership        OwnerKind = "membership"
	OwnerDonation          OwnerKind = "donation"
	OwnerOrder             OwnerKind = "order"
	OwnerEventRegistration OwnerKind = "event_registration"
)

func AllOwnerKinds() []OwnerKind {
	return []OwnerKind{OwnerMembership, OwnerDonation, OwnerOrder, OwnerEventRegistration}
}

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerMembership, OwnerDonation, OwnerOrder, OwnerEventRegistration:
		return true
	}
	return false
}

// PaymentStatus is carried by the owning entity, driven by its intent.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Outcome is what a provider signal resolves to.
type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

const (
	ProviderCard  = "card"
	ProviderMpesa = "mpesa"
)
