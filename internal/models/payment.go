package models

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

type PaymentOutcomeStatus string

const (
	OutcomePending   PaymentOutcomeStatus = "pending"
	OutcomeCompleted PaymentOutcomeStatus = "completed"
	OutcomeFailed    PaymentOutcomeStatus = "failed"
)

// PaymentOutcome is the normalized result of a payment attempt. Only a
// Pending or Completed outcome may be turned into an order; Failed carries a
// reason the customer can act on.
type PaymentOutcome struct {
	Status        PaymentOutcomeStatus `json:"status"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Reason        string               `json:"reason,omitempty"`
}

func PendingOutcome() PaymentOutcome {
	return PaymentOutcome{Status: OutcomePending}
}

func CompletedOutcome(transactionID string) PaymentOutcome {
	return PaymentOutcome{Status: OutcomeCompleted, TransactionID: transactionID}
}

func FailedOutcome(reason string) PaymentOutcome {
	return PaymentOutcome{Status: OutcomeFailed, Reason: reason}
}

// Committable reports whether this outcome is allowed to produce an order.
func (o PaymentOutcome) Committable() bool {
	return o.Status == OutcomePending || o.Status == OutcomeCompleted
}

// PaymentStatus maps the outcome to the status stored on the order header.
func (o PaymentOutcome) PaymentStatus() PaymentStatus {
	if o.Status == OutcomeCompleted {
		return PaymentStatusCompleted
	}

	return PaymentStatusPending
}
