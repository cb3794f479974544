package payments

import (
	"encoding/json"
	"errors"
	"time"
)

// Stored values. payment_status moves pending -> paid; status moves requested -> confirmed.
const (
	PaymentStatusPaid           = "paid"
	ConsultationStatusConfirmed = "confirmed"
	ProviderPaystack            = "paystack"

	// TransactionStatusSuccess is the only gateway status treated as paid.
	TransactionStatusSuccess = "success"
)

var ErrNotFound = errors.New("payments: consultation not found")

// Transaction is the verified transaction as reported by the gateway.
type Transaction struct {
	Reference string
	Status    string
	// Amount is in minor units (kobo for NGN).
	Amount   int64
	Currency string

	Raw json.RawMessage
}

// ConsultationPayment is the set of payment fields written onto a consultation row.
// The row itself is created by the booking flow.
type ConsultationPayment struct {
	ConsultationID string `db:"id"`

	Reference  string    `db:"payment_reference"`
	Provider   string    `db:"payment_provider"`
	AmountKobo int64     `db:"payment_amount_kobo"`
	Currency   string    `db:"payment_currency"`
	VerifiedAt time.Time `db:"payment_verified_at"`
}

// MarkResult reports what the store saw while marking a consultation paid.
type MarkResult struct {
	Found bool
	// PreviousStatus is payment_status before the update.
	PreviousStatus string
}
