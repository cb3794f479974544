package payments

import (
	"context"
	"database/sql"
	"errors"

	"healthline-api/pkg/utils"
)

// Repository writes verified payments onto consultations.
type Repository interface {
	MarkPaid(ctx context.Context, p ConsultationPayment) (MarkResult, error)
}

// NOTE: This repository assumes the consultations table carries the payment
// columns added in migrations/000002.

// PostgresRepo must be opened with the service role credential; the verifying
// user is not necessarily the row owner.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// MarkPaid overwrites the payment fields and confirms the consultation.
// Re-applying the same payment is safe. A missing row is reported via
// MarkResult.Found, not as an error.
func (r *PostgresRepo) MarkPaid(ctx context.Context, p ConsultationPayment) (MarkResult, error) {
	var out MarkResult
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		prev, err := lockConsultation(ctx, tx, p.ConsultationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		out = MarkResult{Found: true, PreviousStatus: prev}
		return updatePayment(ctx, tx, p)
	})
	return out, err
}

func lockConsultation(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	// Serialize concurrent verifications of the same consultation.
	const q = `
SELECT COALESCE(payment_status, '')
FROM consultations
WHERE id = $1
FOR UPDATE
`
	var status string
	if err := tx.QueryRowContext(ctx, q, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func updatePayment(ctx context.Context, tx *sql.Tx, p ConsultationPayment) error {
	const q = `
UPDATE consultations
SET payment_status = $2,
    payment_reference = $3,
    payment_provider = $4,
    payment_amount_kobo = $5,
    payment_currency = $6,
    payment_verified_at = $7,
    status = $8
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q,
		p.ConsultationID,
		PaymentStatusPaid,
		p.Reference,
		p.Provider,
		p.AmountKobo,
		p.Currency,
		p.VerifiedAt,
		ConsultationStatusConfirmed,
	)
	return err
}
