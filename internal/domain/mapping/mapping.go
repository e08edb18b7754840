package mapping

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptySourceID      = errors.New("mapping source id cannot be empty")
	ErrEmptyTransactionID = errors.New("mapping ledger transaction id cannot be empty")
	ErrEmptyIgnoreReason  = errors.New("ignore reason cannot be empty")
)

// Mapping links one source document to one ledger transaction. When a
// document is ignorable (transfers, pass-through postings) the mapping is
// kept with Ignored set and the transaction id column holding the
// human-readable reason, so the document is never reconsidered for import.
type Mapping struct {
	SourceID            string          `json:"source_id"`
	LedgerTransactionID string          `json:"ledger_transaction_id"` // Ignore reason when Ignored
	Ignored             bool            `json:"ignored"`
	SourceValueDate     time.Time       `json:"source_value_date"`
	SourceAmount        decimal.Decimal `json:"source_amount"`
	SourceUpdatedAt     time.Time       `json:"source_updated_at"`
	SyncedAt            time.Time       `json:"synced_at"`
}

// NewMapping creates an active mapping after a successful ledger import
func NewMapping(sourceID, ledgerTransactionID string, valueDate time.Time, amount decimal.Decimal, sourceUpdatedAt time.Time) (*Mapping, error) {
	if sourceID == "" {
		return nil, ErrEmptySourceID
	}
	if ledgerTransactionID == "" {
		return nil, ErrEmptyTransactionID
	}

	return &Mapping{
		SourceID:            sourceID,
		LedgerTransactionID: ledgerTransactionID,
		SourceValueDate:     valueDate,
		SourceAmount:        amount,
		SourceUpdatedAt:     sourceUpdatedAt,
		SyncedAt:            time.Now(),
	}, nil
}

// NewIgnoredMapping creates an ignore marker for a document that must never
// produce a ledger transaction
func NewIgnoredMapping(sourceID, reason string, valueDate time.Time, amount decimal.Decimal, sourceUpdatedAt time.Time) (*Mapping, error) {
	if sourceID == "" {
		return nil, ErrEmptySourceID
	}
	if reason == "" {
		return nil, ErrEmptyIgnoreReason
	}

	return &Mapping{
		SourceID:            sourceID,
		LedgerTransactionID: reason,
		Ignored:             true,
		SourceValueDate:     valueDate,
		SourceAmount:        amount,
		SourceUpdatedAt:     sourceUpdatedAt,
		SyncedAt:            time.Now(),
	}, nil
}

// IgnoreReason returns the stored reason for an ignored mapping, or an
// empty string for an active one
func (m *Mapping) IgnoreReason() string {
	if !m.Ignored {
		return ""
	}
	return m.LedgerTransactionID
}

// UpdatedSince reports whether the source document changed after this
// mapping was written. Used to decide skip vs. update on re-encounter.
func (m *Mapping) UpdatedSince(sourceUpdatedAt time.Time) bool {
	return sourceUpdatedAt.After(m.SourceUpdatedAt)
}
