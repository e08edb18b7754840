package document

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptyID      = errors.New("document id cannot be empty")
	ErrInvalidKind  = errors.New("document kind must be voucher or invoice")
	ErrMissingDate  = errors.New("document date cannot be zero")
	ErrNoRawPayload = errors.New("document raw payload cannot be empty")
)

// Kind distinguishes the two source document types that share the sync
// pipeline
type Kind string

const (
	KindVoucher Kind = "voucher"
	KindInvoice Kind = "invoice"
)

// Status holds the source system's numeric booking status code
type Status string

const (
	StatusDraft  Status = "50"
	StatusOpen   Status = "100"
	StatusPaid   Status = "200"
	StatusBooked Status = "1000"
)

// Booked reports whether a document in this status belongs in the ledger.
// Only booked and paid documents are ever imported; everything else is
// treated as not yet final.
func (s Status) Booked() bool {
	return s == StatusBooked || s == StatusPaid
}

// Validity defines the cached classification outcome of a document
type Validity string

const (
	ValidityUnknown Validity = "unknown"
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// CachedDocument is the local mirror of one source accounting document.
// The raw source payload is preserved verbatim so that a re-classification
// never needs another remote fetch.
type CachedDocument struct {
	ID               string          `json:"id"`
	Kind             Kind            `json:"kind"`
	Date             time.Time       `json:"date"`
	GrossAmount      decimal.Decimal `json:"gross_amount"` // Signed: negative for expenses
	Status           Status          `json:"status"`
	CostCenterID     string          `json:"cost_center_id,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	SourceUpdatedAt  time.Time       `json:"source_updated_at"`
	RawPayload       json.RawMessage `json:"raw_payload"`
	CachedAt         time.Time       `json:"cached_at"`
	Dirty            bool            `json:"dirty"`
	Validity         Validity        `json:"validity"`
	ValidationReason string          `json:"validation_reason,omitempty"`
	LastValidatedAt  *time.Time      `json:"last_validated_at,omitempty"`
}

// NewCachedDocument creates a cache entry for a freshly fetched source
// document. Validity starts out unknown; the classifier fills it in.
func NewCachedDocument(id string, kind Kind, date time.Time, grossAmount decimal.Decimal, status Status, rawPayload json.RawMessage) (*CachedDocument, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if kind != KindVoucher && kind != KindInvoice {
		return nil, ErrInvalidKind
	}
	if date.IsZero() {
		return nil, ErrMissingDate
	}
	if len(rawPayload) == 0 {
		return nil, ErrNoRawPayload
	}

	return &CachedDocument{
		ID:          id,
		Kind:        kind,
		Date:        date,
		GrossAmount: grossAmount,
		Status:      status,
		RawPayload:  rawPayload,
		CachedAt:    time.Now(),
		Validity:    ValidityUnknown,
	}, nil
}

// SourceID returns the mapping key for this document, e.g. "voucher_123".
// The source system issues globally unique document ids, so the cache keys
// rows by the bare id; the prefix makes the kind recoverable from a mapping
// key alone.
func (d *CachedDocument) SourceID() string {
	return string(d.Kind) + "_" + d.ID
}

// ParseSourceID splits a mapping key back into kind and document id. Ids may
// themselves contain underscores, so only the first separator counts.
func ParseSourceID(sourceID string) (Kind, string, error) {
	prefix, id, found := strings.Cut(sourceID, "_")
	if !found || id == "" {
		return "", "", errors.New("malformed source id: " + sourceID)
	}

	kind := Kind(prefix)
	if kind != KindVoucher && kind != KindInvoice {
		return "", "", errors.New("malformed source id: " + sourceID)
	}

	return kind, id, nil
}

// HasCostCenter reports whether the document itself carries a cost center
// reference (line items may carry their own)
func (d *CachedDocument) HasCostCenter() bool {
	return d.CostCenterID != ""
}

// Position is one line item of a document. Positions are owned exclusively
// by their document and replaced wholesale on every document refresh.
type Position struct {
	ID               string          `json:"id"`
	DocumentID       string          `json:"document_id"`
	AccountingTypeID string          `json:"accounting_type_id"`
	CostCenterID     string          `json:"cost_center_id,omitempty"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
}

// FailedDocument records a document that failed classification. The retry
// counter increments on every repeated failure; the row disappears when the
// document later validates or an operator clears it.
type FailedDocument struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
	RetryCount int       `json:"retry_count"`
}
