package source

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
)

// objectRef is the source API's embedded reference shape
type objectRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// documentPayload mirrors one document item on the wire. The raw bytes are
// kept alongside the parsed fields so the cache can preserve the payload
// verbatim.
type documentPayload struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	GrossAmount     decimal.Decimal `json:"grossAmount"`
	CreditDebit     string          `json:"creditDebit"` // "C" credit (income), "D" debit (expense)
	Status          string          `json:"status"`
	CostCenter      *objectRef      `json:"costCenter,omitempty"`
	Counterparty    *objectRef      `json:"counterparty,omitempty"`
	CreateTimestamp time.Time       `json:"created"`
	UpdateTimestamp time.Time       `json:"updated"`

	raw json.RawMessage
}

// toCached converts a wire document into a cache entry. The gross amount is
// signed here: debits become negative so the ledger sees expenses below
// zero.
func (p *documentPayload) toCached(kind document.Kind) (*document.CachedDocument, error) {
	amount := p.GrossAmount
	if p.CreditDebit == "D" {
		amount = amount.Neg()
	}

	doc, err := document.NewCachedDocument(p.ID, kind, p.Date, amount, document.Status(p.Status), p.raw)
	if err != nil {
		return nil, err
	}

	if p.CostCenter != nil {
		doc.CostCenterID = p.CostCenter.ID
	}
	if p.Counterparty != nil {
		doc.CounterpartyName = p.Counterparty.Name
	}
	doc.SourceUpdatedAt = p.UpdateTimestamp

	return doc, nil
}

// positionPayload mirrors one document line item on the wire
type positionPayload struct {
	ID             string          `json:"id"`
	AccountingType objectRef       `json:"accountingType"`
	CostCenter     *objectRef      `json:"costCenter,omitempty"`
	NetAmount      decimal.Decimal `json:"netAmount"`
	TaxRate        decimal.Decimal `json:"taxRate"`
}

func (p *positionPayload) toPosition(documentID string) *document.Position {
	pos := &document.Position{
		ID:               p.ID,
		DocumentID:       documentID,
		AccountingTypeID: p.AccountingType.ID,
		NetAmount:        p.NetAmount,
		TaxRate:          p.TaxRate,
	}
	if p.CostCenter != nil {
		pos.CostCenterID = p.CostCenter.ID
	}

	return pos
}

// costCenterPayload mirrors one cost center on the wire
type costCenterPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number,omitempty"`
}

func (p *costCenterPayload) toCostCenter() *costcenter.CostCenter {
	return &costcenter.CostCenter{
		ID:     p.ID,
		Name:   p.Name,
		Number: p.Number,
	}
}

// listResponse is the source API's list envelope
type listResponse struct {
	Objects []json.RawMessage `json:"objects"`
	Total   int               `json:"total"`
}
