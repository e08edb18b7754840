package ledger

// Account is a budget account on the ledger side
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed,omitempty"`
}

// CategoryGroup is a named group of budget categories
type CategoryGroup struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsIncome bool   `json:"is_income,omitempty"`
}

// Category is one budget category; cost centers map onto these 1:1
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GroupID string `json:"group_id"`
}

// Payee is a counterparty known to the ledger
type Payee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction is one ledger transaction as the budget app stores it.
// Amounts are signed integer minor units (cents).
type Transaction struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Date       string `json:"date"` // ISO date, no time component
	Amount     int64  `json:"amount"`
	PayeeName  string `json:"payee_name,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
	ImportedID string `json:"imported_id,omitempty"`
	Cleared    bool   `json:"cleared,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
}

// NewTransaction carries the fields for creating a ledger transaction
type NewTransaction struct {
	Date       string `json:"date"`
	Amount     int64  `json:"amount"`
	PayeeName  string `json:"payee_name,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
	ImportedID string `json:"imported_id,omitempty"`
	Cleared    bool   `json:"cleared,omitempty"`
}

// TransactionUpdate is a partial update; nil fields are left untouched.
// Field names are checked at compile time instead of assembling update
// payloads from loose maps.
type TransactionUpdate struct {
	Date       *string `json:"date,omitempty"`
	Amount     *int64  `json:"amount,omitempty"`
	PayeeName  *string `json:"payee_name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	ImportedID *string `json:"imported_id,omitempty"`
	Cleared    *bool   `json:"cleared,omitempty"`
}

// String pointer helper for building updates
func String(s string) *string { return &s }

// Bool pointer helper for building updates
func Bool(b bool) *bool { return &b }

// Int64 pointer helper for building updates
func Int64(i int64) *int64 { return &i }
