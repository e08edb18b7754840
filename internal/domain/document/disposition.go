package document

// DispositionKind names the classification branch a document took
type DispositionKind string

const (
	DispositionRegular     DispositionKind = "regular"
	DispositionTransfer    DispositionKind = "transfer"
	DispositionPassthrough DispositionKind = "passthrough"
)

// Disposition is the classification outcome for one document. Transfer and
// pass-through documents that are valid never reach the ledger; they get an
// ignore marker instead. CategoryID is only set for valid regular
// documents, resolved from the document's cost center link.
type Disposition struct {
	Valid      bool
	Kind       DispositionKind
	Reason     string
	CategoryID string
}

// Ignorable reports whether a valid document should be marked ignored
// instead of imported
func (d Disposition) Ignorable() bool {
	return d.Valid && (d.Kind == DispositionTransfer || d.Kind == DispositionPassthrough)
}
