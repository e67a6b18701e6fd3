// Package taxonomy is the static catalog of evidence categories FirmOS
// recognizes, plus the set-coverage check used by the Guardian engine and
// the evidence-minimum validator.
package taxonomy

// Category is a single evidence category in the taxonomy.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// catalog is the fixed evidence taxonomy. Categories are identified by
// their snake_case id; workstream tasks and agent minimums reference them
// by id only.
var catalog = []Category{
	{ID: "ebm_invoice_pdf", Name: "EBM Invoice (PDF)", Description: "Electronic billing machine invoice export"},
	{ID: "bank_statement", Name: "Bank Statement", Description: "Period bank statement from the client's institution"},
	{ID: "ledger_export", Name: "Ledger Export", Description: "General ledger extract for the engagement period"},
	{ID: "vat_return", Name: "VAT Return", Description: "Filed VAT return acknowledgement"},
	{ID: "tax_filing_receipt", Name: "Tax Filing Receipt", Description: "Authority receipt for a submitted filing"},
	{ID: "payroll_summary", Name: "Payroll Summary", Description: "Payroll run summary with totals"},
	{ID: "engagement_letter", Name: "Engagement Letter", Description: "Signed engagement letter"},
	{ID: "board_resolution", Name: "Board Resolution", Description: "Board resolution authorizing the engagement"},
	{ID: "notary_deed", Name: "Notary Deed", Description: "Notarized deed or instrument"},
	{ID: "contract_pdf", Name: "Contract (PDF)", Description: "Executed contract document"},
}

var catalogIndex = func() map[string]Category {
	idx := make(map[string]Category, len(catalog))
	for _, c := range catalog {
		idx[c.ID] = c
	}
	return idx
}()

// Categories returns the full taxonomy.
func Categories() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the category for an id.
func Lookup(id string) (Category, bool) {
	c, ok := catalogIndex[id]
	return c, ok
}

// Known reports whether id is a category in the taxonomy.
func Known(id string) bool {
	_, ok := catalogIndex[id]
	return ok
}

// Coverage computes required minus linked as a set difference. The result
// preserves the order of required and never contains duplicates; an empty
// result means the linked evidence covers the requirement.
func Coverage(required, linked []string) (missing []string) {
	have := make(map[string]bool, len(linked))
	for _, id := range linked {
		have[id] = true
	}

	seen := make(map[string]bool, len(required))
	for _, id := range required {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
