package claim

// Category classifies the creditor behind a claim
type Category string

const (
	CategoryFinancialSecured   Category = "FINANCIAL_SECURED"
	CategoryFinancialUnsecured Category = "FINANCIAL_UNSECURED"
	CategoryOperational        Category = "OPERATIONAL_CREDITOR"
	CategoryWorkman            Category = "WORKMAN"
	CategoryEmployee           Category = "EMPLOYEE"
	CategoryStatutoryAuthority Category = "STATUTORY_AUTHORITY"
	CategoryHomeBuyer          Category = "HOME_BUYER"
	CategoryOther              Category = "OTHER"
)

var validCategories = map[Category]bool{
	CategoryFinancialSecured:   true,
	CategoryFinancialUnsecured: true,
	CategoryOperational:        true,
	CategoryWorkman:            true,
	CategoryEmployee:           true,
	CategoryStatutoryAuthority: true,
	CategoryHomeBuyer:          true,
	CategoryOther:              true,
}

func (c Category) IsValid() bool {
	return validCategories[c]
}

// DocumentKind tags a supporting document
type DocumentKind string

const (
	DocumentLedger             DocumentKind = "LEDGER"
	DocumentOutstandingBalance DocumentKind = "OUTSTANDING_BALANCE"
	DocumentInvoice            DocumentKind = "INVOICE"
	DocumentAgreement          DocumentKind = "AGREEMENT"
	DocumentIdentityProof      DocumentKind = "IDENTITY_PROOF"
	DocumentBankProof          DocumentKind = "BANK_PROOF"
	DocumentAssignmentDeed     DocumentKind = "ASSIGNMENT_DEED"
	DocumentOther              DocumentKind = "OTHER"
)

// Reconcilable reports whether the advisor can derive a figure from this kind
func (k DocumentKind) Reconcilable() bool {
	return k == DocumentLedger || k == DocumentOutstandingBalance
}

// DocumentRef points at a document held by the document store. The engine
// never holds file bytes.
type DocumentRef struct {
	ID   string       `json:"id"`
	Kind DocumentKind `json:"kind"`
	Name string       `json:"name"`
}
