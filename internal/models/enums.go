package models

// DealStatus is the lifecycle label derived from a policy's end date and
// payment history. It is recomputed fresh on every run, never stored.
type DealStatus string

const (
	DealStatusWon  DealStatus = "won"
	DealStatusLost DealStatus = "lost"
	DealStatusOpen DealStatus = "open"
)

// EntityKind distinguishes the two CRM record types a customer can map to.
type EntityKind string

const (
	EntityKindOrganization EntityKind = "org"
	EntityKindPerson       EntityKind = "person"
)

// Source-system installment status codes.
const (
	InstallmentStatusPaid      = "paid"
	InstallmentStatusCancelled = "cancelled"
)

// CustomerTypeCompany is the source-system type code for companies.
const CustomerTypeCompany = 11

// MissingPolicyNumber is the sentinel stored when the source system carries
// no policy number. It is a valid value, not an error.
const MissingPolicyNumber = "Policy number is missing."

func IsValidDealStatus(status DealStatus) bool {
	switch status {
	case DealStatusWon, DealStatusLost, DealStatusOpen:
		return true
	default:
		return false
	}
}
