package models

import "time"

// Policy belongs to exactly one customer. OID is the stable source-system
// identifier used as the idempotency key for deal upserts; Number is the
// human-facing policy number and may collide or be missing.
type Policy struct {
	OID          int64
	Number       string
	Currency     string
	Premium      float64
	Description  string
	EndDate      time.Time
	InsurerCode  string
	ProductCode  string
	Installments []Installment
	Objects      []PolicyObject
}

// Installment is one entry of a policy's ordered payment schedule.
type Installment struct {
	Num    int    `json:"policy_installment_num"`
	Status string `json:"policy_installment_status"`
	Total  int    `json:"policy_installments_total"`
}

// PolicyObject is one insured object (vehicle) attached to a policy.
type PolicyObject struct {
	VehicleType  string `json:"vehicle_type"`
	LicensePlate string `json:"vehicle_licenseplate"`
	Make         string `json:"vehicle_make"`
	Model        string `json:"vehicle_model"`
	VIN          string `json:"vehicle_vincode"`
	Year         string `json:"vehicle_year"`
	Power        string `json:"vehicle_power"`
	GrossWeight  string `json:"vehicle_grossweight"`
	OwnerName    string `json:"vehicle_owner_name"`
}

// TotalInstallments returns the declared installment count for the policy,
// taken from the schedule entries themselves.
func (p Policy) TotalInstallments() int {
	for _, inst := range p.Installments {
		if inst.Total > 0 {
			return inst.Total
		}
	}
	return len(p.Installments)
}

// LastInstallment returns the installment with the highest sequence number.
func (p Policy) LastInstallment() (Installment, bool) {
	if len(p.Installments) == 0 {
		return Installment{}, false
	}
	last := p.Installments[0]
	for _, inst := range p.Installments[1:] {
		if inst.Num > last.Num {
			last = inst
		}
	}
	return last, true
}

// IsFullyPaid reports whether the highest-sequence installment covers the
// declared total and carries the fully-paid status code.
func (p Policy) IsFullyPaid() bool {
	last, ok := p.LastInstallment()
	if !ok {
		return false
	}
	return last.Num == p.TotalInstallments() && last.Status == InstallmentStatusPaid
}

// CustomerBundle is everything the source system returns for one customer in
// a single fetch: the snapshot, the in-force policies, and an optional
// address.
type CustomerBundle struct {
	Customer Customer
	Policies []Policy
	Address  *Address
}
