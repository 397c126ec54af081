package models

// Customer is a read-only snapshot fetched from the source system per sync
// pass. It is never persisted by this service outside the target CRM.
type Customer struct {
	OID           int64  `json:"customer_oid"`
	Name          string `json:"customer_name"`
	Email         string `json:"customer_email"`
	Phone         string `json:"customer_phone"`
	MobilePhone   string `json:"customer_phone_mobile"`
	Type          int    `json:"customer_type"`
	IDCode        string `json:"customer_idcode"`
	BrokerOwnerID int64  `json:"customer_broker_oid"`
}

// Address is optional per customer; the CRM upsert payload always carries the
// field, so absence is represented by the N/A placeholder, not omission.
type Address struct {
	Value      string `json:"customer_address"`
	Country    string `json:"customer_address_country"`
	PostalCode string `json:"customer_address_zip"`
}

const AddressPlaceholder = "N/A"

// PlaceholderAddress is used when the source returns no address block.
func PlaceholderAddress() Address {
	return Address{
		Value:      AddressPlaceholder,
		Country:    AddressPlaceholder,
		PostalCode: AddressPlaceholder,
	}
}

// IsCompany reports whether the customer maps to a CRM organization.
// Type code 11 denotes a company; every other code is an individual.
func (c Customer) IsCompany() bool {
	return c.Type == CustomerTypeCompany
}
