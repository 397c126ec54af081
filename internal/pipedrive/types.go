package pipedrive

// Payload structs for the CRM write API. Records are visible to the whole
// company (visible_to 3) and always carry the source-system identifier in a
// custom field so later runs can find them again.

type AddressPayload struct {
	Value      string `json:"value"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type OrganizationPayload struct {
	Name         string          `json:"name"`
	OwnerID      int64           `json:"owner_id,omitempty"`
	AddTime      string          `json:"add_time,omitempty"`
	VisibleTo    int             `json:"visible_to"`
	Address      *AddressPayload `json:"address,omitempty"`
	CustomFields map[string]any  `json:"custom_fields,omitempty"`
}

type ContactPayload struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
	Label   string `json:"label"`
}

type PersonPayload struct {
	Name         string           `json:"name"`
	OwnerID      int64            `json:"owner_id,omitempty"`
	VisibleTo    int              `json:"visible_to"`
	Emails       []ContactPayload `json:"emails,omitempty"`
	Phones       []ContactPayload `json:"phones,omitempty"`
	CustomFields map[string]any   `json:"custom_fields,omitempty"`
}

type DealPayload struct {
	Title             string         `json:"title"`
	OwnerID           int64          `json:"owner_id,omitempty"`
	Currency          string         `json:"currency"`
	Value             float64        `json:"value"`
	ExpectedCloseDate string         `json:"expected_close_date"`
	Status            string         `json:"status"`
	VisibleTo         int            `json:"visible_to"`
	WonTime           string         `json:"won_time,omitempty"`
	StageID           int64          `json:"stage_id,omitempty"`
	OrgID             int64          `json:"org_id,omitempty"`
	PersonID          int64          `json:"person_id,omitempty"`
	CustomFields      map[string]any `json:"custom_fields,omitempty"`
}

type NotePayload struct {
	Content string `json:"content"`
	DealID  int64  `json:"deal_id"`
	UserID  int64  `json:"user_id"`
}

// Note is an existing note attached to a deal. The note API has no stable
// external key, so callers match on content markers.
type Note struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// DealSummary is one row of a filter listing, with the sync-relevant custom
// fields lifted out of the raw field map.
type DealSummary struct {
	ID           int64
	PolicyOID    string
	PolicyNumber string
}
