package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
	"crm-sync-service/internal/utils"
)

// CRMEntityStore is the slice of the CRM client the resolver needs.
type CRMEntityStore interface {
	FindOrganization(ctx context.Context, sourceOID string) (int64, bool, error)
	FindPerson(ctx context.Context, sourceOID string) (int64, bool, error)
	AddOrganization(ctx context.Context, payload pipedrive.OrganizationPayload) (int64, error)
	AddPerson(ctx context.Context, payload pipedrive.PersonPayload) (int64, error)
	UpdateOrganization(ctx context.Context, orgID int64, payload pipedrive.OrganizationPayload) error
	UpdatePerson(ctx context.Context, personID int64, payload pipedrive.PersonPayload) error
}

const recordVisibility = 3

// EntityResolver maps a source customer to exactly one CRM organization or
// person. Lookup is by the embedded source OID, never by display name: names
// are not unique and may legitimately change.
type EntityResolver struct {
	crm     CRMEntityStore
	ownerID int64
	now     func() time.Time
}

func NewEntityResolver(crm CRMEntityStore, ownerID int64) *EntityResolver {
	return &EntityResolver{crm: crm, ownerID: ownerID, now: time.Now}
}

// WithNow replaces the clock, for tests.
func (r *EntityResolver) WithNow(now func() time.Time) *EntityResolver {
	r.now = now
	return r
}

// Resolve finds or creates the CRM record for the customer, updating all
// mutable fields when it already exists. The second return tells the caller
// whether an organization or a person was resolved.
func (r *EntityResolver) Resolve(ctx context.Context, customer models.Customer, address *models.Address) (int64, models.EntityKind, error) {
	sourceOID := strconv.FormatInt(customer.OID, 10)

	if customer.IsCompany() {
		slog.Info("Resolving company", "customer_oid", customer.OID, "name", customer.Name)

		payload := r.organizationPayload(customer, address)
		orgID, found, err := r.crm.FindOrganization(ctx, sourceOID)
		if err != nil {
			return 0, "", err
		}
		if !found {
			payload.AddTime = r.now().UTC().Format("2006-01-02T15:04:05Z")
			orgID, err = r.crm.AddOrganization(ctx, payload)
			if err != nil {
				return 0, "", err
			}
		} else if err := r.crm.UpdateOrganization(ctx, orgID, payload); err != nil {
			return 0, "", err
		}
		return orgID, models.EntityKindOrganization, nil
	}

	slog.Info("Resolving individual", "customer_oid", customer.OID, "name", customer.Name)

	payload := r.personPayload(customer)
	personID, found, err := r.crm.FindPerson(ctx, sourceOID)
	if err != nil {
		return 0, "", err
	}
	if !found {
		personID, err = r.crm.AddPerson(ctx, payload)
		if err != nil {
			return 0, "", err
		}
	} else if err := r.crm.UpdatePerson(ctx, personID, payload); err != nil {
		return 0, "", err
	}
	return personID, models.EntityKindPerson, nil
}

func (r *EntityResolver) ownerFor(customer models.Customer) int64 {
	if customer.BrokerOwnerID > 0 {
		return customer.BrokerOwnerID
	}
	return r.ownerID
}

func (r *EntityResolver) organizationPayload(customer models.Customer, address *models.Address) pipedrive.OrganizationPayload {
	addr := models.PlaceholderAddress()
	if address != nil {
		addr = *address
	}

	return pipedrive.OrganizationPayload{
		Name:      customer.Name,
		OwnerID:   r.ownerFor(customer),
		VisibleTo: recordVisibility,
		Address: &pipedrive.AddressPayload{
			Value:      addr.Value,
			Country:    addr.Country,
			PostalCode: addr.PostalCode,
		},
		CustomFields: map[string]any{
			pipedrive.FieldSourceOID: strconv.FormatInt(customer.OID, 10),
		},
	}
}

func (r *EntityResolver) personPayload(customer models.Customer) pipedrive.PersonPayload {
	payload := pipedrive.PersonPayload{
		Name:      customer.Name,
		OwnerID:   r.ownerFor(customer),
		VisibleTo: recordVisibility,
		CustomFields: map[string]any{
			pipedrive.FieldSourceOID: strconv.FormatInt(customer.OID, 10),
		},
	}

	// Invalid contact data is dropped silently, not rejected: a bad phone
	// must not block the customer's policies from syncing.
	if customer.Email != "" && utils.ValidateEmail(customer.Email) {
		payload.Emails = []pipedrive.ContactPayload{
			{Value: customer.Email, Primary: true, Label: "email"},
		}
	}
	if phone, ok := utils.ExtractPhone(customer.Phone); ok {
		payload.Phones = append(payload.Phones, pipedrive.ContactPayload{
			Value: phone, Primary: true, Label: "work",
		})
	}
	if mobile, ok := utils.ExtractPhone(customer.MobilePhone); ok {
		payload.Phones = append(payload.Phones, pipedrive.ContactPayload{
			Value: mobile, Primary: len(payload.Phones) == 0, Label: "mobile",
		})
	}

	return payload
}
