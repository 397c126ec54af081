package pipedrive

import (
	"context"
	"log/slog"
	"strconv"
)

// UpdateOrganization patches all mutable fields of an organization.
func (c *Client) UpdateOrganization(ctx context.Context, orgID int64, payload OrganizationPayload) error {
	path := "/organizations/" + strconv.FormatInt(orgID, 10)
	if err := c.do(ctx, "update_organization", "PATCH", c.endpoint(c.baseURLV2, path, nil), payload, nil); err != nil {
		return err
	}
	slog.Info("Organization updated", "org_id", orgID)
	return nil
}

// UpdatePerson patches all mutable fields of a person.
func (c *Client) UpdatePerson(ctx context.Context, personID int64, payload PersonPayload) error {
	path := "/persons/" + strconv.FormatInt(personID, 10)
	if err := c.do(ctx, "update_person", "PATCH", c.endpoint(c.baseURLV2, path, nil), payload, nil); err != nil {
		return err
	}
	slog.Info("Person updated", "person_id", personID)
	return nil
}

// UpdateDeal patches a deal. The payload must not carry an owner: ownership
// is assigned at creation only and manual reassignments in the CRM are
// respected afterwards.
func (c *Client) UpdateDeal(ctx context.Context, dealID int64, payload DealPayload) error {
	path := "/deals/" + strconv.FormatInt(dealID, 10)
	if err := c.do(ctx, "update_deal", "PATCH", c.endpoint(c.baseURLV2, path, nil), payload, nil); err != nil {
		return err
	}
	slog.Info("Deal updated", "deal_id", dealID)
	return nil
}

// UpdateDealStatus moves a deal to a new status (maintenance auto-close).
func (c *Client) UpdateDealStatus(ctx context.Context, dealID int64, status string) error {
	path := "/deals/" + strconv.FormatInt(dealID, 10)
	body := map[string]any{"status": status}
	if err := c.do(ctx, "update_deal_status", "PATCH", c.endpoint(c.baseURLV2, path, nil), body, nil); err != nil {
		return err
	}
	slog.Info("Deal status updated", "deal_id", dealID, "status", status)
	return nil
}

// UpdateDealCustomFields patches only the given custom fields on a deal,
// used by the seller backfill.
func (c *Client) UpdateDealCustomFields(ctx context.Context, dealID int64, fields map[string]any) error {
	path := "/deals/" + strconv.FormatInt(dealID, 10)
	body := map[string]any{"custom_fields": fields}
	if err := c.do(ctx, "update_deal_fields", "PATCH", c.endpoint(c.baseURLV2, path, nil), body, nil); err != nil {
		return err
	}
	slog.Info("Deal custom fields updated", "deal_id", dealID)
	return nil
}

// UpdateNote replaces a note's content.
func (c *Client) UpdateNote(ctx context.Context, noteID int64, payload NotePayload) error {
	path := "/notes/" + strconv.FormatInt(noteID, 10)
	if err := c.do(ctx, "update_note", "PUT", c.endpoint(c.baseURLV1, path, nil), payload, nil); err != nil {
		return err
	}
	slog.Info("Note updated", "note_id", noteID, "deal_id", payload.DealID)
	return nil
}
