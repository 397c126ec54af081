package pipedrive

import (
	"context"
	"log/slog"
)

// AddOrganization creates an organization and returns its CRM id.
func (c *Client) AddOrganization(ctx context.Context, payload OrganizationPayload) (int64, error) {
	var out idResponse
	if err := c.do(ctx, "add_organization", "POST", c.endpoint(c.baseURLV2, "/organizations", nil), payload, &out); err != nil {
		return 0, err
	}
	slog.Info("Organization added", "org_id", out.Data.ID, "name", payload.Name)
	return out.Data.ID, nil
}

// AddPerson creates a person and returns its CRM id.
func (c *Client) AddPerson(ctx context.Context, payload PersonPayload) (int64, error) {
	var out idResponse
	if err := c.do(ctx, "add_person", "POST", c.endpoint(c.baseURLV2, "/persons", nil), payload, &out); err != nil {
		return 0, err
	}
	slog.Info("Person added", "person_id", out.Data.ID, "name", payload.Name)
	return out.Data.ID, nil
}

// AddDeal creates a deal and returns its CRM id.
func (c *Client) AddDeal(ctx context.Context, payload DealPayload) (int64, error) {
	var out idResponse
	if err := c.do(ctx, "add_deal", "POST", c.endpoint(c.baseURLV2, "/deals", nil), payload, &out); err != nil {
		return 0, err
	}
	slog.Info("Deal added", "deal_id", out.Data.ID, "title", payload.Title)
	return out.Data.ID, nil
}

// AddNote attaches a note to a deal.
func (c *Client) AddNote(ctx context.Context, payload NotePayload) (int64, error) {
	var out idResponse
	if err := c.do(ctx, "add_note", "POST", c.endpoint(c.baseURLV1, "/notes", nil), payload, &out); err != nil {
		return 0, err
	}
	slog.Info("Note added", "note_id", out.Data.ID, "deal_id", payload.DealID)
	return out.Data.ID, nil
}
