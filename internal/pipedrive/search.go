package pipedrive

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

type searchResponse struct {
	Data struct {
		Items []struct {
			Item struct {
				ID int64 `json:"id"`
			} `json:"item"`
		} `json:"items"`
	} `json:"data"`
}

// search runs an exact-match v2 search and returns the first hit. The search
// term is always a stable source-system identifier, never a display name.
func (c *Client) search(ctx context.Context, op, path, term string) (int64, bool, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("exact_match", "1")
	params.Set("fields", "custom_fields")

	var out searchResponse
	if err := c.do(ctx, op, "GET", c.endpoint(c.baseURLV2, path, params), nil, &out); err != nil {
		return 0, false, err
	}

	if len(out.Data.Items) == 0 {
		return 0, false, nil
	}
	return out.Data.Items[0].Item.ID, true, nil
}

// FindOrganization looks up an organization by the customer's source OID.
func (c *Client) FindOrganization(ctx context.Context, sourceOID string) (int64, bool, error) {
	return c.search(ctx, "search_organization", "/organizations/search", sourceOID)
}

// FindPerson looks up a person by the customer's source OID.
func (c *Client) FindPerson(ctx context.Context, sourceOID string) (int64, bool, error) {
	return c.search(ctx, "search_person", "/persons/search", sourceOID)
}

// FindDeal looks up a deal by the policy's source OID. The human policy
// number is never used here: it may collide or be missing.
func (c *Client) FindDeal(ctx context.Context, policyOID string) (int64, bool, error) {
	return c.search(ctx, "search_deal", "/deals/search", policyOID)
}

type notesResponse struct {
	Data []Note `json:"data"`
}

// ListNotes returns the notes attached to a deal, in API order.
func (c *Client) ListNotes(ctx context.Context, dealID int64) ([]Note, error) {
	params := url.Values{}
	params.Set("deal_id", strconv.FormatInt(dealID, 10))

	var out notesResponse
	if err := c.do(ctx, "search_note", "GET", c.endpoint(c.baseURLV1, "/notes", params), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type filterDealsResponse struct {
	Data []map[string]json.RawMessage `json:"data"`
}

// ListDealsByFilter returns the deals matched by a saved CRM filter, used by
// the maintenance passes.
func (c *Client) ListDealsByFilter(ctx context.Context, filterID int) ([]DealSummary, error) {
	params := url.Values{}
	params.Set("filter_id", strconv.Itoa(filterID))
	params.Set("limit", "500")

	var out filterDealsResponse
	if err := c.do(ctx, "list_filtered_deals", "GET", c.endpoint(c.baseURLV1, "/deals", params), nil, &out); err != nil {
		return nil, err
	}

	deals := make([]DealSummary, 0, len(out.Data))
	for _, raw := range out.Data {
		var summary DealSummary
		if idRaw, ok := raw["id"]; ok {
			_ = json.Unmarshal(idRaw, &summary.ID)
		}
		if v, ok := raw[FieldPolicyOID]; ok {
			summary.PolicyOID = rawString(v)
		}
		if v, ok := raw[FieldPolicyNumber]; ok {
			summary.PolicyNumber = rawString(v)
		}
		deals = append(deals, summary)
	}
	return deals, nil
}

// rawString decodes a custom-field value that may arrive as a string or a
// number.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
