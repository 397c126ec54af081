package pipedrive

import (
	"context"
	"strings"
)

// Custom-field API keys. These are schema identifiers assigned by the CRM,
// not deployment configuration.
const (
	FieldSourceOID    = "86cae975675fb340afc1574e4743ae2f91604c62"
	FieldPolicyOID    = "8c21a9befa2f0cf2e1c31cdcb1bd8329bd6aa8f1"
	FieldPolicyNumber = "30bbd24791ef12c955ed795a6e93d64c4fd31fa1"
	FieldProduct      = "361d053d9234bc515f0884ecb4a12958c3b50574"
	FieldInsurer      = "d897fe9647fdb08f70ff8abacf75a4e1c6078c5c"
	FieldObjects      = "6981d2e1dc3d0212c5e581a4d627a18ac976f83f"
	FieldEndDate      = "bee031bba9bdbeec53a9f85186f2a9f853fa8809"
	FieldSeller       = "2c136c23787bac259a1e16750b653b95f42b4a9b"
	FieldPolicyOnAttb = "5b82893d6b640fa4e3ff36cfd44520ec569b73e8"
	FieldStatus       = "0cbadc7b01827c2ace7dfae87f7c710178dcdc42"
)

type dealFieldsResponse struct {
	Data []struct {
		Key     string `json:"key"`
		Options []struct {
			ID    int64  `json:"id"`
			Label string `json:"label"`
		} `json:"options"`
	} `json:"data"`
}

// ResolveFieldOption maps an option label to its numeric option id for an
// enum custom field (insurer, product, seller). The field catalog is fetched
// once per process and cached; matching is case-insensitive substring, the
// way option labels drift from classifier labels in practice.
func (c *Client) ResolveFieldOption(ctx context.Context, fieldKey, label string) (int64, bool, error) {
	if label == "" {
		return 0, false, nil
	}

	options, err := c.fieldOptionsFor(ctx, fieldKey)
	if err != nil {
		return 0, false, err
	}

	needle := strings.ToLower(label)
	for optionLabel, optionID := range options {
		if strings.Contains(optionLabel, needle) || strings.Contains(needle, optionLabel) {
			return optionID, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) fieldOptionsFor(ctx context.Context, fieldKey string) (map[string]int64, error) {
	c.mu.Lock()
	cached, ok := c.fieldOptions[fieldKey]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var out dealFieldsResponse
	if err := c.do(ctx, "get_deal_fields", "GET", c.endpoint(c.baseURLV1, "/dealFields", nil), nil, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, field := range out.Data {
		options := make(map[string]int64, len(field.Options))
		for _, option := range field.Options {
			options[strings.ToLower(option.Label)] = option.ID
		}
		c.fieldOptions[field.Key] = options
	}

	if cached, ok := c.fieldOptions[fieldKey]; ok {
		return cached, nil
	}
	// Unknown field key: cache the miss so we do not refetch per policy.
	c.fieldOptions[fieldKey] = map[string]int64{}
	return c.fieldOptions[fieldKey], nil
}
