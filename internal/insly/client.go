package insly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"crm-sync-service/internal/config"
	"crm-sync-service/internal/models"
	"crm-sync-service/internal/rest"
)

// EndDateFormat is the source-system date layout (dd.mm.yyyy).
const EndDateFormat = "02.01.2006"

// Client talks to the policy-administration API. Every request goes through
// the rate-limited caller.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	caller  *rest.Caller
}

func NewClient(cfg config.InslyConfig, caller *rest.Caller) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 60 * time.Second},
		caller:  caller,
	}
}

type customerListResponse struct {
	Customers []struct {
		OID int64 `json:"customer_oid"`
	} `json:"customers"`
}

// ListCustomerIDs fetches the ordered customer OID feed that seeds a run.
func (c *Client) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	var out customerListResponse
	if err := c.postJSON(ctx, "get_customer_list", "/customer/getcustomerlist", map[string]any{}, &out); err != nil {
		return nil, err
	}

	oids := make([]int64, 0, len(out.Customers))
	for _, customer := range out.Customers {
		oids = append(oids, customer.OID)
	}
	return oids, nil
}

type policyPayload struct {
	OID         int64                 `json:"policy_oid"`
	Number      string                `json:"policy_no"`
	Currency    string                `json:"policy_premium_currency"`
	PaymentSum  json.Number           `json:"policy_payment_sum"`
	Description string                `json:"policy_description"`
	DateEnd     string                `json:"policy_date_end"`
	Insurer     string                `json:"policy_insurer"`
	Type        string                `json:"policy_type"`
	Payments    []models.Installment  `json:"payment"`
	Objects     []models.PolicyObject `json:"object"`
}

type customerPolicyResponse struct {
	Name        string          `json:"customer_name"`
	Email       string          `json:"customer_email"`
	Phone       string          `json:"customer_phone"`
	MobilePhone string          `json:"customer_phone_mobile"`
	Type        int             `json:"customer_type"`
	IDCode      string          `json:"customer_idcode"`
	BrokerOID   int64           `json:"customer_broker_oid"`
	Policies    []policyPayload `json:"policy"`
	Addresses   []models.Address `json:"address"`
}

// GetCustomerPolicies fetches one customer's snapshot, active policies, and
// optional address. Policies with an unparseable end date are logged and
// dropped; the rest of the customer still syncs.
func (c *Client) GetCustomerPolicies(ctx context.Context, oid int64) (*models.CustomerBundle, error) {
	body := map[string]any{"customer_oid": oid, "get_inactive": 0}

	var out customerPolicyResponse
	if err := c.postJSON(ctx, "get_customer_policy", "/customer/getpolicy", body, &out); err != nil {
		return nil, err
	}

	if out.Name == "" {
		return nil, models.NewValidationError("customer_name", "customer %d has no name", oid)
	}

	bundle := &models.CustomerBundle{
		Customer: models.Customer{
			OID:           oid,
			Name:          out.Name,
			Email:         out.Email,
			Phone:         out.Phone,
			MobilePhone:   out.MobilePhone,
			Type:          out.Type,
			IDCode:        out.IDCode,
			BrokerOwnerID: out.BrokerOID,
		},
	}

	if len(out.Addresses) > 0 {
		addr := out.Addresses[0]
		bundle.Address = &addr
	}

	for _, raw := range out.Policies {
		policy, err := c.convertPolicy(raw)
		if err != nil {
			slog.Warn("Skipping policy with malformed data",
				"customer_oid", oid,
				"policy_oid", raw.OID,
				"error", err)
			continue
		}
		bundle.Policies = append(bundle.Policies, policy)
	}

	return bundle, nil
}

func (c *Client) convertPolicy(raw policyPayload) (models.Policy, error) {
	if raw.OID == 0 {
		return models.Policy{}, fmt.Errorf("missing policy_oid")
	}

	endDate, err := time.Parse(EndDateFormat, raw.DateEnd)
	if err != nil {
		return models.Policy{}, fmt.Errorf("unparseable policy_date_end %q: %w", raw.DateEnd, err)
	}

	premium, _ := raw.PaymentSum.Float64()

	number := raw.Number
	if number == "" {
		number = models.MissingPolicyNumber
	}

	return models.Policy{
		OID:          raw.OID,
		Number:       number,
		Currency:     raw.Currency,
		Premium:      premium,
		Description:  raw.Description,
		EndDate:      endDate,
		InsurerCode:  raw.Insurer,
		ProductCode:  raw.Type,
		Installments: raw.Payments,
		Objects:      raw.Objects,
	}, nil
}

type policyLookupResponse struct {
	Policy policyPayload `json:"policy"`
}

// GetPolicy fetches a single policy by its stable OID, used by the
// auto-close maintenance pass.
func (c *Client) GetPolicy(ctx context.Context, policyOID int64) (*models.Policy, error) {
	body := map[string]any{"policy_oid": policyOID}

	var out policyLookupResponse
	if err := c.postJSON(ctx, "get_policy", "/policy/getpolicy", body, &out); err != nil {
		return nil, err
	}

	policy, err := c.convertPolicy(out.Policy)
	if err != nil {
		return nil, models.NewValidationError("policy", "policy %d: %s", policyOID, err.Error())
	}
	return &policy, nil
}

// ResolveCode translates a coded insurer/product value into its display
// label via the classifier endpoint. Unknown codes fall back to the raw
// value so a stale classifier never blocks a sync.
func (c *Client) ResolveCode(ctx context.Context, raw, fieldName string) (string, error) {
	var out map[string]map[string]string
	if err := c.postJSON(ctx, "get_policy_classifiers", "/policy/getclassifier", map[string]any{}, &out); err != nil {
		return "", err
	}

	if label, ok := out[fieldName][raw]; ok {
		return label, nil
	}
	return raw, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.caller.Do(ctx, op, func(ctx context.Context) (*rest.Response, error) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		return &rest.Response{StatusCode: res.StatusCode, Body: data}, nil
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("%s: failed to parse response: %w", op, err)
		}
	}
	return nil
}
