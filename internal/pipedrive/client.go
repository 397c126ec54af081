package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"crm-sync-service/internal/config"
	"crm-sync-service/internal/rest"
)

// Client talks to the CRM API. Search, deal, organization, and person
// operations use the v2 API; notes and deal-field metadata only exist on v1.
// Every request goes through the rate-limited caller.
type Client struct {
	baseURLV1 string
	baseURLV2 string
	token     string
	http      *http.Client
	caller    *rest.Caller

	mu           sync.Mutex
	fieldOptions map[string]map[string]int64
}

func NewClient(cfg config.PipedriveConfig, caller *rest.Caller) *Client {
	return &Client{
		baseURLV1:    cfg.BaseURLV1,
		baseURLV2:    cfg.BaseURLV2,
		token:        cfg.Token,
		http:         &http.Client{Timeout: 60 * time.Second},
		caller:       caller,
		fieldOptions: make(map[string]map[string]int64),
	}
}

type idResponse struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, body, out any) error {
	resp, err := c.caller.Do(ctx, op, func(ctx context.Context) (*rest.Response, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

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

// endpoint builds an authenticated URL for the given API base.
func (c *Client) endpoint(base, path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.token)
	return base + path + "?" + params.Encode()
}
