// Package jama is a client for the requirements-management REST service:
// OAuth client-credentials auth with token refresh, paginated item
// retrieval, and item CRUD.
package jama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	tokenPath = "/rest/oauth/token"
	itemsPath = "/rest/v1/items"

	// tokenRefreshMargin renews the access token this long before the
	// server-reported expiry.
	tokenRefreshMargin = 60 * time.Second

	pageSize = 50
)

// Config carries the connection settings for one project.
type Config struct {
	BaseURL      string
	ProjectID    int
	ClientID     string
	ClientSecret string

	// HTTPClient overrides the transport, mainly for tests and proxies.
	HTTPClient *http.Client
	// RequestsPerSecond throttles API calls; zero means no throttle.
	RequestsPerSecond float64
}

// Client talks to the requirements service. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

// New creates a client. No network traffic happens until the first call.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{cfg: cfg, httpClient: httpClient, limiter: limiter}
}

// Item is the flattened requirement record the rest of the pipeline
// consumes.
type Item struct {
	JamaID          int    `json:"jama_id"`
	Sequence        string `json:"sequence"`
	ParentID        int    `json:"parent_id,omitempty"`
	ItemTypeID      int    `json:"item_type_id"`
	ChildItemTypeID int    `json:"child_item_type_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Assignee        string `json:"assignee,omitempty"`
	Status          string `json:"status,omitempty"`
	Tags            string `json:"tags,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Preconditions   string `json:"preconditions,omitempty"`
	TargetSystem    string `json:"target_system,omitempty"`
	CreatedDate     string `json:"created_date,omitempty"`
	ModifiedDate    string `json:"modified_date,omitempty"`
}

type apiItem struct {
	ID            int            `json:"id"`
	ItemType      int            `json:"itemType"`
	ChildItemType int            `json:"childItemType"`
	CreatedDate   string         `json:"createdDate"`
	ModifiedDate  string         `json:"modifiedDate"`
	Fields        map[string]any `json:"fields"`
	Location      struct {
		Sequence string `json:"sequence"`
		Parent   struct {
			Item int `json:"item"`
		} `json:"parent"`
	} `json:"location"`
}

type itemsPage struct {
	Meta struct {
		PageInfo struct {
			StartIndex   int `json:"startIndex"`
			ResultCount  int `json:"resultCount"`
			TotalResults int `json:"totalResults"`
		} `json:"pageInfo"`
	} `json:"meta"`
	Data []apiItem `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid bearer token, fetching a new one when the cached
// token is missing or inside the refresh margin.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("oauth token request: status %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tr.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshMargin)
	return c.accessToken, nil
}

// request performs one authorized API call and decodes the JSON response
// into out (skipped when out is nil, e.g. for DELETE).
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.cfg.BaseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, endpoint, err)
	}
	return nil
}

// ProjectInfo fetches the project record.
func (c *Client) ProjectInfo(ctx context.Context) (map[string]any, error) {
	var resp struct {
		Data map[string]any `json:"data"`
	}
	endpoint := fmt.Sprintf("/rest/v1/projects/%d", c.cfg.ProjectID)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AllItems fetches every item in the project, page by page. When
// maxDepth > 0, items whose sequence sits deeper are skipped.
func (c *Client) AllItems(ctx context.Context, maxDepth int) ([]Item, error) {
	var items []Item
	startAt := 0

	for {
		params := url.Values{
			"project":    {fmt.Sprint(c.cfg.ProjectID)},
			"startAt":    {fmt.Sprint(startAt)},
			"maxResults": {fmt.Sprint(pageSize)},
		}

		var page itemsPage
		if err := c.request(ctx, http.MethodGet, itemsPath, params, nil, &page); err != nil {
			return nil, err
		}
		if len(page.Data) == 0 {
			break
		}

		for _, raw := range page.Data {
			if maxDepth > 0 && sequenceDepth(raw.Location.Sequence) > maxDepth {
				continue
			}
			items = append(items, flattenItem(raw))
		}

		startAt += pageSize
		if startAt >= page.Meta.PageInfo.TotalResults {
			break
		}
	}

	return items, nil
}

// ItemsByComponent returns the component matched by sequence or name plus
// everything beneath it. When maxDepth > 0 it bounds the depth relative
// to the component.
func (c *Client) ItemsByComponent(ctx context.Context, sequence, name string, maxDepth int) ([]Item, error) {
	all, err := c.AllItems(ctx, 0)
	if err != nil {
		return nil, err
	}

	var out []Item
	targetSequence := ""
	found := false

	for _, item := range all {
		if !found {
			if (sequence != "" && item.Sequence == sequence) ||
				(name != "" && item.Name == name) {
				found = true
				targetSequence = item.Sequence
				out = append(out, item)
			}
			continue
		}
		if !strings.HasPrefix(item.Sequence, targetSequence+".") {
			continue
		}
		if maxDepth > 0 && sequenceDepth(item.Sequence)-sequenceDepth(targetSequence) > maxDepth {
			continue
		}
		out = append(out, item)
	}

	return out, nil
}

// ItemFields is the writable field set for create/update calls.
type ItemFields struct {
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	Assignee      string `json:"assignee,omitempty"`
	Status        string `json:"status,omitempty"`
	Tags          string `json:"tags,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Preconditions string `json:"preconditions,omitempty"`
	TargetSystem  string `json:"target_system,omitempty"`
}

// CreateItem creates an item under the given parent and returns its id.
func (c *Client) CreateItem(ctx context.Context, parentID, itemTypeID int, fields ItemFields) (int, error) {
	if itemTypeID == 0 {
		itemTypeID = 1
	}
	body := map[string]any{
		"project":       c.cfg.ProjectID,
		"itemType":      itemTypeID,
		"childItemType": itemTypeID,
		"location": map[string]any{
			"parent": map[string]any{
				"item":    parentID,
				"project": c.cfg.ProjectID,
			},
		},
		"fields": fields,
	}

	var resp struct {
		ID int `json:"id"`
	}
	if err := c.request(ctx, http.MethodPost, itemsPath, nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateItem replaces the writable fields of an existing item.
func (c *Client) UpdateItem(ctx context.Context, itemID int, fields ItemFields) error {
	body := map[string]any{"fields": fields}
	endpoint := fmt.Sprintf("%s/%d", itemsPath, itemID)
	return c.request(ctx, http.MethodPut, endpoint, nil, body, nil)
}

// DeleteItem deactivates an item.
func (c *Client) DeleteItem(ctx context.Context, itemID int) error {
	endpoint := fmt.Sprintf("%s/%d", itemsPath, itemID)
	return c.request(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

func flattenItem(raw apiItem) Item {
	str := func(key string) string {
		if v, ok := raw.Fields[key].(string); ok {
			return v
		}
		return ""
	}
	return Item{
		JamaID:          raw.ID,
		Sequence:        raw.Location.Sequence,
		ParentID:        raw.Location.Parent.Item,
		ItemTypeID:      raw.ItemType,
		ChildItemTypeID: raw.ChildItemType,
		Name:            str("name"),
		Description:     str("description"),
		Assignee:        str("assignee"),
		Status:          str("status"),
		Tags:            str("tags"),
		Reason:          str("reason"),
		Preconditions:   str("preconditions"),
		TargetSystem:    str("target_system"),
		CreatedDate:     raw.CreatedDate,
		ModifiedDate:    raw.ModifiedDate,
	}
}

func sequenceDepth(sequence string) int {
	if sequence == "" {
		return 0
	}
	return strings.Count(sequence, ".") + 1
}
