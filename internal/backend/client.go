package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/foxzi/leadflow/internal/metrics"
)

// Client is an outreach backend API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. nil keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on a private copy of the HTTP
// client, leaving one passed to WithHTTPClient untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a new backend API client. baseURL is the API root, e.g.
// https://app.example.com/api.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request performs an HTTP request to the backend. endpoint is a stable
// low-cardinality name used for metrics.
func (c *Client) request(ctx context.Context, endpoint, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackendRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackendRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return apiErr
	}
	apiErr.Message = errResp.message()
	apiErr.Fields = errResp.Errors
	return apiErr
}

// Health checks backend health
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doResource[HealthResponse](ctx, c, "health", http.MethodGet, "/health", nil)
}

// CreateCampaign creates a campaign
func (c *Client) CreateCampaign(ctx context.Context, req *CampaignCreateRequest) (*Campaign, error) {
	return doResource[Campaign](ctx, c, "campaigns.create", http.MethodPost, "/campaigns", req)
}

// GetCampaign gets a campaign by ID
func (c *Client) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	return doResource[Campaign](ctx, c, "campaigns.get", http.MethodGet, campaignPath(id), nil)
}

// ListCampaigns lists campaigns
func (c *Client) ListCampaigns(ctx context.Context, page int) (*List[Campaign], error) {
	path := "/campaigns" + pageQuery("", page)
	raw, err := c.rawList(ctx, "campaigns.list", path)
	if err != nil {
		return nil, err
	}
	return decodeList[Campaign](raw)
}

// CreateStep creates one step of a campaign
func (c *Client) CreateStep(ctx context.Context, campaignID int64, req *StepCreateRequest) (*Step, error) {
	return doResource[Step](ctx, c, "steps.create", http.MethodPost, campaignPath(campaignID)+"/steps", req)
}

// ListSteps lists the steps of a campaign
func (c *Client) ListSteps(ctx context.Context, campaignID int64) (*List[Step], error) {
	raw, err := c.rawList(ctx, "steps.list", campaignPath(campaignID)+"/steps")
	if err != nil {
		return nil, err
	}
	return decodeList[Step](raw)
}

// BulkLeads adds or removes many leads of a campaign in one call
func (c *Client) BulkLeads(ctx context.Context, campaignID int64, req *BulkLeadsRequest) (*BulkLeadsResponse, error) {
	return doResource[BulkLeadsResponse](ctx, c, "campaign_leads.bulk", http.MethodPost, campaignPath(campaignID)+"/campaign-leads/bulk", req)
}

// ListTemplates lists email templates
func (c *Client) ListTemplates(ctx context.Context) (*List[Template], error) {
	raw, err := c.rawList(ctx, "templates.list", "/email-templates")
	if err != nil {
		return nil, err
	}
	return decodeList[Template](raw)
}

// GetTemplate gets a template by ID
func (c *Client) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	return doResource[Template](ctx, c, "templates.get", http.MethodGet, templatePath(id), nil)
}

// CreateTemplate creates a template
func (c *Client) CreateTemplate(ctx context.Context, req *TemplateRequest) (*Template, error) {
	return doResource[Template](ctx, c, "templates.create", http.MethodPost, "/email-templates", req)
}

// UpdateTemplate updates a template
func (c *Client) UpdateTemplate(ctx context.Context, id int64, req *TemplateRequest) (*Template, error) {
	return doResource[Template](ctx, c, "templates.update", http.MethodPut, templatePath(id), req)
}

// DeleteTemplate deletes a template
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	return c.request(ctx, "templates.delete", http.MethodDelete, templatePath(id), nil, nil)
}

// ListSavedLeads lists the user's saved leads. page starts at 1; zero omits it.
func (c *Client) ListSavedLeads(ctx context.Context, search string, page int) (*List[Lead], error) {
	raw, err := c.rawList(ctx, "leads.saved", "/leads/saved"+pageQuery(search, page))
	if err != nil {
		return nil, err
	}
	return decodeList[Lead](raw)
}

// Enhance asks the backend AI collaborator to rewrite email content
func (c *Client) Enhance(ctx context.Context, req *EnhanceRequest) (*EnhanceResponse, error) {
	return doResource[EnhanceResponse](ctx, c, "ai.enhance", http.MethodPost, "/ai/enhance", req)
}

func (c *Client) rawList(ctx context.Context, endpoint, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.request(ctx, endpoint, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func campaignPath(id int64) string {
	return "/campaigns/" + strconv.FormatInt(id, 10)
}

func templatePath(id int64) string {
	return "/email-templates/" + strconv.FormatInt(id, 10)
}

func pageQuery(search string, page int) string {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}
