// Package salesforce is a thin client for the Salesforce REST and Bulk 2.0
// query APIs: username-password token grant, synchronous SOQL queries with
// cursor paging, and the asynchronous query-job lifecycle.
package salesforce

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

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/pkg/httpretry"
)

// Client is the Salesforce API client.
type Client struct {
	loginURL      string
	clientID      string
	clientSecret  string
	username      string
	password      string
	securityToken string
	apiVersion    string

	instanceURL string
	accessToken string

	httpClient httpretry.HTTPDoer
}

// NewClient creates a Salesforce client from config. Login must be called
// before any data method.
func NewClient(cfg config.SalesforceConfig, retries int) *Client {
	return &Client{
		loginURL:      strings.TrimRight(cfg.LoginURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		username:      cfg.Username,
		password:      cfg.Password,
		securityToken: cfg.SecurityToken,
		apiVersion:    cfg.APIVersion,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, retries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetSession installs an already-established session (useful for testing).
func (c *Client) SetSession(instanceURL, accessToken string) {
	c.instanceURL = strings.TrimRight(instanceURL, "/")
	c.accessToken = accessToken
}

// Login performs the OAuth username-password grant and stores the session.
// The security token is appended to the password, as Salesforce requires for
// requests from outside a trusted IP range.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("username", c.username)
	form.Set("password", c.password+c.securityToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.loginURL+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr tokenError
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error != "" {
			return fmt.Errorf("authentication failed: %s (%s)", oauthErr.Error, oauthErr.Description)
		}
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return fmt.Errorf("login response missing access token or instance URL")
	}

	c.accessToken = token.AccessToken
	c.instanceURL = strings.TrimRight(token.InstanceURL, "/")
	return nil
}

// restURL builds an absolute URL for a versioned REST path.
func (c *Client) restURL(path string) string {
	return fmt.Sprintf("%s/services/data/%s%s", c.instanceURL, c.apiVersion, path)
}

// doRequest performs an authenticated request and returns body and headers.
// Non-2xx responses come back as *APIError.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, body interface{}, accept string) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, resp.Header, nil
}

// ========== Synchronous query (REST) ==========

// Query runs a SOQL query and returns the first page.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResponse, error) {
	endpoint := c.restURL("/query?q=" + url.QueryEscape(soql))

	respBody, _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var page QueryResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}
	return &page, nil
}

// QueryMore follows a continuation cursor returned in a previous page's
// nextRecordsUrl.
func (c *Client) QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResponse, error) {
	respBody, _, err := c.doRequest(ctx, http.MethodGet, c.instanceURL+nextRecordsURL, nil, "")
	if err != nil {
		return nil, err
	}

	var page QueryResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("failed to parse query page: %w", err)
	}
	return &page, nil
}

// ========== Bulk API 2.0 query jobs ==========

// CreateQueryJob submits an asynchronous query job.
func (c *Client) CreateQueryJob(ctx context.Context, soql string) (*BulkJob, error) {
	respBody, _, err := c.doRequest(ctx, http.MethodPost, c.restURL("/jobs/query"),
		bulkJobRequest{Operation: "query", Query: soql}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create query job: %w", err)
	}

	var job BulkJob
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("query job created but no ID returned")
	}
	return &job, nil
}

// GetQueryJob fetches the current state of a query job.
func (c *Client) GetQueryJob(ctx context.Context, jobID string) (*BulkJob, error) {
	respBody, _, err := c.doRequest(ctx, http.MethodGet, c.restURL("/jobs/query/"+jobID), nil, "")
	if err != nil {
		return nil, err
	}

	var job BulkJob
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job status: %w", err)
	}
	return &job, nil
}

// GetQueryJobResults fetches one CSV batch of a completed job's results.
// locator is empty for the first batch. The returned locator is empty once
// the result set is exhausted.
func (c *Client) GetQueryJobResults(ctx context.Context, jobID, locator string, maxRecords int) ([]byte, string, error) {
	params := url.Values{}
	if locator != "" {
		params.Set("locator", locator)
	}
	if maxRecords > 0 {
		params.Set("maxRecords", strconv.Itoa(maxRecords))
	}
	endpoint := c.restURL("/jobs/query/" + jobID + "/results")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	csvBody, headers, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, "text/csv")
	if err != nil {
		return nil, "", err
	}

	next := headers.Get("Sforce-Locator")
	if next == locatorDone {
		next = ""
	}
	return csvBody, next, nil
}

// AbortQueryJob transitions a job to Aborted so the server stops working on
// it. Used when the local wait budget runs out.
func (c *Client) AbortQueryJob(ctx context.Context, jobID string) error {
	_, _, err := c.doRequest(ctx, http.MethodPatch, c.restURL("/jobs/query/"+jobID),
		bulkJobAbort{State: JobStateAborted}, "")
	if err != nil {
		return fmt.Errorf("failed to abort query job %s: %w", jobID, err)
	}
	return nil
}

// DeleteQueryJob deletes a job record (cleanup after results are retrieved).
func (c *Client) DeleteQueryJob(ctx context.Context, jobID string) error {
	_, _, err := c.doRequest(ctx, http.MethodDelete, c.restURL("/jobs/query/"+jobID), nil, "")
	if err != nil {
		return fmt.Errorf("failed to delete query job %s: %w", jobID, err)
	}
	return nil
}

// Terminal reports whether an error from a data method is permanent for the
// current object, as opposed to a transient condition the retry layer already
// gave up on.
func Terminal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	return false
}

// WaitForSession is a convenience used at startup: it retries Login briefly
// so a transient token-endpoint blip does not kill a scheduled run.
func (c *Client) WaitForSession(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = c.Login(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
