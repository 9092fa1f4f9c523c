// Package gearlinesdk is a minimal client for the Gearline HTTP API.
package gearlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Gearline server.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Record mirrors the API record model. Placement and state travel as raw
// JSON so the client does not need the server's variant types.
type Record struct {
	ID       string          `json:"id"`
	TypeID   string          `json:"typeId"`
	ParentID string          `json:"parentId,omitempty"`
	SlotName string          `json:"slotName,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
}

// RestoreOutcome mirrors the API outcome model.
type RestoreOutcome struct {
	AttemptID         string `json:"attempt_id"`
	Succeeded         bool   `json:"succeeded"`
	ItemsAdded        int    `json:"items_added"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	NonManagedSkipped int    `json:"non_managed_skipped"`
	FailKind          string `json:"fail_kind,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// RestoreResult is the restore endpoint response.
type RestoreResult struct {
	Outcome RestoreOutcome `json:"outcome"`
	Records []Record       `json:"records"`
}

// SnapshotInfo is the snapshot metadata response.
type SnapshotInfo struct {
	Identity  string `json:"identity"`
	SizeBytes int64  `json:"size_bytes"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	base := strings.TrimRight(c.BaseURL, "/")
	u, err := url.Parse(base + path)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// Restore applies the stored snapshot for identity to records and returns
// the outcome with the mutated collection.
func (c *Client) Restore(ctx context.Context, identity string, records []Record) (*RestoreResult, error) {
	payload := map[string]any{"identity": identity, "records": records}
	var result RestoreResult
	if err := c.do(ctx, http.MethodPost, "/restore", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSnapshots returns identities with a stored snapshot.
func (c *Client) ListSnapshots(ctx context.Context) ([]string, error) {
	var out struct {
		Identities []string `json:"identities"`
	}
	if err := c.do(ctx, http.MethodGet, "/snapshots", nil, &out); err != nil {
		return nil, err
	}
	return out.Identities, nil
}

// GetSnapshot returns metadata for one identity's snapshot.
func (c *Client) GetSnapshot(ctx context.Context, identity string) (*SnapshotInfo, error) {
	var info SnapshotInfo
	if err := c.do(ctx, http.MethodGet, "/snapshots/"+url.PathEscape(identity), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSnapshot discards the stored snapshot for identity.
func (c *Client) DeleteSnapshot(ctx context.Context, identity string) error {
	return c.do(ctx, http.MethodDelete, "/snapshots/"+url.PathEscape(identity), nil, nil)
}
