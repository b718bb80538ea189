// Package dataverse provides the thin HTTP execution client that runs
// FetchXML queries against the remote data service's OData endpoint.
// Retry and backoff belong to callers; the client performs exactly one
// request per call.
package dataverse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// apiPath is the Web API route prefix queries are executed against.
const apiPath = "/api/data/v9.2/"

// TokenSource supplies a bearer token for the service. Acquisition and
// refresh are owned entirely by the implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token, typically read
// from configuration or the environment.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("no access token configured")
	}
	return string(t), nil
}

// ResultSet is the tabular outcome of one executed query.
type ResultSet struct {
	Columns []string
	Rows    []map[string]any
}

// Client executes FetchXML against one environment.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// NewClient creates a client for the environment at baseURL.
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
		tokens:  tokens,
		logger:  logger,
	}
}

// Execute runs the FetchXML query against the given entity set and
// returns the decoded rows.
func (c *Client) Execute(ctx context.Context, entitySet, fetchXML string) (*ResultSet, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}

	endpoint := c.baseURL + apiPath + url.PathEscape(entitySet) + "?fetchXml=" + url.QueryEscape(fetchXML)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("x-request-id", requestID)

	c.logger.Debug("executing fetchxml query",
		"entity_set", entitySet,
		"request_id", requestID,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return buildResultSet(payload.Value), nil
}

// buildResultSet assembles a ResultSet from decoded rows, dropping
// OData annotation keys and ordering columns alphabetically.
func buildResultSet(rows []map[string]any) *ResultSet {
	rs := &ResultSet{}
	seen := map[string]bool{}
	for _, row := range rows {
		clean := make(map[string]any, len(row))
		for key, val := range row {
			if strings.HasPrefix(key, "@") || strings.Contains(key, "@odata") {
				continue
			}
			clean[key] = val
			if !seen[key] {
				seen[key] = true
				rs.Columns = append(rs.Columns, key)
			}
		}
		rs.Rows = append(rs.Rows, clean)
	}
	sort.Strings(rs.Columns)
	return rs
}

// FilterColumns narrows the result set to the allow-list computed by
// the virtual column rewrite and re-labels columns through the SQL
// aliases. A nil allow-list keeps every column.
func FilterColumns(rs *ResultSet, allow []string, aliases map[string]string) *ResultSet {
	if rs == nil || allow == nil {
		return relabel(rs, aliases)
	}

	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}

	out := &ResultSet{}
	for _, col := range allow {
		out.Columns = append(out.Columns, col)
	}
	for _, row := range rs.Rows {
		filtered := make(map[string]any, len(allow))
		for key, val := range row {
			if allowed[key] {
				filtered[key] = val
			}
		}
		out.Rows = append(out.Rows, filtered)
	}
	return relabel(out, aliases)
}

// relabel renames columns according to the alias map.
func relabel(rs *ResultSet, aliases map[string]string) *ResultSet {
	if rs == nil || len(aliases) == 0 {
		return rs
	}
	out := &ResultSet{Columns: make([]string, len(rs.Columns))}
	for i, col := range rs.Columns {
		if alias, ok := aliases[col]; ok {
			out.Columns[i] = alias
		} else {
			out.Columns[i] = col
		}
	}
	for _, row := range rs.Rows {
		renamed := make(map[string]any, len(row))
		for key, val := range row {
			if alias, ok := aliases[key]; ok {
				renamed[alias] = val
			} else {
				renamed[key] = val
			}
		}
		out.Rows = append(out.Rows, renamed)
	}
	return out
}
