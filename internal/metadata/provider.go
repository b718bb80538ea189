// Package metadata implements the attribute-metadata collaborator: a
// Web-API-backed provider, a caching decorator, and the entity-set
// resolver. The transpiler core never talks to this package directly;
// it only receives resolved []schema.AttributeDescriptor snapshots.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/querylink/fetchsql/internal/dataverse"
	"github.com/querylink/fetchsql/pkg/schema"
)

// Provider returns the attribute metadata of an entity in an
// environment.
type Provider interface {
	Attributes(ctx context.Context, environmentURL, entity string) ([]schema.AttributeDescriptor, error)
}

// WebAPIProvider fetches attribute metadata from the service's
// EntityDefinitions endpoint.
type WebAPIProvider struct {
	http   *http.Client
	tokens dataverse.TokenSource
	logger *slog.Logger
}

// NewWebAPIProvider creates a metadata provider using the given token
// source.
func NewWebAPIProvider(tokens dataverse.TokenSource, logger *slog.Logger) *WebAPIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebAPIProvider{
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		logger: logger,
	}
}

// attributeDTO mirrors the wire shape of one attribute definition.
// AttributeOf is non-empty on virtual display columns and names the
// parent attribute.
type attributeDTO struct {
	LogicalName   string `json:"LogicalName"`
	AttributeType string `json:"AttributeType"`
	AttributeOf   string `json:"AttributeOf"`
	DisplayName   struct {
		UserLocalizedLabel struct {
			Label string `json:"Label"`
		} `json:"UserLocalizedLabel"`
	} `json:"DisplayName"`
}

// Attributes implements Provider.
func (p *WebAPIProvider) Attributes(ctx context.Context, environmentURL, entity string) ([]schema.AttributeDescriptor, error) {
	endpoint := fmt.Sprintf(
		"%s/api/data/v9.2/EntityDefinitions(LogicalName='%s')/Attributes?$select=LogicalName,AttributeType,AttributeOf,DisplayName",
		strings.TrimRight(environmentURL, "/"),
		url.PathEscape(entity),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	p.logger.Debug("fetching attribute metadata", "entity", entity)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("metadata request returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Value []attributeDTO `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}

	descriptors := make([]schema.AttributeDescriptor, 0, len(payload.Value))
	for _, dto := range payload.Value {
		descriptors = append(descriptors, schema.AttributeDescriptor{
			LogicalName:  dto.LogicalName,
			DisplayName:  dto.DisplayName.UserLocalizedLabel.Label,
			Type:         dto.AttributeType,
			ParentColumn: dto.AttributeOf,
		})
	}
	return descriptors, nil
}
