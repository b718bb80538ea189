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
)

// EntitySetResolver maps an entity logical name to its
// network-addressable plural entity-set name. It is consumed by the
// execution layer, never by the transpiler.
type EntitySetResolver interface {
	EntitySetName(ctx context.Context, environmentURL, entity string) (string, error)
}

// WebAPIResolver resolves entity-set names from the EntityDefinitions
// endpoint, caching results in the optional Store.
type WebAPIResolver struct {
	http   *http.Client
	tokens dataverse.TokenSource
	store  *Store // optional, may be nil
	logger *slog.Logger
}

// NewWebAPIResolver creates a resolver. store may be nil.
func NewWebAPIResolver(tokens dataverse.TokenSource, store *Store, logger *slog.Logger) *WebAPIResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebAPIResolver{
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		store:  store,
		logger: logger,
	}
}

// EntitySetName implements EntitySetResolver.
func (r *WebAPIResolver) EntitySetName(ctx context.Context, environmentURL, entity string) (string, error) {
	if r.store != nil {
		if entitySet, err := r.store.GetEntitySet(environmentURL, entity); err == nil {
			return entitySet, nil
		}
	}

	endpoint := fmt.Sprintf(
		"%s/api/data/v9.2/EntityDefinitions(LogicalName='%s')?$select=EntitySetName",
		strings.TrimRight(environmentURL, "/"),
		url.PathEscape(entity),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving entity set: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("entity-set request returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		EntitySetName string `json:"EntitySetName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding entity-set response: %w", err)
	}
	if payload.EntitySetName == "" {
		return "", fmt.Errorf("no entity set found for %q", entity)
	}

	if r.store != nil {
		if err := r.store.PutEntitySet(environmentURL, entity, payload.EntitySetName); err != nil {
			r.logger.Warn("persisting entity-set cache failed", "entity", entity, "error", err)
		}
	}
	return payload.EntitySetName, nil
}

// NaiveResolver derives the plural name by English pluralization rules.
// It is an offline fallback for environments without metadata access.
type NaiveResolver struct{}

// EntitySetName implements EntitySetResolver.
func (NaiveResolver) EntitySetName(_ context.Context, _, entity string) (string, error) {
	return Pluralize(entity), nil
}

// Pluralize applies the service's naive pluralization convention.
func Pluralize(name string) string {
	switch {
	case name == "":
		return name
	case strings.HasSuffix(name, "y") && !hasVowelBeforeY(name):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "ch"), strings.HasSuffix(name, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

func hasVowelBeforeY(name string) bool {
	if len(name) < 2 {
		return false
	}
	return strings.ContainsRune("aeiou", rune(name[len(name)-2]))
}
