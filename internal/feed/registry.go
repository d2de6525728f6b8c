package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errSubjectNotFound = errors.New("schema subject not found")

// Registry resolves the schema id embedded in the wire frame.
type Registry interface {
	EnsureSchema(ctx context.Context, subject, schema string) (int, error)
}

// RegistryClient talks to a Confluent compatible schema registry.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRegistryClient constructs a client for baseURL.
func NewRegistryClient(baseURL string) *RegistryClient {
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the latest id of subject, registering schema when the
// subject does not exist yet.
func (c *RegistryClient) EnsureSchema(ctx context.Context, subject, schema string) (int, error) {
	id, err := c.latest(ctx, subject)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, errSubjectNotFound) {
		return 0, err
	}
	return c.register(ctx, subject, schema)
}

func (c *RegistryClient) latest(ctx context.Context, subject string) (int, error) {
	endpoint := fmt.Sprintf("%s/subjects/%s/versions/latest", c.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	return c.do(req, subject)
}

func (c *RegistryClient) register(ctx context.Context, subject, schema string) (int, error) {
	body, err := json.Marshal(map[string]any{
		"schemaType": "JSON",
		"schema":     schema,
	})
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/subjects/%s/versions", c.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	return c.do(req, subject)
}

func (c *RegistryClient) do(req *http.Request, subject string) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", errSubjectNotFound, subject)
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("schema registry %s %s: %s", req.Method, subject, bytes.TrimSpace(data))
	}

	var payload struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.ID, nil
}

// StaticRegistry hands out the catalog ids without a registry round trip.
type StaticRegistry struct{}

func (StaticRegistry) EnsureSchema(_ context.Context, _ string, schema string) (int, error) {
	for _, entry := range schemaCatalog {
		if entry.Schema == schema {
			return entry.StaticID, nil
		}
	}
	return 0, errors.New("schema not in catalog")
}
