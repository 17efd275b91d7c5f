package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwttoken "shebuilds/internal/jwt_token"
	"shebuilds/internal/platform/config"
	"shebuilds/pkg/domain"
)

const defaultAdmin = "0xa000000000000000000000000000000000000001"

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	Admin            domain.Principal

	jwt        *jwttoken.JWTService
	actors     map[string]domain.Principal
	remembered map[string]string
	env        *inProcessEnv
}

// NewTestContext builds an idle context. Start picks the target server.
func NewTestContext() *TestContext {
	return &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		jwt: jwttoken.NewJWTService(
			envOr("SHEBUILDS_AUTH_SIGNING_KEY", config.DevSigningKey),
			envOr("SHEBUILDS_AUTH_ISSUER", "http://localhost:8080"),
			envOr("SHEBUILDS_AUTH_AUDIENCE", "shebuilds-ledger"),
			5*time.Minute,
		),
		actors:     map[string]domain.Principal{},
		remembered: map[string]string{},
	}
}

// Start targets BASE_URL when set, otherwise a fresh in-process server.
func (tc *TestContext) Start() error {
	admin, err := domain.ParsePrincipal(envOr("E2E_ADMIN_ADDRESS", defaultAdmin))
	if err != nil {
		return fmt.Errorf("parse admin address: %w", err)
	}
	tc.Admin = admin
	tc.actors["admin"] = admin

	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
	env, err := startInProcess(admin, tc.jwt)
	if err != nil {
		return err
	}
	tc.env = env
	tc.BaseURL = env.server.URL
	return nil
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.env != nil {
		tc.env.close()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Actor returns a stable address for a named participant. Unknown names get
// a fresh address derived from the name.
func (tc *TestContext) Actor(name string) domain.Principal {
	if p, ok := tc.actors[name]; ok {
		return p
	}
	p := domain.MustPrincipal(fmt.Sprintf("0x%040x", len(tc.actors)+0xb0))
	tc.actors[name] = p
	return p
}

// TokenFor issues a bearer token for the named participant.
func (tc *TestContext) TokenFor(name string) (string, error) {
	return tc.jwt.IssueToken(context.Background(), tc.Actor(name))
}

func (tc *TestContext) Remember(key, value string) { tc.remembered[key] = value }

func (tc *TestContext) Recall(key string) (string, bool) {
	v, ok := tc.remembered[key]
	return v, ok
}

// PublishDocument serves body at ipfs://<cid> through the in-process gateway.
func (tc *TestContext) PublishDocument(cid string, body []byte) error {
	if tc.env == nil {
		return fmt.Errorf("metadata documents can only be published against the in-process server")
	}
	tc.env.gateway.put(cid, body)
	return nil
}

// GatewayRequests reports how many times the gateway served cid.
func (tc *TestContext) GatewayRequests(cid string) int {
	if tc.env == nil {
		return 0
	}
	return tc.env.gateway.hits(cid)
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, "", body)
}

// POSTAs makes a POST request carrying a bearer token for actor.
func (tc *TestContext) POSTAs(actor, path string, body interface{}) error {
	token, err := tc.TokenFor(actor)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodPost, path, token, body)
}

// DELETEAs makes a DELETE request carrying a bearer token for actor.
func (tc *TestContext) DELETEAs(actor, path string) error {
	token, err := tc.TokenFor(actor)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodDelete, path, token, nil)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return tc.send(req)
}

// Do sends a JSON request with an optional bearer token.
func (tc *TestContext) Do(method, path, token string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return tc.send(req)
}

func (tc *TestContext) send(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
