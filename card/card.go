// Package card implements the endpoint directory: agent card descriptors,
// the well-known fetch used to obtain them, and a process-lifetime cache
// keyed by base address.
package card

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WellKnownPath is the fixed relative path under a service's base address
// where its agent card is published.
const WellKnownPath = "/.well-known/agent-card.json"

// TransportProtocol identifies a wire transport a service supports.
type TransportProtocol string

const (
	// TransportJSONRPC is JSON-RPC 2.0 over HTTP.
	TransportJSONRPC TransportProtocol = "JSONRPC"
	// TransportHTTPJSON is plain HTTP+JSON (REST style).
	TransportHTTPJSON TransportProtocol = "HTTP+JSON"
)

// Capabilities declares optional protocol features a service supports.
type Capabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// Skill describes one capability a service advertises to callers. Skills are
// informational; routing decisions are made by the Decision Engine, which
// sees them rendered into its instructions.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Card is the descriptor a service publishes at the well-known path: its
// identity, base URL, declared capabilities and supported transports.
// A Card is treated as immutable once fetched.
type Card struct {
	Name                 string              `json:"name"`
	Description          string              `json:"description,omitempty"`
	URL                  string              `json:"url"`
	Version              string              `json:"version,omitempty"`
	Capabilities         Capabilities        `json:"capabilities"`
	Skills               []Skill             `json:"skills,omitempty"`
	PreferredTransport   TransportProtocol   `json:"preferredTransport,omitempty"`
	AdditionalTransports []TransportProtocol `json:"additionalTransports,omitempty"`
}

// SupportsTransport reports whether the card declares the given transport,
// either as preferred or additional. A card with no declared transports is
// assumed to speak JSON-RPC.
func (c *Card) SupportsTransport(t TransportProtocol) bool {
	if c.PreferredTransport == "" && len(c.AdditionalTransports) == 0 {
		return t == TransportJSONRPC
	}
	if c.PreferredTransport == t {
		return true
	}
	for _, at := range c.AdditionalTransports {
		if at == t {
			return true
		}
	}
	return false
}

// fetch performs the well-known metadata GET against the base address and
// parses the response body into a Card.
func fetch(ctx context.Context, client *http.Client, baseURL string) (*Card, error) {
	url := strings.TrimRight(baseURL, "/") + WellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building card request for %s: %v", ErrUnreachable, baseURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching card from %s: %v", ErrUnreachable, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: card fetch from %s returned status %d", ErrUnreachable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading card body from %s: %v", ErrUnreachable, url, err)
	}

	var c Card
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed card document from %s: %v", ErrUnreachable, url, err)
	}

	return &c, nil
}
