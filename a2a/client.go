package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/routermesh/card"
	"github.com/hupe1980/routermesh/core"
	"github.com/hupe1980/routermesh/logging"
)

// noResponseText is returned when a call completes without yielding any
// result payload at all.
const noResponseText = "no response received"

// Options holds configuration overrides passed to NewClient. The four
// timeout classes are independently configurable; Timeout additionally
// bounds the whole call including response read.
type Options struct {
	// Timeout bounds the complete dispatch call (and response read).
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
	// WriteTimeout bounds the request write handshake.
	WriteTimeout time.Duration
	// PoolTimeout bounds how long idle pooled connections are retained.
	PoolTimeout time.Duration
	// HTTPClient overrides the internally constructed transport entirely.
	HTTPClient *http.Client
	// Logger receives dispatch diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Client dispatches task requests to remote services over JSON-RPC. It is
// stateless apart from the shared endpoint Directory it reads, so a single
// Client is safe for concurrent use across requests.
type Client struct {
	directory *card.Directory
	http      *http.Client
	logger    logging.Logger
}

// NewClient constructs a Client bound to the given endpoint directory.
// Defaults mirror the recommended dispatch budget: 240s overall, 10s
// connect, 10s write, 5s pool.
func NewClient(directory *card.Directory, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout:        240 * time.Second,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   10 * time.Second,
		PoolTimeout:    5 * time.Second,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
				TLSHandshakeTimeout:   opts.ConnectTimeout,
				ResponseHeaderTimeout: opts.Timeout,
				ExpectContinueTimeout: opts.WriteTimeout,
				IdleConnTimeout:       opts.PoolTimeout,
				MaxIdleConnsPerHost:   4,
			},
		}
	}

	return &Client{directory: directory, http: httpClient, logger: opts.Logger}
}

// Dispatch resolves the service's card, sends the text payload as a
// message/send task request and returns the aggregated textual result.
//
// The result text is extracted from artifacts[0].parts[0].text; when a
// response is present but does not match that shape, the stringified payload
// is returned instead of an error so the orchestration loop always receives
// some text for a received response. Transport failures return
// ErrDispatchTimeout or ErrUnreachable.
func (c *Client) Dispatch(ctx context.Context, baseURL, text string) (string, error) {
	agentCard, err := c.directory.Resolve(ctx, baseURL)
	if err != nil {
		return "", err
	}

	endpoint := agentCard.URL
	if endpoint == "" {
		endpoint = baseURL
	}

	reqBody := Request{
		JSONRPC: "2.0",
		ID:      core.NewID(),
		Method:  MethodMessageSend,
		Params:  SendParams{Message: NewUserMessage(text)},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding task request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building request for %s: %v", ErrUnreachable, endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		classified := classifyTransportError(endpoint, err)
		c.logger.Error("dispatch transport failure", "endpoint", endpoint, "error", classified.Error())
		return "", classified
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrUnreachable, endpoint, resp.StatusCode)
	}

	var result string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		result, err = c.readStream(resp)
	} else {
		result, err = c.readSingle(resp)
	}
	if err != nil {
		return "", err
	}

	c.logger.Debug("dispatch completed", "endpoint", endpoint, "duration", time.Since(start).String())

	return result, nil
}

// readSingle decodes a single JSON-RPC response document.
func (c *Client) readSingle(resp *http.Response) (string, error) {
	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnreachable, err)
	}
	if envelope.Error != nil {
		return "", fmt.Errorf("%w: remote error %d: %s", ErrUnreachable, envelope.Error.Code, envelope.Error.Message)
	}

	return c.extractText(envelope.Result), nil
}

// readStream consumes an incremental event stream, aggregating every data
// frame and extracting the result from the last frame carrying one.
func (c *Client) readStream(resp *http.Response) (string, error) {
	var last json.RawMessage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var envelope Response
		if err := json.Unmarshal([]byte(data), &envelope); err != nil {
			continue
		}
		if envelope.Error != nil {
			return "", fmt.Errorf("%w: remote error %d: %s", ErrUnreachable, envelope.Error.Code, envelope.Error.Message)
		}
		if len(envelope.Result) > 0 {
			last = envelope.Result
		}
	}
	if err := scanner.Err(); err != nil {
		return "", classifyTransportError("stream", err)
	}

	return c.extractText(last), nil
}

// extractText follows the fixed result path artifacts[0].parts[0].text. A
// present but differently shaped result is stringified rather than rejected
// so a malformed response never crashes the orchestration loop; the fallback
// is logged distinctly from a structured extraction.
func (c *Client) extractText(result json.RawMessage) string {
	if len(result) == 0 {
		return noResponseText
	}

	var task Task
	if err := json.Unmarshal(result, &task); err == nil {
		if len(task.Artifacts) > 0 && len(task.Artifacts[0].Parts) > 0 && task.Artifacts[0].Parts[0].Text != "" {
			return task.Artifacts[0].Parts[0].Text
		}
	}

	c.logger.Warn("result extraction fell back to stringified response")

	return string(result)
}

// classifyTransportError maps a transport failure onto the dispatch error
// taxonomy while keeping caller-initiated cancellation distinguishable.
func classifyTransportError(endpoint string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("dispatch to %s cancelled: %w", endpoint, context.Canceled)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", ErrDispatchTimeout, endpoint, err)
	}

	return fmt.Errorf("%w: %s: %v", ErrUnreachable, endpoint, err)
}
