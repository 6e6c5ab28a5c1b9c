package retroachievements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"romsift/internal/logging"
	"romsift/internal/services"
)

const (
	DefaultBaseURL = "https://retroachievements.org/API"

	endpointGameList     = "API_GetGameList.php"
	endpointGameExtended = "API_GetGameExtended.php"
	endpointGameHashes   = "API_GetGameHashes.php"

	maxErrorBody = 512
)

// Client provides access to the RetroAchievements API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithLogger attaches a logger used for request tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "retroachievements")
	}
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "retroachievements", "new client", "invalid base url", err)
	}
	client := &Client{
		baseURL:    baseURL,
		userAgent:  "romsift",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GameList returns one page of the console's game list.
func (c *Client) GameList(ctx context.Context, creds Credentials, opts ListOptions) ([]GameListEntry, error) {
	params := url.Values{}
	params.Set("i", strconv.Itoa(opts.ConsoleID))
	if opts.OnlyWithAchievements {
		params.Set("f", "1")
	}
	if opts.Offset > 0 {
		params.Set("o", strconv.Itoa(opts.Offset))
	}
	if opts.Count > 0 {
		params.Set("c", strconv.Itoa(opts.Count))
	}
	body, err := c.get(ctx, creds, endpointGameList, params)
	if err != nil {
		return nil, err
	}
	var games []GameListEntry
	if err := json.Unmarshal(body, &games); err != nil {
		return nil, decodeError(endpointGameList, err)
	}
	return games, nil
}

// GameExtended returns the extended record of one game.
func (c *Client) GameExtended(ctx context.Context, creds Credentials, gameID int64) (*GameExtended, error) {
	params := url.Values{}
	params.Set("i", strconv.FormatInt(gameID, 10))
	body, err := c.get(ctx, creds, endpointGameExtended, params)
	if err != nil {
		return nil, err
	}
	var game GameExtended
	if err := json.Unmarshal(body, &game); err != nil {
		return nil, decodeError(endpointGameExtended, err)
	}
	game.Raw = json.RawMessage(body)
	return &game, nil
}

// GameHashes returns the supported ROM hashes of one game.
func (c *Client) GameHashes(ctx context.Context, creds Credentials, gameID int64) ([]Hash, error) {
	params := url.Values{}
	params.Set("i", strconv.FormatInt(gameID, 10))
	body, err := c.get(ctx, creds, endpointGameHashes, params)
	if err != nil {
		return nil, err
	}
	var payload hashesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError(endpointGameHashes, err)
	}
	if payload.Results == nil {
		return []Hash{}, nil
	}
	return payload.Results, nil
}

func (c *Client) get(ctx context.Context, creds Credentials, endpoint string, params url.Values) ([]byte, error) {
	if !creds.Complete() {
		return nil, services.Wrap(services.ErrAuth, "retroachievements", endpoint, "username and api key required", nil)
	}
	params.Set("z", creds.Username)
	params.Set("y", creds.APIKey)

	target := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "retroachievements", endpoint, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "retroachievements", endpoint,
			fmt.Sprintf("execute request (latency=%v)", latency.Round(time.Millisecond)), redactURLError(err))
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "retroachievements", endpoint, "read response", err)
	}
	return body, nil
}

func decodeError(endpoint string, err error) error {
	return services.Wrap(services.ErrNetwork, "retroachievements", endpoint, "decode response", err)
}

// redactURLError strips the query string (which carries the API key) from
// transport errors before they reach logs.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	if idx := strings.IndexByte(redacted.URL, '?'); idx >= 0 {
		redacted.URL = redacted.URL[:idx]
	}
	return &redacted
}
