// internal/garmin/client.go
package garmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/sstent/garminexport/internal/activity"
	"github.com/sstent/garminexport/internal/config"
	"github.com/sstent/garminexport/internal/properties"
)

// Client is an authenticated Garmin Connect session. The cookie jar holds the
// session after Login; every later request reuses it.
type Client struct {
	httpClient *http.Client
	urls       config.URLs
	logger     *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added if
// the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Detail is a per-activity detail object together with the exact bytes it
// was decoded from.
type Detail struct {
	Record activity.Record
	Raw    []byte
}

// NewClient creates a new Garmin Connect client from cfg.
func NewClient(cfg config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		urls:       cfg.URLs,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// URLs returns the endpoints this client was configured with.
func (c *Client) URLs() config.URLs {
	return c.urls
}

// UserStats retrieves the account statistics.
func (c *Client) UserStats(ctx context.Context) (activity.Record, error) {
	c.logger.Info("Fetching user stats", "url", c.urls.UserStats)
	body, err := c.fetch(ctx, c.urls.UserStats, nil)
	if err != nil {
		return nil, fmt.Errorf("could not get user stats: %w", err)
	}
	return activity.Decode(body)
}

// TotalActivities returns userMetrics[0].totalActivities from the user stats.
func (c *Client) TotalActivities(ctx context.Context) (int, error) {
	stats, err := c.UserStats(ctx)
	if err != nil {
		return 0, err
	}
	metrics, _ := stats.Get("userMetrics").([]any)
	if len(metrics) == 0 {
		return 0, fmt.Errorf("user stats carry no userMetrics")
	}
	first, _ := metrics[0].(map[string]any)
	total, ok := activity.Record(first).Int("totalActivities")
	if !ok {
		return 0, fmt.Errorf("user stats carry no totalActivities")
	}
	return total, nil
}

// ListActivities retrieves one page of activity summaries, newest first.
func (c *Client) ListActivities(ctx context.Context, start, limit int) ([]activity.Record, error) {
	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.fetch(ctx, c.urls.List, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activity.DecodeList(body)
}

// ActivityDetail retrieves the detail object of one activity. The result may
// lack its summaryDTO; callers decide whether to ask again.
func (c *Client) ActivityDetail(ctx context.Context, activityID string) (Detail, error) {
	body, err := c.fetch(ctx, c.urls.Activity+"/"+activityID, nil)
	if err != nil {
		return Detail{}, err
	}
	rec, err := activity.Decode(body)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Record: rec, Raw: body}, nil
}

// Device retrieves the device description for an application installation id.
func (c *Client) Device(ctx context.Context, installationID string) (activity.Record, error) {
	body, err := c.fetch(ctx, c.urls.Device+"/"+installationID, nil)
	if err != nil {
		return nil, err
	}
	return activity.Decode(body)
}

// Gear retrieves the gear used for an activity.
func (c *Client) Gear(ctx context.Context, activityID string) ([]activity.Record, error) {
	body, err := c.fetch(ctx, c.urls.Gear+"/"+activityID, nil)
	if err != nil {
		return nil, err
	}
	return activity.DecodeList(body)
}

// ActivityTypes retrieves the display names of activity types.
func (c *Client) ActivityTypes(ctx context.Context) (properties.Properties, error) {
	return c.properties(ctx, c.urls.ActivityTypes)
}

// EventTypes retrieves the display names of event types.
func (c *Client) EventTypes(ctx context.Context) (properties.Properties, error) {
	return c.properties(ctx, c.urls.EventTypes)
}

// Download fetches the export of an activity in format. A non-2xx answer is
// returned as *StatusError.
func (c *Client) Download(ctx context.Context, format Format, activityID string) ([]byte, error) {
	base, err := c.downloadURL(format)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("full", "true")
	return c.fetch(ctx, base+"/"+activityID, params)
}

func (c *Client) downloadURL(format Format) (string, error) {
	switch format {
	case FormatOriginal:
		return c.urls.OriginalActivity, nil
	case FormatGPX:
		return c.urls.GPXActivity, nil
	case FormatTCX:
		return c.urls.TCXActivity, nil
	}
	return "", fmt.Errorf("%w: no download endpoint for %q", ErrUnknownFormat, format)
}

func (c *Client) properties(ctx context.Context, rawURL string) (properties.Properties, error) {
	body, err := c.fetch(ctx, rawURL, nil)
	if err != nil {
		return properties.Properties{}, err
	}
	return properties.ParseString(string(body))
}

// fetch issues a GET and returns the body of a 2xx response.
func (c *Client) fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, params, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: truncate(body, 512)}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, body io.Reader, header http.Header) (*http.Response, error) {
	target := rawURL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.logger.Debug("request", "method", method, "url", target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	return resp, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
