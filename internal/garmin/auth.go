package garmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Credentials identify a Garmin Connect account.
type Credentials struct {
	Username string
	Password string
}

var ticketPattern = regexp.MustCompile(`(?s)\?ticket=([-\w]+)";`)

// Login runs the SSO handshake and leaves the session cookies in the client.
// It returns the service ticket.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	params := c.loginParams()

	c.logger.Info("Connecting to Garmin Connect", "url", c.urls.Login)
	resp, err := c.do(ctx, http.MethodGet, c.urls.Login, params, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open login page: %w", err)
	}
	drain(resp)

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("embed", "false")
	form.Set("rememberme", "on")

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Referer", c.urls.Login)

	c.logger.Info("Requesting login ticket")
	resp, err = c.do(ctx, http.MethodPost, c.urls.Login, params, strings.NewReader(form.Encode()), header)
	if err != nil {
		return "", fmt.Errorf("failed to post credentials: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}

	match := ticketPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("%w; did you enter the correct username and password?", ErrNoTicket)
	}
	ticket := string(match[1])

	c.logger.Info("Authenticating", "url", c.urls.PostAuth)
	resp, err = c.do(ctx, http.MethodGet, c.urls.PostAuth, url.Values{"ticket": {ticket}}, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to exchange ticket: %w", err)
	}
	drain(resp)

	return ticket, nil
}

func (c *Client) loginParams() url.Values {
	p := url.Values{}
	p.Set("service", c.urls.PostAuth)
	p.Set("webhost", c.urls.WebHost)
	p.Set("source", c.urls.Signin)
	p.Set("redirectAfterAccountLoginUrl", c.urls.PostAuth)
	p.Set("redirectAfterAccountCreationUrl", c.urls.PostAuth)
	p.Set("gauthHost", c.urls.SSO)
	p.Set("locale", "en_US")
	p.Set("id", "gauth-widget")
	p.Set("cssUrl", c.urls.CSS)
	p.Set("clientId", "GarminConnect")
	p.Set("rememberMeShown", "true")
	p.Set("rememberMeChecked", "false")
	p.Set("createAccountShown", "true")
	p.Set("openCreateAccount", "false")
	p.Set("displayNameShown", "false")
	p.Set("consumeServiceTicket", "false")
	p.Set("initialFocus", "true")
	p.Set("embedWidget", "false")
	p.Set("generateExtraServiceTicket", "true")
	p.Set("generateTwoExtraServiceTickets", "false")
	p.Set("generateNoServiceTicket", "false")
	p.Set("globalOptInShown", "true")
	p.Set("globalOptInChecked", "false")
	p.Set("mobile", "false")
	p.Set("connectLegalTerms", "true")
	p.Set("locationPromptShown", "true")
	p.Set("showPassword", "true")
	return p
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
