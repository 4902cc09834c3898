package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jankiebot/jankie/internal/forum"
)

const (
	DefaultAPIURL   = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Config holds the script-app credentials and endpoints for the client.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Username     string
	Password     string

	// APIURL and TokenURL default to Reddit's production endpoints.
	APIURL   string
	TokenURL string
	Timeout  time.Duration
}

// Client talks to the Reddit OAuth API on behalf of a script app.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

var _ forum.Client = (*Client)(nil)

// NewClient builds an authenticated client. No request is made until the
// first API call; the password grant runs lazily and again on expiry.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit: client id and secret are required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("reddit: username and password are required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("reddit: user agent is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base := &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: base,
	})
	source := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      tokenCtx,
		conf:     oauthCfg,
		username: cfg.Username,
		password: cfg.Password,
	})

	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: source, Base: base},
		},
	}, nil
}

// passwordTokenSource runs the resource-owner password grant. Script apps
// get no refresh token, so an expired token is replaced by a fresh grant.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("reddit: password grant failed: %w", err)
	}
	return token, nil
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID        string `json:"id"`
				Name      string `json:"name"`
				Author    string `json:"author"`
				Body      string `json:"body"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RecentComments lists the newest comments of subreddit, newest first.
func (c *Client) RecentComments(ctx context.Context, subreddit string, limit int) ([]forum.Comment, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	endpoint := fmt.Sprintf("%s/r/%s/comments?%s", c.apiURL, url.PathEscape(subreddit), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var out listing
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("list comments of r/%s: %w", subreddit, err)
	}

	comments := make([]forum.Comment, 0, len(out.Data.Children))
	for _, child := range out.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		d := child.Data
		name := d.Name
		if name == "" {
			name = "t1_" + d.ID
		}
		comments = append(comments, forum.Comment{
			ID:        d.ID,
			Name:      name,
			Author:    d.Author,
			Body:      d.Body,
			Permalink: d.Permalink,
		})
	}
	return comments, nil
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}

// Reply posts text as a reply to the given comment.
func (c *Client) Reply(ctx context.Context, comment forum.Comment, text string) error {
	thing := comment.Name
	if thing == "" {
		thing = "t1_" + comment.ID
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", thing)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out commentResponse
	if err := c.do(req, &out); err != nil {
		return fmt.Errorf("reply to %s: %w", thing, err)
	}
	if len(out.JSON.Errors) > 0 {
		parts := make([]string, 0, len(out.JSON.Errors))
		for _, e := range out.JSON.Errors {
			fields := make([]string, 0, len(e))
			for _, f := range e {
				fields = append(fields, fmt.Sprint(f))
			}
			parts = append(parts, strings.Join(fields, " "))
		}
		return fmt.Errorf("reply to %s rejected: %s", thing, strings.Join(parts, "; "))
	}
	return nil
}

// Me returns the authenticated account name.
func (c *Client) Me(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/api/v1/me", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}
	return out.Name, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return fmt.Errorf("reddit status %d: %s", resp.StatusCode, excerpt)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
