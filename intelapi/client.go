package intelapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/activecm/rita-threats/credentials"
	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	//ErrUnauthorized is wrapped by StatusErrors for 401 responses
	ErrUnauthorized = errors.New("unauthorized")
	//ErrForbidden is wrapped by StatusErrors for 403 responses, which the
	//backend sends to non admin users of admin routes
	ErrForbidden = errors.New("forbidden")
)

type (
	//Client talks to the threat indicator backend
	Client struct {
		base      *url.URL
		http      *http.Client
		userAgent string
		log       *log.Logger
	}

	//StatusError is returned when the backend answers with a non 2xx status
	StatusError struct {
		Method   string
		Endpoint string
		Code     int
		Detail   string
	}

	//NewUser is the account created by CreateUser
	NewUser struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	// errorBody is the error document the backend sends back
	errorBody struct {
		Detail string `json:"detail"`
	}

	// statusBody is what the admin routes answer with
	statusBody struct {
		Status string `json:"status"`
	}
)

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d %s", e.Method, e.Endpoint, e.Code, http.StatusText(e.Code))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

//Unwrap lets errors.Is match ErrUnauthorized and ErrForbidden
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

//NewClient creates a client for the backend rooted at base. A zero timeout
//never times out a request
func NewClient(base *url.URL, timeout time.Duration, userAgent string, logger *log.Logger) *Client {
	return &Client{
		base:      base,
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		log:       logger,
	}
}

//FetchIndicators retrieves the complete indicator collection served at
//endpoint. The backend order is preserved
func (c *Client) FetchIndicators(ctx context.Context, endpoint, token string) ([]threat.Indicator, error) {
	var indicators []threat.Indicator
	if err := c.get(ctx, endpoint, token, &indicators); err != nil {
		return nil, err
	}
	if indicators == nil {
		indicators = []threat.Indicator{}
	}
	return indicators, nil
}

//Count retrieves the size of a collection from a count endpoint which
//answers with {"<field>": n}
func (c *Client) Count(ctx context.Context, endpoint, field, token string) (int, error) {
	var doc map[string]int
	if err := c.get(ctx, endpoint, token, &doc); err != nil {
		return 0, err
	}
	count, ok := doc[field]
	if !ok {
		return 0, fmt.Errorf("GET %s: response is missing %q", endpoint, field)
	}
	return count, nil
}

//SourceCounts retrieves the number of indicators contributed by each feed
func (c *Client) SourceCounts(ctx context.Context, token string) ([]threat.SourceCount, error) {
	var counts []threat.SourceCount
	if err := c.get(ctx, "/source_count", token, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

//Recent retrieves the newest indicator records, most recent first
func (c *Client) Recent(ctx context.Context, token string) ([]threat.Record, error) {
	var records []threat.Record
	if err := c.get(ctx, "/threats", token, &records); err != nil {
		return nil, err
	}
	return records, nil
}

//Geocode asks the backend where ip is located
func (c *Client) Geocode(ctx context.Context, ip, token string) (threat.Location, error) {
	var loc threat.Location
	err := c.get(ctx, "/geocode/"+ip, token, &loc)
	return loc, err
}

//RefreshFeeds asks the backend to pull its feeds again and returns the
//status it reports. Only admins may do this
func (c *Client) RefreshFeeds(ctx context.Context, token string) (string, error) {
	var doc statusBody
	if err := c.post(ctx, "/refresh_feeds", token, nil, &doc); err != nil {
		return "", err
	}
	return doc.Status, nil
}

//CreateUser registers a new backend user. Only admins may do this
func (c *Client) CreateUser(ctx context.Context, user NewUser, token string) (string, error) {
	var doc statusBody
	if err := c.post(ctx, "/users", token, user, &doc); err != nil {
		return "", err
	}
	return doc.Status, nil
}

//Login exchanges a username and password for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (credentials.Token, error) {
	var tok credentials.Token
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return tok, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.do(req, "/token", "", &tok); err != nil {
		return tok, err
	}
	if tok.AccessToken == "" {
		return tok, errors.New("POST /token: response did not contain an access token")
	}
	return tok, nil
}

func (c *Client) get(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return err
	}
	return c.do(req, endpoint, token, out)
}

// post sends body, if any, as JSON
func (c *Client) post(ctx context.Context, endpoint, token string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint), payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, endpoint, token, out)
}

// do sends the request and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, endpoint, token string, out interface{}) error {
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.log.WithFields(log.Fields{
		"method":     req.Method,
		"endpoint":   endpoint,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithField("error", err.Error()).Debug("request failed")
		return err
	}
	defer resp.Body.Close()

	logger.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:   req.Method,
			Endpoint: endpoint,
			Code:     resp.StatusCode,
			Detail:   readDetail(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: could not decode response: %w", req.Method, endpoint, err)
	}
	return nil
}

func (c *Client) url(endpoint string) string {
	u := *c.base
	u.Path = path.Join("/", u.Path, endpoint)
	return u.String()
}

// readDetail pulls the detail message out of an error body, falling back to
// the raw text
func readDetail(body io.Reader) string {
	raw, err := ioutil.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var doc errorBody
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Detail != "" {
		return doc.Detail
	}
	return strings.TrimSpace(string(raw))
}
