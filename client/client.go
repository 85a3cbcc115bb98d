// Package client consumes the REST API: it decodes the response envelope, maps failures to
// the error taxonomy and runs the CRUD and grading workflows the dashboards are built on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

const (
	statusSuccess = "success"

	headerTotalCount         = "X-Total-Count"
	headerContentDisposition = "Content-Disposition"

	defaultTimeout = 30 * time.Second
)

// envelope is the uniform response wrapper of the API.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client talks to one API server. The session travels in the cookie jar, never in client code.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	notifier   Notifier
	validate   *validator.Validate
	translator ut.Translator
	debug      bool
}

type Option func(*Client)

// WithHTTPClient replaces the default client; a jar is added when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithDebug shows server error messages in notifications instead of the generic text.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", baseURL)
	}

	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	c := &Client{
		baseURL:    u,
		http:       &http.Client{Timeout: defaultTimeout},
		notifier:   NopNotifier{},
		validate:   validate,
		translator: translator,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating cookie jar")
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.baseURL
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// response is a decoded successful call.
type response struct {
	data  json.RawMessage
	total int // X-Total-Count, -1 when absent
}

// do sends body as JSON and decodes the envelope. Any non-2xx code or non-success status is an error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return response{}, errors.Wrap(err, "encoding request body")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return response{}, errors.Wrapf(err, "creating %s request", method)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNoContent {
		return response{total: -1}, nil
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return response{}, &NetworkError{Op: method + " " + path, Err: err}
	}
	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		if res.StatusCode >= http.StatusInternalServerError || res.StatusCode < http.StatusBadRequest {
			return response{}, &ServerError{Code: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		env = envelope{Message: http.StatusText(res.StatusCode)}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 || env.Status != statusSuccess {
		return response{}, errorFromEnvelope(res.StatusCode, env)
	}

	total := -1
	if v := res.Header.Get(headerTotalCount); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}
	return response{data: env.Data, total: total}, nil
}

// call does a request and decodes the envelope's data into out when out is not nil.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	res, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if out == nil || len(res.data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(res.data, out), "decoding response data")
}

// download fetches a binary stream, such as a homework attachment.
func (c *Client) download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, nil), nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating GET request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Op: "GET " + path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", &NetworkError{Op: "GET " + path, Err: err}
	}
	if res.StatusCode != http.StatusOK {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return nil, "", errorFromEnvelope(res.StatusCode, env)
	}
	return raw, res.Header.Get(headerContentDisposition), nil
}

// Prevalidate checks a request body with the rules the server enforces, without a network call.
func (c *Client) Prevalidate(fields interface{}) error {
	if fields == nil {
		return nil
	}
	err := c.validate.Struct(fields)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return &ValidationError{Message: "validation failed", Fields: core.TranslateErrors(vErrs, c.translator)}
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) { // not a struct: only the server can tell
		return nil
	}
	return err
}

// Schema fetches the validation rules of one request body, by entity name.
func (c *Client) Schema(ctx context.Context, entity string) ([]core.FieldRule, error) {
	var schema struct {
		Fields []core.FieldRule `json:"fields"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/schema/"+url.PathEscape(entity), nil, &schema); err != nil {
		return nil, err
	}
	return schema.Fields, nil
}

// AuthResult is what the login flows return; the token itself stays in the cookie jar.
type AuthResult struct {
	User    user.User       `json:"user"`
	Session json.RawMessage `json:"session"`
}

func (c *Client) Login(ctx context.Context, username, password string) (user.User, error) {
	var res AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return user.User{}, err
	}
	return res.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var res AuthResult
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &res); err != nil {
		return user.User{}, err
	}
	return res.User, nil
}
