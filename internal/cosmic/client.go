package cosmic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

const (
	DefaultBaseURL = "https://api.cosmicjs.com/v3"
	defaultTimeout = 15 * time.Second

	// error bodies beyond this are truncated before being put in APIError
	maxErrorBody = 4 << 10
)

// Observer receives one call per store request. outcome is one of "ok",
// "not_found", "canceled" or "error".
type Observer interface {
	ObserveCMSRequest(op, outcome string, d time.Duration)
}

type Config struct {
	BucketSlug string
	ReadKey    string
	WriteKey   string
	BaseURL    string
	// HTTPClient overrides the default otel-instrumented client.
	HTTPClient *http.Client
	Timeout    time.Duration
	Observer   Observer
	Logger     log.Logger
}

type Client struct {
	base     string
	bucket   string
	readKey  string
	writeKey string
	hc       *http.Client
	obs      Observer
	logger   log.Logger
}

// Query selects objects of one type. Filter keys are matched against the
// object, e.g. {"metadata.status": "published"}.
type Query struct {
	Type   string
	Filter map[string]any
	Props  []string
	Depth  int
	Limit  int
	Sort   string
}

type FindResponse struct {
	Objects []json.RawMessage `json:"objects"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Skip    int               `json:"skip"`
}

type objectResponse struct {
	Object json.RawMessage `json:"object"`
}

func New(cfg Config) (*Client, error) {
	if cfg.BucketSlug == "" {
		return nil, xerrors.New("cosmic: bucket slug is required")
	}
	if cfg.ReadKey == "" {
		return nil, xerrors.New("cosmic: read key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, xerrors.Wrapf(err, "cosmic: parse base url %q", base)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		bucket:   cfg.BucketSlug,
		readKey:  cfg.ReadKey,
		writeKey: cfg.WriteKey,
		hc:       hc,
		obs:      cfg.Observer,
		logger:   logger,
	}, nil
}

// CanWrite reports whether mutations are possible.
func (c *Client) CanWrite() bool { return c.writeKey != "" }

// Find returns every object matching q.
func (c *Client) Find(ctx context.Context, q Query) (*FindResponse, error) {
	u, err := c.findURL(q)
	if err != nil {
		return nil, err
	}
	var out FindResponse
	if err := c.do(ctx, "find", http.MethodGet, u, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindOne returns the first object matching q. A query that matches nothing
// yields a not-found *APIError.
func (c *Client) FindOne(ctx context.Context, q Query) (json.RawMessage, error) {
	q.Limit = 1
	u, err := c.findURL(q)
	if err != nil {
		return nil, err
	}
	var out FindResponse
	if err := c.do(ctx, "find_one", http.MethodGet, u, nil, false, &out); err != nil {
		return nil, err
	}
	if len(out.Objects) == 0 {
		return nil, &APIError{Op: "find_one", Status: http.StatusNotFound, Message: "no objects found"}
	}
	return out.Objects[0], nil
}

// InsertOne creates an object. body is marshalled as JSON.
func (c *Client) InsertOne(ctx context.Context, body any) (json.RawMessage, error) {
	var out objectResponse
	u := c.base + "/buckets/" + url.PathEscape(c.bucket) + "/objects"
	if err := c.do(ctx, "insert_one", http.MethodPost, u, body, true, &out); err != nil {
		return nil, err
	}
	return out.Object, nil
}

// UpdateOne patches the object with id. Only keys present in body change.
func (c *Client) UpdateOne(ctx context.Context, id string, body any) (json.RawMessage, error) {
	if id == "" {
		return nil, xerrors.New("cosmic: update_one: empty id")
	}
	var out objectResponse
	u := c.base + "/buckets/" + url.PathEscape(c.bucket) + "/objects/" + url.PathEscape(id)
	if err := c.do(ctx, "update_one", http.MethodPatch, u, body, true, &out); err != nil {
		return nil, err
	}
	return out.Object, nil
}

func (c *Client) findURL(q Query) (string, error) {
	filter := make(map[string]any, len(q.Filter)+1)
	for k, v := range q.Filter {
		filter[k] = v
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	qb, err := json.Marshal(filter)
	if err != nil {
		return "", xerrors.Wrap(err, "cosmic: encode query")
	}

	v := url.Values{}
	v.Set("read_key", c.readKey)
	v.Set("query", string(qb))
	if len(q.Props) > 0 {
		v.Set("props", strings.Join(q.Props, ","))
	}
	if q.Depth > 0 {
		v.Set("depth", strconv.Itoa(q.Depth))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return c.base + "/buckets/" + url.PathEscape(c.bucket) + "/objects?" + v.Encode(), nil
}

func (c *Client) do(ctx context.Context, op, method, u string, body any, write bool, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(ctx, op, err, time.Since(start)) }()

	if write && c.writeKey == "" {
		return xerrors.WithStack(ErrNoWriteKey)
	}

	var rdr io.Reader
	if body != nil {
		b, mErr := json.Marshal(body)
		if mErr != nil {
			return xerrors.Wrapf(mErr, "cosmic %s: encode body", op)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return xerrors.Wrapf(err, "cosmic %s: build request", op)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if write {
		req.Header.Set("Authorization", "Bearer "+c.writeKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "cosmic %s", op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Wrapf(err, "cosmic %s: decode response", op)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ae := &APIError{Op: op, Status: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		ae.Message = body.Message
	} else {
		ae.Message = strings.TrimSpace(string(raw))
	}
	return xerrors.WithStack(ae)
}

func (c *Client) observe(ctx context.Context, op string, err error, d time.Duration) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = "not_found"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	if c.obs != nil {
		c.obs.ObserveCMSRequest(op, outcome, d)
	}
	if outcome == "error" {
		c.logger.Debug(ctx, "cms request failed", "op", op, "duration", d, "error", fmt.Sprint(err))
	}
}
