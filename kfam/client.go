package kfam

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/binding"
)

const (
	errFmtNewRequest   = "failed to build %s request"
	errFmtDo           = "failed to call %s"
	errFmtDecode       = "failed to decode %s response"
	errEncodeBody      = "failed to encode request body"
	errReadBody        = "failed to read response body"
	errParseAdminReply = "failed to parse cluster admin response"
)

// Recorder observes each call made to the profile controller
type Recorder interface {
	ObserveUpstream(operation string, duration time.Duration, err error)
}

type ClientOption func(c *client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) {
		c.http = hc
	}
}

func WithRecorder(r Recorder) ClientOption {
	return func(c *client) {
		c.recorder = r
	}
}

// NewClient returns a client for the access management API rooted at
// baseURL, e.g. http://profiles-kfam.kubeflow:8081/kfam
func NewClient(baseURL string, opts ...ClientOption) *client {
	c := &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, f := range opts {
		f(c)
	}
	return c
}

type client struct {
	baseURL  string
	http     *http.Client
	recorder Recorder
}

type bindingList struct {
	Bindings []binding.Binding `json:"bindings"`
}

func (c *client) ReadBindings(ctx context.Context, query BindingQuery) ([]binding.Binding, error) {
	params := url.Values{}
	if query.User != "" {
		params.Set("user", query.User)
	}
	if query.Namespace != "" {
		params.Set("namespaces", query.Namespace)
	}
	if query.Role != "" {
		params.Set("role", string(query.Role))
	}
	path := "/v1/bindings"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	raw, err := c.do(ctx, "readBindings", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	list := bindingList{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.Wrapf(err, errFmtDecode, "readBindings")
		}
	}
	if list.Bindings == nil {
		list.Bindings = make([]binding.Binding, 0)
	}
	return list.Bindings, nil
}

func (c *client) IsClusterAdmin(ctx context.Context, user string) (bool, error) {
	path := "/v1/role/clusteradmin?" + url.Values{"user": {user}}.Encode()
	raw, err := c.do(ctx, "isClusterAdmin", http.MethodGet, path, nil, nil)
	if err != nil {
		return false, err
	}
	admin, err := strconv.ParseBool(strings.TrimSpace(string(raw)))
	return admin, errors.Wrap(err, errParseAdminReply)
}

func (c *client) CreateBinding(ctx context.Context, b binding.Binding, header http.Header) error {
	_, err := c.do(ctx, "createBinding", http.MethodPost, "/v1/bindings", b, header)
	return err
}

func (c *client) DeleteBinding(ctx context.Context, b binding.Binding, header http.Header) error {
	_, err := c.do(ctx, "deleteBinding", http.MethodDelete, "/v1/bindings", b, header)
	return err
}

func (c *client) CreateProfile(ctx context.Context, profile *v1alpha1.Profile) error {
	_, err := c.do(ctx, "createProfile", http.MethodPost, "/v1/profiles", profile, nil)
	return err
}

// DeleteProfile deletes the profile name and returns whatever the profile
// controller sent back, or nil for an empty body.
func (c *client) DeleteProfile(ctx context.Context, name string, header http.Header) (json.RawMessage, error) {
	raw, err := c.do(ctx, "deleteProfile", http.MethodDelete, "/v1/profiles/"+url.PathEscape(name), nil, header)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, nil
	}
	return raw, nil
}

func (c *client) do(ctx context.Context, operation, method, path string, body any, header http.Header) (raw []byte, err error) {
	if c.recorder != nil {
		start := time.Now()
		defer func() { c.recorder.ObserveUpstream(operation, time.Since(start), err) }()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errEncodeBody)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, errFmtNewRequest, operation)
	}
	if header != nil {
		req.Header = forwardedHeader(header)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errFmtDo, operation)
	}
	defer res.Body.Close()

	raw, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, errReadBody)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

// forwardedHeader copies the inbound headers. Content-Length is dropped
// because the body sent upstream is re-encoded, and the encoding headers
// describe the inbound body rather than the one sent.
func forwardedHeader(in http.Header) http.Header {
	out := in.Clone()
	out.Del("Content-Length")
	out.Del("Content-Type")
	out.Del("Accept-Encoding")
	return out
}

var _ Client = &client{}
