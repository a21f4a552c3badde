/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package backend

import (
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/withhook/hooksync/config"
	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/internal/request"
)

var tracer = otel.Tracer("hooksync.backend")

const (
	defaultPageSize = 20

	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
	preferCountExact     = "count=exact"
)

// Client talks to the hosted backend through its PostgREST interface.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	http        *http.Client
	now         func() time.Time
}

var _ IBackend = (*Client)(nil)

func NewClient(cnf config.BackendConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cnf.Timeout()}
	}
	return &Client{
		baseURL:     strings.TrimRight(cnf.Url, "/") + "/rest/v1",
		apiKey:      cnf.ApiKey,
		accessToken: cnf.AccessToken,
		http:        httpClient,
		now:         time.Now,
	}
}

// filter builds PostgREST query parameters.
type filter url.Values

func newFilter() filter {
	return filter(url.Values{})
}

func (f filter) eq(column string, value interface{}) filter {
	url.Values(f).Add(column, fmt.Sprintf("eq.%v", value))
	return f
}

func (f filter) isNull(column string) filter {
	url.Values(f).Add(column, "is.null")
	return f
}

func (f filter) notNull(column string) filter {
	url.Values(f).Add(column, "not.is.null")
	return f
}

func (f filter) page(page, limit int) filter {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	url.Values(f).Set("limit", strconv.Itoa(limit))
	url.Values(f).Set("offset", strconv.Itoa((page-1)*limit))
	return f
}

func (f filter) order(column string) filter {
	url.Values(f).Set("order", column)
	return f
}

func (c *Client) timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

func (c *Client) do(ctx context.Context, method, table string, f filter, body interface{}, out interface{}, prefer ...string) (*http.Response, error) {
	endpoint := c.baseURL + "/" + table
	if len(f) > 0 {
		endpoint += "?" + url.Values(f).Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := request.ToJsonReq(body)
		if err != nil {
			return nil, err
		}
		reader = payload
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	token := c.accessToken
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if len(prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(prefer, ","))
	}

	resp, err := request.Call(c.http, req, out)
	if err == nil {
		return resp, nil
	}

	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		var pgErr struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.Unmarshal(statusErr.Body, &pgErr)
		return resp, apierror.FromHTTPStatus(statusErr.StatusCode, pgErr.Message, pgErr.Code)
	}
	if resp == nil {
		return nil, apierror.NewAPIError(apierror.ErrUnavailable, "backend unreachable", err.Error())
	}
	return resp, apierror.NewAPIError(apierror.ErrInternalServer, "invalid backend response", err.Error())
}

func withSelect(f filter) filter {
	url.Values(f).Set("select", "*")
	return f
}

// selectRows fetches every row matching f into out, which must point to a slice.
func (c *Client) selectRows(ctx context.Context, table string, f filter, out interface{}) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, table, withSelect(f), nil, out)
}

func (c *Client) update(ctx context.Context, table string, f filter, changes map[string]interface{}) error {
	_, err := c.do(ctx, http.MethodPatch, table, f, changes, nil, preferMinimal)
	return err
}

// totalFromContentRange reads the row count PostgREST reports as "0-19/57".
func totalFromContentRange(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	cr := resp.Header.Get("Content-Range")
	_, total, ok := strings.Cut(cr, "/")
	if !ok || total == "*" {
		return fallback
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return fallback
	}
	return n
}

func notFound(what string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, what+" not found", nil)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attrs...)
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
	}
}
