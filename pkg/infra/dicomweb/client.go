package dicomweb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	mediaTypeDICOMJSON = "application/dicom+json"
	acceptMultipart    = `multipart/related; type="application/dicom"; transfer-syntax=*`
)

type client struct {
	endpoint   model.Endpoint
	httpClient *http.Client
	decoder    InstanceDecoder
	userAgent  string
}

// Option is a functional option for the client
type Option func(*client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.httpClient = c
	}
}

// WithInstanceDecoder replaces the Part 10 decoder used for multipart parts
func WithInstanceDecoder(d InstanceDecoder) Option {
	return func(cl *client) {
		cl.decoder = d
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(cl *client) {
		cl.userAgent = ua
	}
}

// NewClient creates a DICOMweb client bound to endpoint
func NewClient(endpoint model.Endpoint, opts ...Option) interfaces.DICOMWebClient {
	c := &client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		decoder:    DecodePart10,
		userAgent:  "kheops",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryStudies searches {base}/studies
func (c *client) QueryStudies(ctx context.Context, params *model.QueryParams) ([]model.Record, error) {
	return c.query(ctx, c.endpoint.BaseURL()+"/studies", params)
}

// QuerySeries searches {base}/studies/{study}/series
func (c *client) QuerySeries(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error) {
	u := c.endpoint.BaseURL() + "/studies/" + url.PathEscape(studyUID) + "/series"
	return c.query(ctx, u, params)
}

// RetrieveStudy retrieves {base}/studies/{study}
func (c *client) RetrieveStudy(ctx context.Context, studyUID string, metaOnly bool) (*model.Payload, error) {
	u := c.endpoint.BaseURL() + "/studies/" + url.PathEscape(studyUID)
	return c.retrieve(ctx, u, metaOnly)
}

// RetrieveSeries retrieves {base}/studies/{study}/series/{series}
func (c *client) RetrieveSeries(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error) {
	u := c.endpoint.BaseURL() + "/studies/" + url.PathEscape(studyUID) + "/series/" + url.PathEscape(seriesUID)
	return c.retrieve(ctx, u, metaOnly)
}

func (c *client) query(ctx context.Context, rawURL string, params *model.QueryParams) ([]model.Record, error) {
	u := rawURL
	if q := EncodeQuery(params); q != "" {
		u += "?" + q
	}

	body, status, err := c.get(ctx, u, mediaTypeDICOMJSON)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(body) == 0 {
		return []model.Record{}, nil
	}

	var records []model.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, goerr.Wrap(err, "failed to decode QIDO-RS response", goerr.V("url", u))
	}
	return records, nil
}

func (c *client) retrieve(ctx context.Context, rawURL string, metaOnly bool) (*model.Payload, error) {
	if metaOnly {
		u := rawURL + "/metadata"
		body, _, err := c.get(ctx, u, mediaTypeDICOMJSON)
		if err != nil {
			return nil, err
		}
		instances, err := splitMetadata(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode metadata response", goerr.V("url", u))
		}
		return &model.Payload{Instances: instances}, nil
	}

	req, err := c.newRequest(ctx, rawURL, acceptMultipart)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	instances, err := readMultipart(resp.Header.Get("Content-Type"), resp.Body, c.decoder)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read multipart response", goerr.V("url", rawURL))
	}
	return &model.Payload{Instances: instances}, nil
}

func (c *client) get(ctx context.Context, u, accept string) ([]byte, int, error) {
	req, err := c.newRequest(ctx, u, accept)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, goerr.Wrap(err, "failed to read response body", goerr.V("url", u))
	}
	return body, resp.StatusCode, nil
}

func (c *client) newRequest(ctx context.Context, u, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", u))
	}
	req.Header.Set("Authorization", "Bearer "+string(c.endpoint.Token()))
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	logger := ctxlog.From(req.Context())
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("url", req.URL.String()))
	}

	logger.Debug("DICOMweb request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, goerr.New("unexpected status code",
			goerr.V("url", req.URL.String()),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(snippet)),
		)
	}
	return resp, nil
}

// EncodeQuery renders QueryParams as a QIDO-RS query string. Filters keep
// their order; pagination and flags follow.
func EncodeQuery(params *model.QueryParams) string {
	if params == nil {
		return ""
	}

	// url.Values sorts keys; build by hand to keep filter order stable.
	var parts []string
	add := func(k, v string) {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	for _, f := range params.Filters {
		add(f.Attribute, f.Value)
	}
	if params.Limit != nil {
		add("limit", strconv.Itoa(*params.Limit))
	}
	if params.Offset != nil {
		add("offset", strconv.Itoa(*params.Offset))
	}
	if params.Fuzzy {
		add("fuzzymatching", "true")
	}
	for _, field := range params.IncludeFields {
		add("includefield", field)
	}

	return strings.Join(parts, "&")
}
