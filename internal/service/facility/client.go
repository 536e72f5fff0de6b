package facility

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// Unavailable replaces any field the directory left empty.
const Unavailable = "정보 없음"

const successCode = "00"

const (
	defaultPageSize  = 10
	maxResponseBytes = 4 << 20
)

var (
	errEmptyResult = errors.New("directory returned no items")
	errNoAPIKey    = errors.New("directory api key not configured")
)

// Client queries the hospital basis list and maps items to facilities.
type Client struct {
	cfg        config.DirectoryConfig
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default timeout-bound HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a directory client.
func NewClient(cfg config.DirectoryConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recommend always returns a non-empty list: directory results when
// available, otherwise the fallback hospitals.
func (c *Client) Recommend(ctx context.Context, department string, location *triage.Location) []triage.Facility {
	code := Resolve(department)

	logger := loggerFrom(ctx)
	facilities, err := c.search(ctx, department, code, location)
	if err != nil {
		event := logger.Warn()
		if errors.Is(err, errNoAPIKey) {
			event = logger.Debug()
		}
		event.Err(err).Str("department", department).Str("category_code", code).Msg("facility directory unavailable, using fallback")
		return Fallback()
	}

	logger.Debug().Str("department", department).Str("category_code", code).Int("count", len(facilities)).Msg("facility directory results")
	return facilities
}

func (c *Client) search(ctx context.Context, department, code string, location *triage.Location) ([]triage.Facility, error) {
	if !c.cfg.Enabled() {
		return nil, errNoAPIKey
	}

	endpoint, err := c.buildURL(code, location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, redact(err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read directory response: %w", err)
	}

	items, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errEmptyResult
	}
	if size := c.pageSize(); len(items) > size {
		items = items[:size]
	}

	facilities := make([]triage.Facility, 0, len(items))
	for _, item := range items {
		facilities = append(facilities, item.toFacility(department))
	}
	return facilities, nil
}

func (c *Client) buildURL(code string, location *triage.Location) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errors.New("invalid directory base url")
	}

	params := base.Query()
	params.Set("ServiceKey", c.cfg.APIKey)
	params.Set("pageNo", "1")
	params.Set("numOfRows", strconv.Itoa(c.pageSize()))
	params.Set("dgsbjtCd", code)
	if location != nil {
		params.Set("xPos", strconv.FormatFloat(location.Longitude, 'f', -1, 64))
		params.Set("yPos", strconv.FormatFloat(location.Latitude, 'f', -1, 64))
		params.Set("radius", strconv.Itoa(c.cfg.RadiusMeters))
	}
	base.RawQuery = params.Encode()
	return base.String(), nil
}

func (c *Client) pageSize() int {
	if c.cfg.PageSize <= 0 {
		return defaultPageSize
	}
	return c.cfg.PageSize
}

// loggerFrom prefers the request-scoped logger so fallback lines carry the
// caller's fields, such as conversation_id.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// redact drops the request URL, which carries the service key.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("directory request %s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}

type directoryResponse struct {
	XMLName xml.Name `xml:"response"`
	Header  struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items []directoryItem `xml:"items>item"`
	} `xml:"body"`
}

type directoryItem struct {
	ID          string `xml:"ykiho"`
	Name        string `xml:"yadmNm"`
	Address     string `xml:"addr"`
	Phone       string `xml:"telno"`
	Class       string `xml:"clCdNm"`
	District    string `xml:"sgguCdNm"`
	Distance    string `xml:"distance"`
	HomepageURL string `xml:"hospUrl"`
}

func parseResponse(body []byte) ([]directoryItem, error) {
	var doc directoryResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	if code := strings.TrimSpace(doc.Header.ResultCode); code != successCode {
		return nil, fmt.Errorf("directory result code %q: %s", code, strings.TrimSpace(doc.Header.ResultMsg))
	}
	return doc.Body.Items, nil
}

func (it directoryItem) toFacility(department string) triage.Facility {
	class := orUnavailable(it.Class)

	departments := make([]string, 0, 2)
	if d := strings.TrimSpace(department); d != "" {
		departments = append(departments, d)
	}
	departments = append(departments, class)

	parts := []string{class}
	if district := strings.TrimSpace(it.District); district != "" {
		parts = append(parts, district)
	}
	if meters, err := strconv.ParseFloat(strings.TrimSpace(it.Distance), 64); err == nil {
		parts = append(parts, fmt.Sprintf("약 %.1fkm", meters/1000))
	}

	var image string
	if u, err := url.Parse(strings.TrimSpace(it.HomepageURL)); err == nil && u.IsAbs() {
		image = u.String()
	}

	return triage.Facility{
		ID:          orUnavailable(it.ID),
		Name:        orUnavailable(it.Name),
		Address:     orUnavailable(it.Address),
		Phone:       orUnavailable(it.Phone),
		Departments: departments,
		Description: strings.Join(parts, " · "),
		Image:       image,
	}
}

func orUnavailable(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return Unavailable
}
