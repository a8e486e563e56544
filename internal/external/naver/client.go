package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/httputil"
	"github.com/wonny/stockpick/pkg/logger"
)

// TransportName identifies this source in fetch chains and cache keys
const TransportName = config.TransportNaver

// Default endpoints
const (
	DefaultBaseURL     = "https://finance.naver.com"
	DefaultChartURL    = "https://fchart.stock.naver.com"
	DefaultMobileURL   = "https://m.stock.naver.com"
	DefaultStockAPIURL = "https://api.stock.naver.com"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	baseURL     string
	chartURL    string
	mobileURL   string
	stockAPIURL string
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, cfg config.NaverConfig, log *logger.Logger) *Client {
	c := &Client{
		httpClient:  httpClient,
		logger:      log.WithComponent("naver"),
		baseURL:     cfg.BaseURL,
		chartURL:    cfg.ChartURL,
		mobileURL:   DefaultMobileURL,
		stockAPIURL: DefaultStockAPIURL,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.chartURL == "" {
		c.chartURL = DefaultChartURL
	}
	return c
}

// WithRankingURLs overrides the ranking API hosts (tests)
func (c *Client) WithRankingURLs(mobileURL, stockAPIURL string) *Client {
	c.mobileURL = mobileURL
	c.stockAPIURL = stockAPIURL
	return c
}

// Name returns the transport name
func (c *Client) Name() string {
	return TransportName
}

// get issues a GET with the Referer Naver expects
func (c *Client) get(ctx context.Context, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Referer", DefaultBaseURL+"/")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}

// fetchHTML fetches a finance.naver.com page decoded to UTF-8 (pages are EUC-KR)
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	resp, err := c.get(ctx, fullURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
