package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/httputil"
	"github.com/wonny/stockpick/pkg/logger"
)

// TransportName identifies this source in fetch chains and cache keys
const TransportName = config.TransportKIS

const (
	dailyChartPath = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	trIDDailyChart = "FHKST03010100" // 국내주식 기간별 시세 (최대 100건)
)

// Client reads daily candles from the KIS (한국투자증권) open API
// ⭐ SSOT: KIS API 호출은 이 클라이언트에서만
type Client struct {
	http   *httputil.Client
	logger *logger.Logger
	cfg    config.KISConfig
	tokens *tokenSource
}

// NewClient creates a KIS client; cfg must carry an app key and secret
func NewClient(cfg config.KISConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	log = log.WithComponent("kis")
	return &Client{
		http:   httpClient,
		logger: log,
		cfg:    cfg,
		tokens: &tokenSource{http: httpClient, cfg: cfg, logger: log, now: time.Now},
	}
}

// Name returns the transport name
func (c *Client) Name() string {
	return TransportName
}

// request makes an authenticated GET to the KIS API
func (c *Client) request(ctx context.Context, path, trID string, query url.Values) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	return c.http.Do(ctx, req)
}

// dailyBar is one row of output2 (stringly typed numbers)
type dailyBar struct {
	TradeDate  string `json:"stck_bsop_date"`
	OpenPrice  string `json:"stck_oprc"`
	HighPrice  string `json:"stck_hgpr"`
	LowPrice   string `json:"stck_lwpr"`
	ClosePrice string `json:"stck_clpr"`
	Volume     string `json:"acml_vol"`
}

type dailyChartResponse struct {
	Output2 []dailyBar `json:"output2"`
	RtCd    string     `json:"rt_cd"`
	MsgCd   string     `json:"msg_cd"`
	Msg1    string     `json:"msg1"`
}

// FetchSeries gets daily candles for [from, to] (at most 100 rows per call)
func (c *Client) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error) {
	query := url.Values{}
	query.Set("FID_COND_MRKT_DIV_CODE", "J")
	query.Set("FID_INPUT_ISCD", code)
	query.Set("FID_INPUT_DATE_1", from.Format("20060102"))
	query.Set("FID_INPUT_DATE_2", to.Format("20060102"))
	query.Set("FID_PERIOD_DIV_CODE", "D")
	query.Set("FID_ORG_ADJ_PRC", "0") // 수정주가

	resp, err := c.request(ctx, dailyChartPath, trIDDailyChart, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kis %s: status %d: %s", code, resp.StatusCode, body)
	}

	var result dailyChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("kis %s: decode: %w", code, err)
	}
	// rt_cd "0" 이 정상, 그 외는 msg_cd 로 사유 전달
	if result.RtCd != "0" {
		return nil, fmt.Errorf("kis %s: %s %s", code, result.MsgCd, strings.TrimSpace(result.Msg1))
	}

	series := toSeries(result.Output2)
	c.logger.WithStock(code).WithField("count", len(series)).Debug("Fetched prices")

	return series, nil
}

// toSeries converts KIS rows (newest first) to an ascending series
func toSeries(rows []dailyBar) contracts.Series {
	series := make(contracts.Series, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("20060102", strings.TrimSpace(row.TradeDate))
		if err != nil {
			continue // 빈 행
		}

		series = append(series, contracts.PricePoint{
			Date:   date,
			Open:   parseFloatSafe(row.OpenPrice),
			High:   parseFloatSafe(row.HighPrice),
			Low:    parseFloatSafe(row.LowPrice),
			Close:  parseFloatSafe(row.ClosePrice),
			Volume: parseIntSafe(row.Volume),
		})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

func parseIntSafe(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloatSafe(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
