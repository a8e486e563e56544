package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

var (
	// ["20240115", 72300, 73000, 72000, 72500, 1000000, 53.2]
	candleRe        = regexp.MustCompile(`\[\s*"(\d{8})"\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)`)
	trailingCommaRe = regexp.MustCompile(`,\s*\]`)
)

// FetchSeries fetches daily candles from the fchart siseJson endpoint
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error) {
	params := url.Values{}
	params.Set("symbol", code)
	params.Set("requestType", "1")
	params.Set("startTime", from.Format("20060102"))
	params.Set("endTime", to.Format("20060102"))
	params.Set("timeframe", "day")

	resp, err := c.get(ctx, c.chartURL+"/siseJson.naver?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	series := parsePriceResponse(string(body))

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(series),
	}).Debug("Fetched prices")

	return series, nil
}

// parsePriceResponse parses the siseJson body. The payload is JS-ish
// (single quotes, trailing commas), so JSON is tried after cleanup and
// the regex scan is the fallback.
func parsePriceResponse(body string) contracts.Series {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")
	body = trailingCommaRe.ReplaceAllString(body, "]")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	return parsePriceRegex(body)
}

// parsePriceJSON parses JSON array rows, skipping the header
func parsePriceJSON(rawData [][]interface{}) contracts.Series {
	series := contracts.Series{}
	for _, row := range rawData {
		if len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue // header row
		}

		date, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		series = append(series, contracts.PricePoint{
			Date:   date,
			Open:   toFloat64(row[1]),
			High:   toFloat64(row[2]),
			Low:    toFloat64(row[3]),
			Close:  toFloat64(row[4]),
			Volume: int64(toFloat64(row[5])),
		})
	}
	return series
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) contracts.Series {
	series := contracts.Series{}
	for _, match := range candleRe.FindAllStringSubmatch(body, -1) {
		date, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		series = append(series, contracts.PricePoint{
			Date:   date,
			Open:   toFloat64(match[2]),
			High:   toFloat64(match[3]),
			Low:    toFloat64(match[4]),
			Close:  toFloat64(match[5]),
			Volume: int64(toFloat64(match[6])),
		})
	}
	return series
}

// toFloat64 converts JSON numbers and numeric strings
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		return n
	default:
		return 0
	}
}
