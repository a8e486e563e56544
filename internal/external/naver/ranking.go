package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/stockpick/internal/contracts"
)

// RankingItem is one row of a Naver ranking list
type RankingItem struct {
	Rank int    `json:"rank"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// RankingCategory represents the type of ranking
type RankingCategory string

const (
	RankingUpper       RankingCategory = "upper"        // 상승률
	RankingVolume      RankingCategory = "trading"      // 거래량상위
	RankingValue       RankingCategory = "tradingValue" // 거래대금상위
	RankingVolumeSurge RankingCategory = "quantHigh"    // 거래량급증
	RankingMarketCap   RankingCategory = "top"          // 시가총액
)

// ParseRankingCategory validates a category from user input
func ParseRankingCategory(s string) (RankingCategory, error) {
	switch cat := RankingCategory(s); cat {
	case RankingUpper, RankingVolume, RankingValue, RankingVolumeSurge, RankingMarketCap:
		return cat, nil
	}
	return "", fmt.Errorf("unknown ranking category: %s", s)
}

// API 타입 1: m.stock.naver.com (상승률, 시가총액)
var mobileAPIEndpoints = map[RankingCategory]string{
	RankingUpper:     "up",
	RankingMarketCap: "marketValue",
}

// API 타입 2: api.stock.naver.com (거래량, 거래대금, 거래량급증)
var stockAPISortTypes = map[RankingCategory]string{
	RankingVolume:      "ACC_TRADING_VOLUME",
	RankingValue:       "ACC_TRADING_VALUE",
	RankingVolumeSurge: "TRADING_VOLUME_INCREASE",
}

type rankingResponse struct {
	Stocks []struct {
		ItemCode  string `json:"itemCode"`
		StockName string `json:"stockName"`
	} `json:"stocks"`
}

// GetRanking fetches a ranking list in rank order.
// market: "KOSPI" or "KOSDAQ"
func (c *Client) GetRanking(ctx context.Context, category RankingCategory, market string, size int) ([]RankingItem, error) {
	if size <= 0 || size > 100 {
		size = 100
	}
	market = strings.ToUpper(market)

	var apiURL string
	if endpoint, ok := mobileAPIEndpoints[category]; ok {
		apiURL = fmt.Sprintf("%s/api/stocks/%s/%s?page=1&pageSize=%d", c.mobileURL, endpoint, market, size)
	} else if sortType, ok := stockAPISortTypes[category]; ok {
		q := url.Values{}
		q.Set("type", "ALL")
		q.Set("sortType", sortType)
		q.Set("page", "1")
		q.Set("pageSize", fmt.Sprint(size))
		apiURL = fmt.Sprintf("%s/stock/exchange/%s?%s", c.stockAPIURL, market, q.Encode())
	} else {
		return nil, fmt.Errorf("unknown ranking category: %s", category)
	}

	// 모바일 API 는 Referer 불필요
	var apiResp rankingResponse
	if err := c.httpClient.GetJSON(ctx, apiURL, &apiResp); err != nil {
		return nil, fmt.Errorf("%s ranking: %w", category, err)
	}

	items := make([]RankingItem, 0, len(apiResp.Stocks))
	for i, stock := range apiResp.Stocks {
		items = append(items, RankingItem{
			Rank: i + 1,
			Code: stock.ItemCode,
			Name: stock.StockName,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"category": category,
		"market":   market,
		"count":    len(items),
	}).Debug("Fetched ranking")

	return items, nil
}

// RankingUniverse turns the top n of a ranking into a candidate universe.
// Sector is left empty; theme providers fall back to their default weight.
func (c *Client) RankingUniverse(ctx context.Context, category RankingCategory, market string, n int) (*contracts.Universe, error) {
	items, err := c.GetRanking(ctx, category, market, n)
	if err != nil {
		return nil, err
	}

	u := &contracts.Universe{Stocks: make([]contracts.Stock, 0, len(items))}
	for _, item := range items {
		if len(u.Stocks) == n {
			break
		}
		u.Stocks = append(u.Stocks, contracts.Stock{Code: item.Code, Name: item.Name})
	}
	return u, nil
}
