package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchCompanyName scrapes the company name from the item main page
func (c *Client) FetchCompanyName(ctx context.Context, code string) (string, error) {
	html, err := c.fetchHTML(ctx, "/item/main.naver", url.Values{"code": {code}})
	if err != nil {
		return "", err
	}

	name := parseCompanyName(html)
	if name == "" {
		return "", fmt.Errorf("company name not found for %s", code)
	}
	return name, nil
}

// parseCompanyName reads the name from the item header, falling back to <title>
// ("삼성전자 : 네이버 증권")
func parseCompanyName(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if name := strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text()); name != "" {
		return name
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if i := strings.Index(title, ":"); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return ""
}
