package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// FetchArticle 抓取网页并用 go-readability 提取正文文本。
func FetchArticle(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("抓取网页失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("网页返回错误 [%d]", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("解析网页正文失败: %w", err)
	}

	if article.TextContent == "" {
		return "", fmt.Errorf("网页未提取到正文内容")
	}
	return article.TextContent, nil
}
