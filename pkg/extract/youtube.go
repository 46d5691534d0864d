package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// captionTracksRe 从 watch 页面的 ytInitialPlayerResponse 中定位字幕轨道列表。
var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// IsYouTubeURL 判断一个 URL 是否是 YouTube 视频链接。
func IsYouTubeURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}

// FetchTranscript 抓取 YouTube 视频的字幕并拼接为纯文本。
// 优先选择英文字幕轨道，没有时使用第一条可用轨道。
func FetchTranscript(ctx context.Context, videoURL string) (string, error) {
	pageBody, err := fetch(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("抓取视频页面失败: %w", err)
	}

	match := captionTracksRe.FindSubmatch(pageBody)
	if match == nil {
		return "", fmt.Errorf("视频没有可用的字幕轨道")
	}

	var tracks []captionTrack
	if err := json.Unmarshal(match[1], &tracks); err != nil {
		return "", fmt.Errorf("解析字幕轨道列表失败: %w", err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("视频没有可用的字幕轨道")
	}

	track := tracks[0]
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			track = t
			break
		}
	}

	xmlBody, err := fetch(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("下载字幕失败: %w", err)
	}

	var tt timedText
	if err := xml.Unmarshal(xmlBody, &tt); err != nil {
		return "", fmt.Errorf("解析字幕 XML 失败: %w", err)
	}

	var sb strings.Builder
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Value))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("字幕内容为空")
	}
	return sb.String(), nil
}

func fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("请求返回错误 [%d]", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
