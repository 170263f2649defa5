package dataflows

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/mohaoran/AlphaCouncil/internal/config"
)

// NewsClient scrapes recent headlines from Google News.
type NewsClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewNewsClient(cfg *config.Config) *NewsClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "news")
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; AlphaCouncil/1.0)")

	return &NewsClient{
		client: client,
		cache:  NewCacheManager(cacheDir, 2*time.Hour, cfg.CacheEnabled),
	}
}

// Search returns up to maxResults recent articles matching the query.
func (nc *NewsClient) Search(query string, maxResults int) ([]*NewsArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	cacheKey := map[string]any{"query": query, "max": maxResults}
	var cached []*NewsArticle
	if nc.cache.Get("google_news", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en&gl=US&ceid=US:en",
		url.QueryEscape(query))
	resp, err := nc.client.R().Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch google news: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("google news returned HTTP %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse google news html: %w", err)
	}

	articles := parseNewsDocument(doc)
	if len(articles) > maxResults {
		articles = articles[:maxResults]
	}
	nc.cache.Set("google_news", "search", cacheKey, articles)
	return articles, nil
}

func parseNewsDocument(doc *goquery.Document) []*NewsArticle {
	var articles []*NewsArticle
	doc.Find("article").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		href, _ := s.Find("a").First().Attr("href")
		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		articles = append(articles, &NewsArticle{
			Title:       title,
			URL:         absoluteNewsURL(href),
			Source:      source,
			PublishedAt: parseRelativeTime(strings.TrimSpace(s.Find("time").Text())),
		})
	})
	return articles
}

func absoluteNewsURL(href string) string {
	if strings.HasPrefix(href, "./") {
		return "https://news.google.com" + href[1:]
	}
	if strings.HasPrefix(href, "/") {
		return "https://news.google.com" + href
	}
	return href
}

var (
	minutesAgoRe = regexp.MustCompile(`(\d+)\s*minutes?\s*ago`)
	hoursAgoRe   = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	daysAgoRe    = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
)

// parseRelativeTime converts Google News relative timestamps ("3 hours
// ago") to wall time. Unparseable text reads as now.
func parseRelativeTime(text string) time.Time {
	now := time.Now()
	text = strings.ToLower(strings.TrimSpace(text))
	if m := minutesAgoRe.FindStringSubmatch(text); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(n) * time.Minute)
		}
	}
	if m := hoursAgoRe.FindStringSubmatch(text); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(n) * time.Hour)
		}
	}
	if m := daysAgoRe.FindStringSubmatch(text); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.AddDate(0, 0, -n)
		}
	}
	return now
}
