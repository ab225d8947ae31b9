package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Selectors are the CSS selectors used to pull headlines off a listing page.
type Selectors struct {
	Article     string
	Title       string
	Link        string
	Description string
	PublishedAt string // element carrying a datetime attribute, or text
}

// DefaultSelectors match the common <article><h2><a/></h2><p/><time/></article> layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Article:     "article",
		Title:       "h2, h3",
		Link:        "a[href]",
		Description: "p",
		PublishedAt: "time",
	}
}

// Scraper reads headlines from a single news listing page.
type Scraper struct {
	pageURL   string
	name      string
	selectors Selectors
	timeout   time.Duration
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewScraper returns a scraper for pageURL. Visits are spaced at least
// minInterval apart.
func NewScraper(pageURL string, timeout, minInterval time.Duration) *Scraper {
	return &Scraper{
		pageURL:   pageURL,
		name:      getDomain(pageURL),
		selectors: DefaultSelectors(),
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		now:       time.Now,
	}
}

// WithSelectors overrides the default selectors.
func (s *Scraper) WithSelectors(sel Selectors) *Scraper {
	s.selectors = sel
	return s
}

func (s *Scraper) LatestHeadlines(ctx context.Context) ([]types.NewsItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("scraper wait: %w", err)
	}

	timeout := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout || timeout == 0 {
			timeout = left
		}
	}

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.UserAgent(userAgent),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	var (
		items    []types.NewsItem
		visitErr error
	)
	sel := s.selectors

	c.OnHTML(sel.Article, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(sel.Title))
		if title == "" {
			return
		}

		link := e.ChildAttr(sel.Link, "href")
		if link != "" {
			link = e.Request.AbsoluteURL(link)
		}

		desc := ""
		if d := e.DOM.Find(sel.Description).First(); d.Length() > 0 {
			desc = stripHTML(d.Text())
		}

		items = append(items, types.NewsItem{
			Title:       title,
			Description: desc,
			URL:         link,
			Source:      s.name,
			PublishedAt: s.publishedAt(e),
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", s.name, "url", r.Request.URL.String())
	})

	logger.Debug(ctx, "Scraping headlines", "url", s.pageURL)
	if err := c.Visit(s.pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.pageURL, err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.pageURL, visitErr)
	}

	logger.Info(ctx, "News scraping completed", "source", s.name, "articles", len(items))
	return items, nil
}

func (s *Scraper) publishedAt(e *colly.HTMLElement) time.Time {
	if s.selectors.PublishedAt == "" {
		return s.now()
	}
	raw := e.ChildAttr(s.selectors.PublishedAt, "datetime")
	if raw == "" {
		raw = e.ChildText(s.selectors.PublishedAt)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return s.now()
}

// stripHTML flattens text that still carries markup, as feeds often embed
// escaped HTML in summaries.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
