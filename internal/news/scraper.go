package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"stock-analyst/internal/api"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

// Scraper collects headlines from the configured listing pages.
type Scraper struct {
	sources []store.NewsSource
	timeout time.Duration
	max     int
}

func NewScraper(sources []store.NewsSource, timeout time.Duration, maxHeadlines int) *Scraper {
	return &Scraper{sources: sources, timeout: timeout, max: maxHeadlines}
}

// Headlines visits each source in order and stops once max headlines are collected.
// A failing source is logged and skipped; the error is returned only when every
// source failed.
func (s *Scraper) Headlines(ctx context.Context, ticker string) ([]types.NewsHeadline, error) {
	op := logger.StartOperation(ctx, "news.Headlines", "ticker", ticker, "sources", len(s.sources))
	ctx = op.Context()

	var out []types.NewsHeadline
	seen := make(map[string]struct{})
	var failures []string
	for _, src := range s.sources {
		if len(out) >= s.max {
			break
		}
		if err := ctx.Err(); err != nil {
			op.EndWithError(err)
			return out, err
		}
		got, err := s.scrapeSource(ctx, src, ticker, s.max-len(out))
		if err != nil {
			logger.Warn(ctx, "Failed to scrape source", "source", src.Name, "ticker", ticker, "error", err)
			failures = append(failures, src.Name)
			continue
		}
		for _, h := range got {
			if _, dup := seen[h.Title]; dup {
				continue
			}
			seen[h.Title] = struct{}{}
			out = append(out, h)
		}
	}
	if len(s.sources) > 0 && len(failures) == len(s.sources) {
		err := fmt.Errorf("all news sources failed: %s", strings.Join(failures, ", "))
		op.EndWithError(err)
		return nil, err
	}

	op.End("headlines", len(out))
	logger.Info(ctx, "News scraping completed", "ticker", ticker, "headlines", len(out))
	return out, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, src store.NewsSource, ticker string, limit int) ([]types.NewsHeadline, error) {
	target := strings.ReplaceAll(src.URL, "{ticker}", url.QueryEscape(ticker))

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(target)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	var headlines []types.NewsHeadline
	c.OnHTML(src.Item, func(e *colly.HTMLElement) {
		if len(headlines) >= limit {
			return
		}
		title := strings.TrimSpace(e.DOM.Find(src.Title).First().Text())
		if title == "" {
			return
		}
		h := types.NewsHeadline{Title: title, Source: src.Name}
		if link := linkOf(e.DOM, src.Link); link != "" {
			h.URL = e.Request.AbsoluteURL(link)
		}
		if src.Published != "" {
			h.PublishedAt = strings.TrimSpace(e.DOM.Find(src.Published).First().Text())
		}
		headlines = append(headlines, h)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("%s returned %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", target, err)
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}
	return headlines, nil
}

// linkOf reads href from the link selector, or from the item itself when it is an anchor.
func linkOf(item *goquery.Selection, selector string) string {
	if selector != "" {
		if href, ok := item.Find(selector).First().Attr("href"); ok {
			return strings.TrimSpace(href)
		}
	}
	if href, ok := item.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
