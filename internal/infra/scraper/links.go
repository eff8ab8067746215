// Package scraper discovers candidate group ids from HTML listing pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/resilience/retry"
)

const (
	maxBodySize = 5 * 1024 * 1024 // 5MB
	userAgent   = "groupwatch/1.0"
)

// ErrNoPages indicates that no listing page could be scraped.
var ErrNoPages = errors.New("no listing page could be scraped")

// groupLinkPattern limits scraping to anchors that point at a group page.
var groupLinkPattern = regexp.MustCompile(`(?i)/(?:groups?|communities)/\d+`)

// LinkScraper collects group ids from anchor hrefs on HTML pages.
type LinkScraper struct {
	client *http.Client
	policy retry.Policy
}

// NewLinkScraper creates a LinkScraper. A nil client uses http.DefaultClient.
func NewLinkScraper(client *http.Client, policy retry.Policy) *LinkScraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &LinkScraper{client: client, policy: policy}
}

// Discover scrapes each page in order and returns the group ids found,
// deduplicated in first-seen order. Failed pages are logged and skipped;
// the error is non-nil only when every page failed.
func (s *LinkScraper) Discover(ctx context.Context, pageURLs []string) ([]entity.GroupID, error) {
	if len(pageURLs) == 0 {
		return nil, nil
	}

	seen := make(map[entity.GroupID]struct{})
	var ids []entity.GroupID
	succeeded := 0

	for _, pageURL := range pageURLs {
		found, err := s.Scrape(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ids, ctx.Err()
			}
			slog.Warn("listing page scrape failed, skipping",
				slog.String("url", pageURL),
				slog.Any("error", err))
			continue
		}
		succeeded++
		for _, id := range found {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if succeeded == 0 {
		return ids, ErrNoPages
	}
	return ids, nil
}

// Scrape fetches one page and returns the ids of every linked group.
func (s *LinkScraper) Scrape(ctx context.Context, pageURL string) ([]entity.GroupID, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid page URL %q", pageURL)
	}

	var doc *goquery.Document
	err = s.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		d, err := s.fetchHTML(ctx, pageURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Scrape: %w", err)
	}

	return extractGroupLinks(doc, base), nil
}

func (s *LinkScraper) fetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// extractGroupLinks resolves each anchor against base and keeps the ids of
// links whose path names a group.
func extractGroupLinks(doc *goquery.Document, base *url.URL) []entity.GroupID {
	var ids []entity.GroupID
	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !groupLinkPattern.MatchString(abs.Path) {
			return
		}
		id, err := entity.ExtractGroupID(abs.String())
		if err != nil {
			slog.Debug("group link without usable id", slog.String("href", href))
			return
		}
		ids = append(ids, id)
	})
	return ids
}
