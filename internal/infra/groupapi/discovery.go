package groupapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/resilience/retry"
)

// Discover samples up to pages search pages of pageSize results and returns
// the ids it found, deduplicated in first-seen order. A failed page is logged
// and skipped. The error is non-nil only when no page succeeded or ctx ended;
// any ids gathered so far are still returned.
func (c *Client) Discover(ctx context.Context, pages, pageSize int) ([]entity.GroupID, error) {
	if pages <= 0 {
		return nil, nil
	}
	sleep := c.cfg.Retry.Sleep
	if sleep == nil {
		sleep = retry.Sleep
	}

	seen := make(map[entity.GroupID]struct{})
	var ids []entity.GroupID
	succeeded := 0

	for page := 1; page <= pages; page++ {
		if page > 1 {
			if err := sleep(ctx, c.cfg.PageDelay); err != nil {
				return ids, fmt.Errorf("Discover: %w", err)
			}
		}

		pageIDs, err := c.searchPage(ctx, page, pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return ids, fmt.Errorf("Discover: %w", ctx.Err())
			}
			discoveryPageFailures.Inc()
			slog.Warn("discovery page failed, skipping",
				slog.Int("page", page),
				slog.Any("error", err))
			continue
		}
		succeeded++

		for _, id := range pageIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if succeeded == 0 {
		return ids, fmt.Errorf("Discover: %w", ErrNoDiscoveryPages)
	}
	slog.Info("discovery finished",
		slog.Int("pages", pages),
		slog.Int("pages_ok", succeeded),
		slog.Int("ids", len(ids)))
	return ids, nil
}

func (c *Client) searchPage(ctx context.Context, page, pageSize int) ([]entity.GroupID, error) {
	q := url.Values{}
	q.Set("keyword", c.cfg.Keyword)
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	endpoint := c.cfg.BaseURL + "/v1/groups/search?" + q.Encode()

	var body []byte
	err := c.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		b, err := c.get(ctx, "search", endpoint)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeSearchPage(body)
}
