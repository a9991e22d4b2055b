package githubapi

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx expires. Tests substitute a fake to
// observe the inter-page timing contract without waiting it out.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OffsetPageFunc fetches one page by number. It returns how many items the
// page yielded and whether the caller's external cap was reached; either an
// empty page or stop=true ends the sequence after the page has been
// processed in full.
type OffsetPageFunc func(ctx context.Context, page int) (items int, stop bool, err error)

// CursorPageFunc fetches one page at an opaque cursor, returning the next
// cursor and the upstream hasNextPage flag. The cursor passes through
// unmodified.
type CursorPageFunc func(ctx context.Context, cursor *string) (next *string, hasMore bool, err error)

// Pager drives multi-page collection with a fixed delay between page
// requests. The delay is a designed throttle against the upstream request
// ceiling, enforced between every pair of pages regardless of their
// content.
type Pager struct {
	// Delay elapses after each page before the next one is requested.
	Delay time.Duration
	// MaxPages caps the number of pages requested; 0 means no cap.
	MaxPages int
	// Sleep defaults to a context-aware time.Sleep.
	Sleep SleepFunc
}

func (p *Pager) sleep(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, p.Delay)
}

// Offset walks pages 1, 2, ... until a page yields zero items, the fetch
// reports the external cap reached, or MaxPages pages have been requested.
func (p *Pager) Offset(ctx context.Context, fetch OffsetPageFunc) error {
	for page := 1; ; page++ {
		items, stop, err := fetch(ctx, page)
		if err != nil {
			return err
		}
		if items == 0 || stop {
			return nil
		}
		if p.MaxPages > 0 && page >= p.MaxPages {
			return nil
		}
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}

// Cursor walks an opaque-cursor sequence until hasNextPage is false.
func (p *Pager) Cursor(ctx context.Context, fetch CursorPageFunc) error {
	var cursor *string
	for {
		next, hasMore, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if !hasMore {
			return nil
		}
		cursor = next
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}
