package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// navigateAndWait navigates the tab to url and blocks until the named
// lifecycle event fires for that navigation. A zero timeout waits for as
// long as ctx allows.
func navigateAndWait(ctx context.Context, url, event string, timeout time.Duration) error {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Listen before navigating; the event can fire before Navigate returns.
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	events := make(chan *page.EventLifecycleEvent, 16)
	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.Name != event {
			return
		}
		select {
		case events <- e:
		default:
		}
	})

	var frameID cdp.FrameID
	var loaderID cdp.LoaderID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		f, l, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("%w: %s", ErrNavigation, errorText)
		}
		frameID, loaderID = f, l
		return nil
	}))
	if err != nil {
		return waitError(parent, ctx, err, event, timeout)
	}

	for {
		select {
		case e := <-events:
			if e.FrameID == frameID && e.LoaderID == loaderID {
				return nil
			}
		case <-ctx.Done():
			return waitError(parent, ctx, ctx.Err(), event, timeout)
		}
	}
}

// waitError reports our own deadline as ErrWaitTimeout and passes anything
// else through.
func waitError(parent, ctx context.Context, err error, event string, timeout time.Duration) error {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no %s within %s", ErrWaitTimeout, event, timeout)
	}
	return err
}
