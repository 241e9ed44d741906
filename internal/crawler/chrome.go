package crawler

import (
	"context"
	"fmt"
	"time"

	"allsidestg/internal/apperr"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a long-lived headless Chrome.
// Construct once; call Fetch per URL. Call Close on shutdown.
type ChromeFetcher struct {
	allocCtx  context.Context
	cancelAll context.CancelFunc
	brCtx     context.Context
	cancelBr  context.CancelFunc
	timeout   time.Duration
}

// NewRemoteChromeFetcher attaches to a Chrome DevTools endpoint at host:port.
func NewRemoteChromeFetcher(host string, port int, timeout time.Duration) (*ChromeFetcher, error) {
	actx, cancel := chromedp.NewRemoteAllocator(context.Background(), fmt.Sprintf("ws://%s:%d", host, port))

	return startChrome(actx, cancel, timeout)
}

// NewLocalChromeFetcher launches a headless Chrome from the local PATH.
func NewLocalChromeFetcher(userAgent string, timeout time.Duration) (*ChromeFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(userAgent),
	)
	actx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return startChrome(actx, cancel, timeout)
}

func startChrome(actx context.Context, cancelAlloc context.CancelFunc, timeout time.Duration) (*ChromeFetcher, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	bctx, cancelBr := chromedp.NewContext(actx)

	// The first Run allocates the browser; tabs opened later share it.
	if err := chromedp.Run(bctx); err != nil {
		cancelBr()
		cancelAlloc()

		return nil, apperr.Wrap(apperr.KindNetwork, "start browser", err)
	}

	return &ChromeFetcher{
		allocCtx:  actx,
		cancelAll: cancelAlloc,
		brCtx:     bctx,
		cancelBr:  cancelBr,
		timeout:   timeout,
	}, nil
}

// Fetch opens url in a fresh tab and returns the rendered document.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.brCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "render "+url, err)
	}

	return html, nil
}

// Close tears down Chrome resources.
func (f *ChromeFetcher) Close() {
	if f.cancelBr != nil {
		f.cancelBr()
	}

	if f.cancelAll != nil {
		f.cancelAll()
	}
}
