package fetch_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/fetch"
	"github.com/minute-repeater/restocked/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goodHTML is large enough and carries product markers, so the escalating
// fetcher accepts it from the lightweight path.
var goodHTML = `<html><head><script type="application/ld+json">{}</script></head><body>` +
	strings.Repeat("<p>filler</p>", 300) + `</body></html>`

func staticFetcher(html string, strategy restocked.FetchStrategy, calls *int) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*restocked.FetchResult, error) {
			if calls != nil {
				*calls++
			}
			return &restocked.FetchResult{HTML: html, FinalURL: url, Strategy: strategy}, nil
		},
	}
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("accepts a good page from the primary path", func(t *testing.T) {
		t.Parallel()

		var browserCalls int
		f := fetch.NewFetcher(
			staticFetcher(goodHTML, restocked.FetchHTTP, nil),
			staticFetcher(goodHTML, restocked.FetchBrowser, &browserCalls),
		)

		result, err := f.Fetch(context.Background(), "https://shop.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, restocked.FetchHTTP, result.Strategy)
		assert.Zero(t, browserCalls)
	})

	t.Run("escalates on EBOTBLOCKED from the primary path", func(t *testing.T) {
		t.Parallel()

		primary := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*restocked.FetchResult, error) {
				return nil, restocked.Errorf(restocked.EBOTBLOCKED, "403 from %s", url)
			},
		}
		f := fetch.NewFetcher(primary, staticFetcher(goodHTML, restocked.FetchBrowser, nil))

		result, err := f.Fetch(context.Background(), "https://shop.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, restocked.FetchBrowser, result.Strategy)
	})

	t.Run("escalates when a 200 response is a bot challenge", func(t *testing.T) {
		t.Parallel()

		challenge := `<html><body><div class="g-recaptcha">verify you are human</div>` +
			strings.Repeat("<p>x</p>", 400) + `</body></html>`
		f := fetch.NewFetcher(
			staticFetcher(challenge, restocked.FetchHTTP, nil),
			staticFetcher(goodHTML, restocked.FetchBrowser, nil),
		)

		result, err := f.Fetch(context.Background(), "https://shop.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, restocked.FetchBrowser, result.Strategy)
	})

	t.Run("escalates thin pages that need client-side rendering", func(t *testing.T) {
		t.Parallel()

		f := fetch.NewFetcher(
			staticFetcher("<html><body><div id=root></div></body></html>", restocked.FetchHTTP, nil),
			staticFetcher(goodHTML, restocked.FetchBrowser, nil),
		)

		result, err := f.Fetch(context.Background(), "https://spa.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, restocked.FetchBrowser, result.Strategy)
	})

	t.Run("remembers hosts that needed the browser", func(t *testing.T) {
		t.Parallel()

		var primaryCalls, browserCalls int
		f := fetch.NewFetcher(
			staticFetcher("<html></html>", restocked.FetchHTTP, &primaryCalls),
			staticFetcher(goodHTML, restocked.FetchBrowser, &browserCalls),
		)
		ctx := context.Background()

		_, err := f.Fetch(ctx, "https://spa.example.com/widget")
		require.NoError(t, err)
		_, err = f.Fetch(ctx, "https://spa.example.com/gadget")
		require.NoError(t, err)

		assert.Equal(t, 1, primaryCalls, "second fetch skips the doomed lightweight attempt")
		assert.Equal(t, 2, browserCalls)
	})

	t.Run("without a browser a challenge surfaces as EBOTBLOCKED", func(t *testing.T) {
		t.Parallel()

		challenge := `<html><body>pardon our interruption</body></html>`
		f := fetch.NewFetcher(staticFetcher(challenge, restocked.FetchHTTP, nil), nil)

		_, err := f.Fetch(context.Background(), "https://shop.example.com/widget")
		assert.Equal(t, restocked.EBOTBLOCKED, restocked.ErrorCode(err))
	})

	t.Run("without a browser a thin page is returned as-is", func(t *testing.T) {
		t.Parallel()

		f := fetch.NewFetcher(staticFetcher("<html>thin</html>", restocked.FetchHTTP, nil), nil)

		result, err := f.Fetch(context.Background(), "https://spa.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, "<html>thin</html>", result.HTML)
	})

	t.Run("retries transient primary errors", func(t *testing.T) {
		t.Parallel()

		var calls int
		primary := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*restocked.FetchResult, error) {
				calls++
				if calls < 3 {
					return nil, restocked.Errorf(restocked.ETRANSPORT, "connection reset")
				}
				return &restocked.FetchResult{HTML: goodHTML, FinalURL: url, Strategy: restocked.FetchHTTP}, nil
			},
		}
		f := fetch.NewFetcher(primary, nil, fetch.WithRetryDelays([]time.Duration{0, 0, 0}))

		_, err := f.Fetch(context.Background(), "https://shop.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry ENOTFOUND", func(t *testing.T) {
		t.Parallel()

		var calls int
		primary := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*restocked.FetchResult, error) {
				calls++
				return nil, restocked.Errorf(restocked.ENOTFOUND, "404 from %s", url)
			},
		}
		f := fetch.NewFetcher(primary, nil, fetch.WithRetryDelays([]time.Duration{0, 0, 0}))

		_, err := f.Fetch(context.Background(), "https://shop.example.com/gone")
		assert.Equal(t, restocked.ENOTFOUND, restocked.ErrorCode(err))
		assert.Equal(t, 1, calls)
	})
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, fetch.Retryable(restocked.Errorf(restocked.ETIMEOUT, "slow")))
	assert.True(t, fetch.Retryable(restocked.Errorf(restocked.ETRANSPORT, "reset")))
	assert.False(t, fetch.Retryable(restocked.Errorf(restocked.ENOTFOUND, "gone")))
	assert.False(t, fetch.Retryable(restocked.Errorf(restocked.EBOTBLOCKED, "blocked")))
	assert.False(t, fetch.Retryable(nil))
}
