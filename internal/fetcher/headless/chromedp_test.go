package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/identity"
	"github.com/JakeFAU/profile-watcher/internal/monitor"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{NavigationTimeout: -time.Second}, nil)
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{Headless: true}, nil)
	require.NoError(t, err)
	assert.NotNil(t, fetcher.logger)
	assert.Nil(t, fetcher.browserCtx, "browser must launch lazily")
}

func TestFetcherNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	assert.Equal(t, 90*time.Second, fetcher.navTimeout())
	fetcher.cfg.NavigationTimeout = time.Second
	assert.Equal(t, time.Second, fetcher.navTimeout())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, monitor.FetchTimeout, classify(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.Equal(t, monitor.FetchNavigation, classify(errors.New("net::ERR_NAME_NOT_RESOLVED")))
}

func TestAllocatorOptionsIncludeExecPath(t *testing.T) {
	t.Parallel()

	base := &Fetcher{cfg: Config{Headless: true}}
	withPath := &Fetcher{cfg: Config{Headless: true, ExecPath: "/usr/bin/chromium"}}
	assert.Len(t, withPath.allocatorOptions(), len(base.allocatorOptions())+1)
}

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	cookies := []*network.Cookie{
		{Name: "auth_token", Value: "abc", Domain: ".x.com", Path: "/", Expires: 1893456000, HTTPOnly: true, Secure: true, SameSite: network.CookieSameSiteNone},
		{Name: "guest", Value: "1", Domain: "x.com", Path: "/", Session: true, Expires: -1},
		nil,
	}
	state, err := encodeCookies(cookies)
	require.NoError(t, err)
	assert.Contains(t, string(state), `"httpOnly": true`)

	params, err := decodeCookies(state)
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, "auth_token", params[0].Name)
	assert.Equal(t, network.CookieSameSiteNone, params[0].SameSite)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1893456000), params[0].Expires.Time().Unix())

	assert.Equal(t, "guest", params[1].Name)
	assert.Nil(t, params[1].Expires, "session cookies carry no expiry")
}

func TestDecodeCookiesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := decodeCookies(monitor.SessionState("{not json"))
	require.Error(t, err)

	params, err := decodeCookies(monitor.SessionState(`[{"name":""},{"name":"a","value":"b"}]`))
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "a", params[0].Name)
}

func TestProfileActionsRejectInvalidProfile(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{logger: zap.NewNop()}
	_, err := fetcher.profileActions(identity.Profile{})
	require.Error(t, err)

	tasks, err := fetcher.profileActions(identity.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not cancelled")
	}
}

func TestFetcherRendersMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "seen", Value: "1", Path: "/"})
		fmt.Fprint(w, `<!doctype html><html><body><script>
setTimeout(function () {
  document.body.innerHTML = '<article data-testid="tweet"><div lang="en">late content</div></article>';
}, 50);
</script></body></html>`)
	}))
	defer srv.Close()

	fetcher, err := NewChromedp(Config{Headless: true, NavigationTimeout: 10 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer fetcher.Close()
	if _, err := fetcher.ensureBrowser(); err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}

	request := monitor.FetchRequest{
		URL:           srv.URL,
		Profile:       identity.Default(),
		Marker:        `[data-testid="tweet"]`,
		MarkerTimeout: 5 * time.Second,
	}
	resp, err := fetcher.Fetch(context.Background(), request)
	require.NoError(t, err)
	if !strings.Contains(string(resp.Body), "late content") {
		t.Fatal("rendered body missing dynamic content")
	}
	assert.Contains(t, string(resp.Session), `"seen"`)

	// A second fetch reuses the browser and restores the captured session.
	request.Session = resp.Session
	again, err := fetcher.Fetch(context.Background(), request)
	require.NoError(t, err)
	assert.Contains(t, string(again.Body), "late content")
}

func TestFetcherMissingMarkerIsMarkerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><p>nothing here</p></body></html>`)
	}))
	defer srv.Close()

	fetcher, err := NewChromedp(Config{Headless: true, NavigationTimeout: 10 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer fetcher.Close()
	if _, err := fetcher.ensureBrowser(); err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}

	_, err = fetcher.Fetch(context.Background(), monitor.FetchRequest{
		URL:           srv.URL,
		Profile:       identity.Default(),
		Marker:        `[data-testid="tweet"]`,
		MarkerTimeout: 500 * time.Millisecond,
	})
	var fetchErr *monitor.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, monitor.FetchMarker, fetchErr.Kind)
}
