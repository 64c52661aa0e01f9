package crawler

import (
	"context"
	"errors"
	"testing"

	"sjsage522/giveawayrelay/internal/browser/browsertest"
	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(b *browsertest.Browser) *Engine {
	return NewEngine(b, testOptions(), logger.Nop())
}

func TestCollectDirectHits(t *testing.T) {
	const root = "https://subber.xyz/brand"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{
			"/giveaway/1",
			"/campaigns/2",
			"/project/about",
			"https://www.alphabot.app/r/elsewhere",
		}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://subber.xyz/giveaway/1",
		"https://subber.xyz/campaigns/2",
		"https://www.alphabot.app/r/elsewhere",
	}, got)
	assert.Equal(t, []string{root}, b.Visits())
	assert.Equal(t, b.Opened(), b.Closed())
}

func TestCollectProjectScoping(t *testing.T) {
	const root = "https://atlas3.io/project/alpha"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{
			"/project/alpha/giveaway/1",
			"/project/beta/giveaway/2",
		}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://atlas3.io/project/alpha/giveaway/1"}, got)
}

func TestCollectRevealFallback(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Site{
		projectPage: {Buttons: []browsertest.Button{
			{Label: "Enter", Target: "https://www.alphabot.app/r/abc"},
		}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), projectPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.alphabot.app/r/abc"}, got)
}

func TestCollectRevealsGenericChild(t *testing.T) {
	const root = "https://www.alphabot.app/"
	const child = "https://www.alphabot.app/_/moon"
	b := browsertest.New(map[string]*browsertest.Site{
		root:  {Links: []string{"/_/moon", "/about"}},
		child: {Buttons: []browsertest.Button{{Label: "Enter", Target: "https://www.alphabot.app/r/moon"}}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.alphabot.app/r/moon"}, got)
	assert.Equal(t, []string{root, child}, b.Visits())
	assert.Equal(t, []string{"click " + child + " #0"}, b.Clicks())
	assert.Equal(t, b.Opened(), b.Closed())
}

func TestCollectProjectScopingIgnoresQuery(t *testing.T) {
	const root = "https://atlas3.io/project/alpha"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{
			"/project/beta/giveaway/2?ref=/project/alpha/",
			"/project/alpha/giveaway/1",
		}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://atlas3.io/project/alpha/giveaway/1"}, got)
}

func TestCollectExploresChildren(t *testing.T) {
	const root = "https://atlas3.io/project/alpha"
	const child = "https://atlas3.io/project/alpha/giveaways"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{
			root,
			"/project/beta/giveaways",
			"https://other.io/project/alpha/giveaways",
			"/project/alpha/team",
			child,
		}},
		child: {Links: []string{"/project/alpha/giveaway/42", "/project/beta/giveaway/9"}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://atlas3.io/project/alpha/giveaway/42"}, got)
	assert.Equal(t, []string{root, "https://atlas3.io/project/alpha/team", child}, b.Visits())
	assert.Equal(t, b.Opened(), b.Closed())
}

func TestCollectStopsAtFirstProductiveChild(t *testing.T) {
	const root = "https://subber.xyz/brand"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{"/project/one", "/project/two"}},
		"https://subber.xyz/project/one": {Links: []string{"/giveaway/1"}},
		"https://subber.xyz/project/two": {Links: []string{"/giveaway/2"}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://subber.xyz/giveaway/1"}, got)
	assert.Equal(t, []string{root, "https://subber.xyz/project/one"}, b.Visits())
}

func TestCollectSkipsFailingChild(t *testing.T) {
	const root = "https://subber.xyz/brand"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{"/project/broken", "/project/ok"}},
		"https://subber.xyz/project/broken": {GotoErr: errors.New("net::ERR_CONNECTION_RESET")},
		"https://subber.xyz/project/ok":     {Links: []string{"/campaign/5"}},
	})

	got, err := newTestEngine(b).Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://subber.xyz/campaign/5"}, got)
	assert.Equal(t, b.Opened(), b.Closed())
}

func TestCollectChildLimit(t *testing.T) {
	const root = "https://subber.xyz/brand"
	b := browsertest.New(map[string]*browsertest.Site{
		root: {Links: []string{"/project/a", "/project/b", "/project/c", "/project/a"}},
		"https://subber.xyz/project/a": {},
		"https://subber.xyz/project/b": {},
		"https://subber.xyz/project/c": {},
	})

	opts := testOptions()
	opts.MaxChildPages = 2
	got, err := NewEngine(b, opts, logger.Nop()).Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, []string{root, "https://subber.xyz/project/a", "https://subber.xyz/project/b"}, b.Visits())
}

func TestCollectRootFailure(t *testing.T) {
	b := browsertest.New(nil)

	got, err := newTestEngine(b).Collect(context.Background(), "https://unreachable.example/")
	assert.Empty(t, got)

	var relayErr *relayerrors.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relayerrors.ErrorTypeNavigation, relayErr.Type)
	assert.Equal(t, 1, b.Closed())
}

func TestCollectNewPageFailure(t *testing.T) {
	b := browsertest.New(nil)
	b.FailNewPage(errors.New("browser closed"))

	_, err := newTestEngine(b).Collect(context.Background(), "https://subber.xyz/brand")
	assert.ErrorContains(t, err, "browser closed")
}
