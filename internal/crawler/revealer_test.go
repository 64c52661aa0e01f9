package crawler

import (
	"context"
	"testing"

	"sjsage522/giveawayrelay/internal/browser/browsertest"
	"sjsage522/giveawayrelay/logger"

	"github.com/stretchr/testify/assert"
)

const projectPage = "https://www.alphabot.app/_/moonbirds"

func TestRevealDirectClick(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Site{
		projectPage: {Buttons: []browsertest.Button{
			{Label: "Enter raffle", Target: "https://www.alphabot.app/r/abc"},
		}},
	})
	page := openPage(t, b, projectPage)

	got := NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 3)

	assert.Equal(t, []string{"https://www.alphabot.app/r/abc"}, got)
	assert.Equal(t, []string{"click " + projectPage + " #0"}, b.Clicks())
	url, _ := page.URL(context.Background())
	assert.Equal(t, projectPage, url)
}

func TestRevealFallsBackToAncestor(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Site{
		projectPage: {Buttons: []browsertest.Button{
			{Label: "ENTER", Target: "https://www.alphabot.app/r/abc", ViaAncestor: true},
		}},
	})
	page := openPage(t, b, projectPage)

	got := NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 3)

	assert.Equal(t, []string{"https://www.alphabot.app/r/abc"}, got)
	assert.Equal(t, []string{
		"click " + projectPage + " #0",
		"ancestor " + projectPage + " #0",
	}, b.Clicks())
}

func TestRevealBoundedAttempts(t *testing.T) {
	var buttons []browsertest.Button
	for i := 0; i < 5; i++ {
		buttons = append(buttons, browsertest.Button{Label: "Enter"})
	}
	b := browsertest.New(map[string]*browsertest.Site{
		projectPage: {Buttons: buttons},
	})
	page := openPage(t, b, projectPage)

	got := NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 3)

	assert.Empty(t, got)
	// every attempt tries the element and then its ancestor
	assert.Len(t, b.Clicks(), 6)
}

func TestRevealIgnoresUnacceptedTargets(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Site{
		projectPage: {Buttons: []browsertest.Button{
			{Label: "Enter", Target: "https://www.alphabot.app/pricing"},
			{Label: "Enter now", Target: "https://www.alphabot.app/r/second"},
			{Label: "Share"},
		}},
	})
	page := openPage(t, b, projectPage)

	got := NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 3)

	// the first attempt leaves the page; the second still starts from origin
	assert.Equal(t, []string{"https://www.alphabot.app/r/second"}, got)
	assert.Equal(t, []string{
		"click " + projectPage + " #0",
		"click " + projectPage + " #1",
	}, b.Clicks())
}

func TestRevealNoCandidates(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Site{projectPage: {}})
	page := openPage(t, b, projectPage)

	assert.Empty(t, NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 3))
	assert.Empty(t, NewRevealer(testOptions(), logger.Nop()).Reveal(context.Background(), page, 0))
	assert.Empty(t, b.Clicks())
}
