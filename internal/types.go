package internal

import (
	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/services/cache"
	"sjsage522/giveawayrelay/services/publisher"
	"sjsage522/giveawayrelay/services/sources"
	"sjsage522/giveawayrelay/services/state"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Browser   browser.Browser
	Sources   sources.Feed
	State     state.Store
	Publisher publisher.Publisher
	// Cooldown may be nil when no cache is configured
	Cooldown *cache.Cooldown
}
