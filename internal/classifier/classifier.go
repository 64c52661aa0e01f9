// Package classifier decides whether a URL points at a concrete giveaway on
// one of the supported platforms, as opposed to a generic project, profile or
// listing page that must never be relayed.
package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Family identifies a supported giveaway platform.
type Family int

const (
	// FamilyUnknown is any host that is not a supported platform
	FamilyUnknown Family = iota
	// FamilyAlphabot is the raffle aggregator (alphabot.app)
	FamilyAlphabot
	// FamilyAtlas is the quest platform keyed by project (atlas3.io)
	FamilyAtlas
	// FamilySubber is the allowlist/campaign platform (subber.xyz)
	FamilySubber
)

// family binds a platform to its registrable domain and path rule.
type family struct {
	name   string
	domain string
	accept func(path string) bool
}

var families = map[Family]family{
	FamilyAlphabot: {name: "alphabot", domain: "alphabot.app", accept: acceptAlphabot},
	FamilyAtlas:    {name: "atlas", domain: "atlas3.io", accept: acceptAtlas},
	FamilySubber:   {name: "subber", domain: "subber.xyz", accept: acceptSubber},
}

// String returns the platform name
func (f Family) String() string {
	if fam, ok := families[f]; ok {
		return fam.name
	}
	return "unknown"
}

var (
	fileExtension = regexp.MustCompile(`\.[a-z0-9]{1,6}$`)

	alphabotConcrete = regexp.MustCompile(`/(r|raffle|giveaway|claim|winners?)/[^/]+`)
	alphabotSlug     = regexp.MustCompile(`^/[a-z0-9][a-z0-9-]{2,}/?$`)
	alphabotProject  = regexp.MustCompile(`^/_/[^/]+/?$`)
	alphabotDenied   = map[string]bool{
		"tos": true, "terms": true, "privacy": true, "status": true, "support": true, "about": true,
		"contact": true, "brand": true, "api": true, "pricing": true, "blog": true,
	}

	atlasConcrete = regexp.MustCompile(`^/(project/[^/]+/(giveaway|giveaways|raffle|campaign|campaigns)|giveaway)/[^/]+`)
	atlasProject  = regexp.MustCompile(`^/project/([^/]+)`)

	subberConcrete = regexp.MustCompile(`(^|/)(giveaway|giveaways|campaign|campaigns)/[^/]+`)
)

// FamilyOf returns the platform a URL belongs to. Hosts are matched by
// substring on their registrable domain.
func FamilyOf(rawURL string) Family {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return FamilyUnknown
	}
	return familyOfHost(u.Hostname())
}

func familyOfHost(host string) Family {
	host = strings.ToLower(host)
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return FamilyUnknown
	}
	for f, fam := range families {
		if strings.Contains(domain, fam.domain) {
			return f
		}
	}
	return FamilyUnknown
}

// IsConcreteGiveaway reports whether rawURL is an individual giveaway page.
// Unparseable URLs and unsupported hosts are rejected.
func IsConcreteGiveaway(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	fam, ok := families[familyOfHost(u.Hostname())]
	if !ok {
		return false
	}
	return fam.accept(strings.ToLower(u.Path))
}

// IsGenericProjectPage reports whether rawURL is an alphabot /_/<slug>
// project page, which may hide its raffle behind an "Enter" button.
func IsGenericProjectPage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || familyOfHost(u.Hostname()) != FamilyAlphabot {
		return false
	}
	return alphabotProject.MatchString(strings.ToLower(u.Path))
}

// ProjectSlug returns the project slug of an atlas URL scoped to a project,
// or "" for any other URL.
func ProjectSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || familyOfHost(u.Hostname()) != FamilyAtlas {
		return ""
	}
	m := atlasProject.FindStringSubmatch(strings.ToLower(u.Path))
	if m == nil {
		return ""
	}
	return m[1]
}

// InProject reports whether the path of rawURL lies under /project/<slug>/.
// Query strings and fragments are not considered.
func InProject(rawURL, slug string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || slug == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(u.Path), "/project/"+strings.ToLower(slug)+"/")
}

// LooksPromising reports whether a non-giveaway path is worth opening as a
// child page when hunting for giveaways.
func LooksPromising(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.Contains(p, "/project/") ||
		strings.Contains(p, "/giveaway") ||
		strings.Contains(p, "/r/") ||
		strings.Contains(p, "/raffle") ||
		IsGenericProjectPage(rawURL)
}

// SameHost reports whether both URLs parse and share host and port.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

func acceptAlphabot(p string) bool {
	if p == "" || p == "/" || strings.HasPrefix(p, "/_/") || strings.HasPrefix(p, "/login") {
		return false
	}
	if fileExtension.MatchString(p) {
		return false
	}
	first := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)[0]
	if alphabotDenied[first] {
		return false
	}
	return alphabotConcrete.MatchString(p) || alphabotSlug.MatchString(p)
}

func acceptAtlas(p string) bool {
	return atlasConcrete.MatchString(p)
}

func acceptSubber(p string) bool {
	if fileExtension.MatchString(p) {
		return false
	}
	return subberConcrete.MatchString(p)
}
