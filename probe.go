package restocked

import "strings"

// MinPlausibleHTMLBytes is the size below which a response is assumed to be
// a challenge interstitial or an empty shell rather than a product page.
const MinPlausibleHTMLBytes = 2048

// challengeMarkers identify bot-challenge interstitials. Matching is done
// on a lowercased copy of the page.
var challengeMarkers = []string{
	"cf-browser-verification",
	"cf_chl_opt",
	"challenge-platform",
	"g-recaptcha",
	"h-captcha",
	"px-captcha",
	"are you a robot",
	"verify you are human",
	"access denied",
	"pardon our interruption",
}

// productMarkers identify pages that plausibly contain product data the
// extractor can work with.
var productMarkers = []string{
	"application/ld+json",
	"og:type\" content=\"product",
	"og:price",
	"product:price",
	"itemprop=\"price",
	"itemprop='price",
	"data-price",
	"add to cart",
	"add to bag",
}

// LooksBotChallenge reports whether the page is a bot-detection
// interstitial rather than real content.
func LooksBotChallenge(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// HasProductMarkers reports whether the page carries any structured or
// heuristic product signals. A page without them is either not a product
// page or needs client-side rendering to become one.
func HasProductMarkers(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range productMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
