package profiles

import (
	"os"

	"github.com/lkimju1/subsync/internal/confgen"
	"github.com/lkimju1/subsync/internal/subscription"
)

// CountProxies reports how many proxies a profile body carries: the length
// of its proxies list, or the number of decodable links in a raw payload.
func CountProxies(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	if n, ok := confgen.CountProxies(b); ok {
		return n, true
	}
	if n := len(subscription.Parse(b)); n > 0 {
		return n, true
	}
	return 0, false
}
