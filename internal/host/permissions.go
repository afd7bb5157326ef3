package host

import (
	"context"
	"strings"
)

// AllowList grants access to a fixed set of origins such as
// "https://example.com". The entry "*" grants everything, and
// "https://*.example.com" grants any subdomain over https.
type AllowList []string

func (a AllowList) Granted(ctx context.Context, origin string) (bool, error) {
	origin = strings.TrimSuffix(strings.ToLower(origin), "/")
	for _, entry := range a {
		entry = strings.TrimSuffix(strings.ToLower(entry), "/")
		switch {
		case entry == "*", entry == origin:
			return true, nil
		case strings.Contains(entry, "://*."):
			scheme, rest, _ := strings.Cut(entry, "://*.")
			if strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(origin, "."+rest) {
				return true, nil
			}
		}
	}
	return false, nil
}
