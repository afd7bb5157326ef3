// Package favicon resolves and caches favicon URLs per domain.
package favicon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/types"
)

// CacheKey is the storage key of the persisted cache blob.
const CacheKey = "bookmark_favicon_cache"

const (
	DefaultExpiry  = 7 * 24 * time.Hour
	DefaultTimeout = time.Second
)

const placeholderSVG = `<svg width="16" height="16" viewBox="0 0 16 16" fill="none" xmlns="http://www.w3.org/2000/svg">` +
	`<path d="M8 1C11.866 1 15 4.134 15 8C15 11.866 11.866 15 8 15C4.134 15 1 11.866 1 8C1 4.134 4.134 1 8 1Z" fill="#667EEA"/>` +
	`<path d="M5.5 6H10.5V10H5.5V6Z" fill="white"/></svg>`

// Placeholder is returned when no strategy finds an icon.
var Placeholder = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(placeholderSVG))

var iconLinks = cascadia.MustCompile("link[rel][href]")

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Client      *http.Client
	Timeout     time.Duration // per probe
	Expiry      time.Duration // cache lifetime, measured from the blob timestamp
	Permissions host.PermissionChecker

	// WellKnownURL and ProxyURL build the candidate URLs for a domain.
	WellKnownURL func(domain string) string
	ProxyURL     func(domain string) string

	Now func() time.Time
}

// Service resolves favicons with a persisted per-domain cache.
type Service struct {
	store host.KVStore
	opts  Options

	mu    sync.Mutex
	cache map[string]string

	persistMu sync.Mutex
}

// New returns a Service persisting its cache in store.
func New(store host.KVStore, opts Options) *Service {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Permissions == nil {
		opts.Permissions = host.AllowList(nil)
	}
	if opts.WellKnownURL == nil {
		opts.WellKnownURL = func(domain string) string {
			return "https://" + domain + "/favicon.ico"
		}
	}
	if opts.ProxyURL == nil {
		opts.ProxyURL = func(domain string) string {
			return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(domain) + "&sz=16"
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, opts: opts, cache: make(map[string]string)}
}

// Init loads the persisted cache. A missing or expired blob is replaced by
// an empty one. Failures are logged and leave the cache empty.
func (s *Service) Init(ctx context.Context) {
	data, ok, err := s.store.Get(ctx, CacheKey)
	if err != nil {
		applog.Error("favicon.init", err)
		return
	}
	if ok {
		var blob types.FaviconCacheData
		if err := json.Unmarshal(data, &blob); err != nil {
			applog.Error("favicon.init", err)
		} else if s.valid(blob) {
			s.mu.Lock()
			s.cache = make(map[string]string, len(blob.Data))
			for k, v := range blob.Data {
				s.cache[k] = v
			}
			s.mu.Unlock()
			applog.Info("favicon.init", "entries", len(blob.Data))
			return
		}
	}
	s.mu.Lock()
	dropped := len(s.cache)
	s.cache = make(map[string]string)
	s.mu.Unlock()
	applog.Info("favicon.init", "entries", 0, "dropped", dropped)
	s.persist(ctx)
}

func (s *Service) valid(blob types.FaviconCacheData) bool {
	return s.opts.Now().UnixMilli()-blob.Timestamp < s.opts.Expiry.Milliseconds()
}

// Cached returns the cached icon for a page URL's domain.
func (s *Service) Cached(pageURL string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[htmlutil.GetDomain(pageURL)]
	return v, ok
}

// Get returns an icon URL for pageURL. It never fails: when every strategy
// misses, the placeholder is returned and cached.
func (s *Service) Get(ctx context.Context, pageURL string) string {
	if v, ok := s.Cached(pageURL); ok {
		return v
	}
	domain := htmlutil.GetDomain(pageURL)
	icon, strategy := s.resolve(ctx, pageURL, domain)
	if ctx.Err() != nil {
		return Placeholder
	}
	s.mu.Lock()
	s.cache[domain] = icon
	s.mu.Unlock()
	applog.Info("favicon.resolved", "domain", domain, "strategy", strategy)
	s.persist(ctx)
	return icon
}

// GetAll resolves every URL concurrently. The result is aligned with urls.
func (s *Service) GetAll(ctx context.Context, urls []string) []string {
	out := make([]string, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			out[i] = s.Get(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return out
}

// Clear empties the cache and removes the persisted blob.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
	if err := s.store.Delete(ctx, CacheKey); err != nil {
		applog.Error("favicon.clear", err)
	}
}

// Len returns the number of cached domains.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Service) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	blob := types.FaviconCacheData{
		Data:      make(map[string]string, len(s.cache)),
		Timestamp: s.opts.Now().UnixMilli(),
	}
	for k, v := range s.cache {
		blob.Data[k] = v
	}
	s.mu.Unlock()

	data, err := json.Marshal(blob)
	if err != nil {
		applog.Error("favicon.persist", err)
		return
	}
	if err := s.store.Set(ctx, CacheKey, data); err != nil {
		applog.Error("favicon.persist", err)
	}
}

func (s *Service) resolve(ctx context.Context, pageURL, domain string) (icon, strategy string) {
	if u := s.opts.WellKnownURL(domain); s.probe(ctx, u) {
		return u, "well-known"
	}
	if u := s.fromPage(ctx, pageURL); u != "" && s.probe(ctx, u) {
		return u, "html"
	}
	if u := s.opts.ProxyURL(domain); s.probe(ctx, u) {
		return u, "proxy"
	}
	return Placeholder, "placeholder"
}

// probe reports whether u serves an image within the timeout.
func (s *Service) probe(ctx context.Context, u string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mt, "image/") {
		return true
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(resp.Body, head)
	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/")
}

// fromPage fetches pageURL and returns the absolute href of its icon link.
// Pages are only fetched for origins that are already granted.
func (s *Service) fromPage(ctx context.Context, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ""
	}
	origin := base.Scheme + "://" + base.Host
	granted, err := s.opts.Permissions.Granted(ctx, origin)
	if err != nil {
		applog.Error("favicon.permission", err, "origin", origin)
		return ""
	}
	if !granted {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}
	href, err := IconHref(io.LimitReader(resp.Body, 1<<20))
	if err != nil || href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// IconHref returns the href of the first <link rel="icon"> or
// <link rel="shortcut icon"> in an HTML document.
func IconHref(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	for _, n := range cascadia.QueryAll(doc, iconLinks) {
		var rel, href string
		for _, a := range n.Attr {
			switch a.Key {
			case "rel":
				rel = strings.ToLower(strings.Join(strings.Fields(a.Val), " "))
			case "href":
				href = strings.TrimSpace(a.Val)
			}
		}
		if (rel == "icon" || rel == "shortcut icon") && href != "" {
			return href, nil
		}
	}
	return "", nil
}
