// Package cookiejar is an origin-scoped cookie store.
//
// Cookies are identified by name. Setting a cookie replaces any cookie of
// the same name regardless of path. Expired cookies are evicted whenever
// they are touched.
package cookiejar

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// MaxEntryBytes is the usual browser ceiling for one Set-Cookie line.
const MaxEntryBytes = 4096

// Config configures a Jar.
type Config struct {
	// Origin is the scheme and host the jar belongs to, e.g.
	// "https://app.example". Defaults to "https://localhost".
	Origin string

	// MaxEntryBytes caps the serialized size of one cookie. Zero means
	// MaxEntryBytes.
	MaxEntryBytes int

	Disabled bool

	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

type entry struct {
	cookie  *http.Cookie
	created time.Time
}

// Jar holds the cookies of one origin.
type Jar struct {
	origin   *url.URL
	maxEntry int
	now      func() time.Time
	logger   *slog.Logger

	enabled atomic.Bool

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a Jar.
func New(cfg Config) (*Jar, error) {
	raw := cfg.Origin
	if raw == "" {
		raw = "https://localhost"
	}
	origin, err := url.Parse(raw)
	if err != nil || origin.Host == "" {
		return nil, domain.ErrConfiguration.Detailf("invalid cookie origin %q", raw)
	}
	if cfg.MaxEntryBytes < 0 {
		return nil, domain.ErrConfiguration.Detailf("negative cookie entry limit %d", cfg.MaxEntryBytes)
	}

	j := &Jar{
		origin:   origin,
		maxEntry: cfg.MaxEntryBytes,
		now:      cfg.Now,
		logger:   cfg.Logger,
		entries:  make(map[string]*entry),
	}
	if j.maxEntry == 0 {
		j.maxEntry = MaxEntryBytes
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	j.enabled.Store(!cfg.Disabled)

	return j, nil
}

// Origin returns the origin URL.
func (j *Jar) Origin() *url.URL {
	u := *j.origin
	return &u
}

// MaxEntry returns the per-cookie byte ceiling.
func (j *Jar) MaxEntry() int {
	return j.maxEntry
}

// Enabled reports whether the jar accepts operations.
func (j *Jar) Enabled() bool {
	return j.enabled.Load()
}

// SetEnabled switches the jar between available and unavailable.
func (j *Jar) SetEnabled(enabled bool) {
	j.enabled.Store(enabled)
}

func (j *Jar) checkEnabled() error {
	if !j.enabled.Load() {
		return domain.ErrUnavailableBackend.WithDetails("cookies are disabled")
	}
	return nil
}

// Set stores c. A cookie with MaxAge < 0 or an Expires in the past deletes
// the cookie of that name. A positive MaxAge takes precedence over Expires
// and counts from now. A cookie whose Set-Cookie form exceeds the entry
// limit is rejected with QuotaExceeded and any existing cookie is kept.
func (j *Jar) Set(c *http.Cookie) error {
	if err := j.checkEnabled(); err != nil {
		return err
	}

	line := c.String()
	if line == "" {
		return domain.ErrConfiguration.Detailf("invalid cookie name %q", c.Name)
	}
	if len(line) > j.maxEntry {
		return domain.ErrQuotaExceeded.Detailf("cookie %s is %d bytes, limit %d", c.Name, len(line), j.maxEntry)
	}

	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	if expired(c, now) {
		delete(j.entries, c.Name)
		return nil
	}

	stored := *c
	if stored.Path == "" {
		stored.Path = "/"
	}
	if stored.MaxAge > 0 {
		stored.Expires = now.Add(time.Duration(stored.MaxAge) * time.Second)
	}
	created := now
	if old, ok := j.entries[c.Name]; ok {
		created = old.created
	}
	j.entries[c.Name] = &entry{cookie: &stored, created: created}
	return nil
}

// Get returns a copy of the named cookie.
func (j *Jar) Get(name string) (*http.Cookie, bool, error) {
	if err := j.checkEnabled(); err != nil {
		return nil, false, err
	}

	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.entries[name]
	if !ok {
		return nil, false, nil
	}
	if expired(e.cookie, now) {
		delete(j.entries, name)
		j.logger.Debug("evicted expired cookie", "name", name)
		return nil, false, nil
	}
	c := *e.cookie
	return &c, true, nil
}

// Delete removes the named cookie.
func (j *Jar) Delete(name string) error {
	if err := j.checkEnabled(); err != nil {
		return err
	}
	j.mu.Lock()
	delete(j.entries, name)
	j.mu.Unlock()
	return nil
}

// Names returns the names of all live cookies, sorted.
func (j *Jar) Names() ([]string, error) {
	if err := j.checkEnabled(); err != nil {
		return nil, err
	}

	now := j.now()

	j.mu.Lock()
	j.evictLocked(now)
	names := make([]string, 0, len(j.entries))
	for name := range j.entries {
		names = append(names, name)
	}
	j.mu.Unlock()

	sort.Strings(names)
	return names, nil
}

// Clear removes every cookie.
func (j *Jar) Clear() error {
	if err := j.checkEnabled(); err != nil {
		return err
	}
	j.mu.Lock()
	j.entries = make(map[string]*entry)
	j.mu.Unlock()
	return nil
}

// Usage returns the total Set-Cookie bytes of live cookies.
func (j *Jar) Usage() int64 {
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.evictLocked(now)
	var n int64
	for _, e := range j.entries {
		n += int64(len(e.cookie.String()))
	}
	return n
}

// Cookies returns the cookies a request to u carries: same origin host,
// path match, and secure cookies only over https. Longer paths come first,
// then older cookies.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	if !j.enabled.Load() || u == nil || !strings.EqualFold(u.Host, j.origin.Host) {
		return nil
	}

	now := j.now()
	https := u.Scheme == "https"
	reqPath := u.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}

	j.mu.Lock()
	j.evictLocked(now)
	matched := make([]*entry, 0, len(j.entries))
	for _, e := range j.entries {
		if e.cookie.Secure && !https {
			continue
		}
		if !pathMatch(reqPath, e.cookie.Path) {
			continue
		}
		matched = append(matched, e)
	}
	j.mu.Unlock()

	sort.Slice(matched, func(a, b int) bool {
		pa, pb := len(matched[a].cookie.Path), len(matched[b].cookie.Path)
		if pa != pb {
			return pa > pb
		}
		if !matched[a].created.Equal(matched[b].created) {
			return matched[a].created.Before(matched[b].created)
		}
		return matched[a].cookie.Name < matched[b].cookie.Name
	})

	out := make([]*http.Cookie, len(matched))
	for i, e := range matched {
		out[i] = &http.Cookie{Name: e.cookie.Name, Value: e.cookie.Value}
	}
	return out
}

// AddToRequest attaches the matching cookies to req.
func (j *Jar) AddToRequest(req *http.Request) {
	for _, c := range j.Cookies(req.URL) {
		req.AddCookie(c)
	}
}

// SetCookies implements http.CookieJar so the jar can back an http.Client.
// Cookies for other hosts are ignored.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u == nil || !strings.EqualFold(u.Host, j.origin.Host) {
		return
	}
	for _, c := range cookies {
		if err := j.Set(c); err != nil {
			j.logger.Warn("rejected cookie from response", "name", c.Name, "error", err)
		}
	}
}

func (j *Jar) evictLocked(now time.Time) {
	for name, e := range j.entries {
		if expired(e.cookie, now) {
			delete(j.entries, name)
		}
	}
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}

// pathMatch implements the RFC 6265 section 5.1.4 path-match rule.
func pathMatch(reqPath, cookiePath string) bool {
	if cookiePath == "" || cookiePath == "/" || reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

var _ http.CookieJar = (*Jar)(nil)
