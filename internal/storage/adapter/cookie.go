package adapter

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/cookiejar"
)

// CookieAdapter stores entries as cookies. Names and values are
// query-escaped so any key and envelope survive cookie syntax.
type CookieAdapter struct {
	jar   *cookiejar.Jar
	probe probe
}

// NewCookie returns the cookie adapter over jar.
func NewCookie(jar *cookiejar.Jar) *CookieAdapter {
	a := &CookieAdapter{jar: jar}
	a.probe.run = func() error {
		if err := jar.Set(&http.Cookie{Name: probeKey, Value: "1", Path: "/"}); err != nil {
			return err
		}
		return jar.Delete(probeKey)
	}
	return a
}

// Jar returns the underlying jar.
func (a *CookieAdapter) Jar() *cookiejar.Jar {
	return a.jar
}

func (a *CookieAdapter) Backend() domain.Backend {
	return domain.BackendCookie
}

func (a *CookieAdapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		MaxBytes:      int64(a.jar.MaxEntry()),
		PerEntryLimit: true,
		Persistent:    true,
		Shared:        true,
	}
}

func (a *CookieAdapter) IsAvailable() bool {
	return a.jar.Enabled() && a.probe.available()
}

func (a *CookieAdapter) Set(ctx context.Context, key, raw string, w WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := &http.Cookie{
		Name:     url.QueryEscape(key),
		Value:    url.QueryEscape(raw),
		Path:     w.Path,
		Secure:   w.Secure,
		SameSite: w.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	// Expires only: a Max-Age would override it with whole seconds.
	if !w.ExpiresAt.IsZero() {
		c.Expires = w.ExpiresAt
	}

	return a.jar.Set(c)
}

func (a *CookieAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c, ok, err := a.jar.Get(url.QueryEscape(key))
	if err != nil || !ok {
		return "", false, err
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false, domain.ErrSerialization.Detailf("cookie %s has a malformed value", key).WithCause(err)
	}
	return raw, true, nil
}

func (a *CookieAdapter) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.jar.Delete(url.QueryEscape(key))
}

func (a *CookieAdapter) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.jar.Clear()
}

// Keys returns the unescaped names of all cookies. Names that do not
// unescape were not written by this adapter and are skipped.
func (a *CookieAdapter) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := a.jar.Names()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k, err := url.QueryUnescape(n)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (a *CookieAdapter) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok, err := a.jar.Get(url.QueryEscape(key))
	return ok, err
}
