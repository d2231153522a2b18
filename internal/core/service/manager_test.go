package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage"
)

type profile struct {
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Tags  []string `json:"tags"`
	Admin bool     `json:"admin"`
}

func TestManager_RoundTrip(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	m := newManager(t, o, testConfig("app"))

	values := map[string]any{
		"string": "hello",
		"number": 42.5,
		"bool":   true,
		"slice":  []any{"a", 1.0, nil},
		"map":    map[string]any{"nested": map[string]any{"x": 1.0}},
	}

	for _, b := range domain.Backends() {
		t.Run(b.String(), func(t *testing.T) {
			for name, v := range values {
				require.NoError(t, m.Set(ctx, name, v, InStorage(b)))

				var got any
				ok, err := m.Get(ctx, name, &got, InStorage(b))
				require.NoError(t, err)
				require.True(t, ok, name)
				assert.Equal(t, v, got, name)
			}

			want := profile{Name: "ada", Age: 36, Tags: []string{"x", "y"}, Admin: true}
			require.NoError(t, m.Route(b).Set(ctx, "profile", want))
			got, ok, err := GetAs[profile](ctx, m.Route(b), "profile")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestManager_GetAbsent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	for _, b := range domain.Backends() {
		got, ok, err := GetAs[string](ctx, m, "missing", InStorage(b))
		require.NoError(t, err, b.String())
		assert.False(t, ok, b.String())
		assert.Empty(t, got)
	}
}

func TestManager_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	o := newOrigin(t, func(c *storage.Config) { c.Now = clock.Now })

	for _, b := range domain.Backends() {
		t.Run(b.String(), func(t *testing.T) {
			m := newManager(t, o, testConfig("ttl-"+strings.ToLower(b.String())), WithClock(clock.Now))

			require.NoError(t, m.Set(ctx, "k", "v", InStorage(b), WithTTL(time.Second)))

			got, ok, err := GetAs[string](ctx, m, "k", InStorage(b))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "v", got)

			remaining, hasExpiry, err := m.TTL(ctx, "k", InStorage(b))
			require.NoError(t, err)
			assert.True(t, hasExpiry)
			assert.Equal(t, time.Second, remaining)

			clock.Advance(time.Second)

			_, ok, err = GetAs[string](ctx, m, "k", InStorage(b))
			require.NoError(t, err)
			assert.False(t, ok, "entry should be absent at expiry")

			keys, err := m.Keys(ctx, InStorage(b))
			require.NoError(t, err)
			assert.NotContains(t, keys, "k")
		})
	}
}

func TestManager_HasDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := newManager(t, newOrigin(t, nil), testConfig("app"), WithClock(clock.Now))

	require.NoError(t, m.Set(ctx, "k", 1, WithTTL(time.Minute)))
	clock.Advance(time.Hour)

	has, err := m.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has, "Has must not decode or evict")

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	ok, err := m.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, ok)

	has, err = m.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has, "Get should have evicted the entry")
}

func TestManager_InvalidTTL(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	for _, d := range []time.Duration{0, -time.Second} {
		err := m.Set(ctx, "k", 1, WithTTL(d))
		assert.ErrorIs(t, err, domain.ErrInvalidTTL, "ttl %s", d)
		assert.ErrorIs(t, err, domain.ErrConfiguration, "ttl %s", d)
	}

	has, err := m.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has, "rejected write must not store anything")
}

func TestManager_TTLWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	require.NoError(t, m.Set(ctx, "forever", "v"))
	remaining, hasExpiry, err := m.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.False(t, hasExpiry)
	assert.Zero(t, remaining)

	_, hasExpiry, err = m.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hasExpiry)
}

func TestManager_EncryptionOpacity(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	m := newManager(t, o, withSecret(testConfig("app"), "correct horse battery"))

	const secret = "the launch code is 0000"
	require.NoError(t, m.Set(ctx, "code", secret, WithEncryption()))

	raw := rawLocal(t, o, "app:code")
	assert.NotContains(t, raw, secret)
	assert.NotContains(t, raw, "launch")

	got, ok, err := GetAs[string](ctx, m, "code")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, secret, got)
}

func TestManager_SharedSecretAcrossContexts(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	a := newManager(t, o, withSecret(testConfig("app"), "shared-secret"))
	b := newManager(t, o, withSecret(testConfig("app"), "shared-secret"))

	require.NoError(t, a.Set(ctx, "k", "v", WithEncryption()))

	got, ok, err := GetAs[string](ctx, b, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestManager_WrongSecret(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	a := newManager(t, o, withSecret(testConfig("app"), "first-secret"))
	b := newManager(t, o, withSecret(testConfig("app"), "second-secret"))

	require.NoError(t, a.Set(ctx, "k", "v", WithEncryption()))

	_, ok, err := GetAs[string](ctx, b, "k")
	assert.ErrorIs(t, err, domain.ErrDecryption)
	assert.False(t, ok)

	// The failure is scoped to the key.
	require.NoError(t, a.Set(ctx, "plain", 7))
	n, ok, err := GetAs[int](ctx, b, "plain")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestManager_EncryptedWithoutSecret(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	a := newManager(t, o, withSecret(testConfig("app"), "some-secret"))
	b := newManager(t, o, testConfig("app"))

	require.NoError(t, a.Set(ctx, "k", "v", WithEncryption()))

	_, _, err := GetAs[string](ctx, b, "k")
	assert.ErrorIs(t, err, domain.ErrDecryption)

	err = b.Set(ctx, "k2", "v", WithEncryption())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestManager_CiphertextBoundToKey(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	m := newManager(t, o, withSecret(testConfig("app"), "some-secret"))

	require.NoError(t, m.Set(ctx, "a", "v", WithEncryption()))
	view := o.Local().View("attacker")
	require.NoError(t, view.Set("app:b", rawLocal(t, o, "app:a")))

	_, _, err := GetAs[string](ctx, m, "b")
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestManager_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	m := newManager(t, o, testConfig("app"))

	require.NoError(t, m.Set(ctx, "good", "ok"))
	require.NoError(t, o.Local().View("other").Set("app:bad", "{not json"))

	_, _, err := GetAs[string](ctx, m, "bad")
	assert.ErrorIs(t, err, domain.ErrSerialization)

	got, ok, err := GetAs[string](ctx, m, "good")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", got)
}

func TestManager_UnserializableValue(t *testing.T) {
	m := newManager(t, newOrigin(t, nil), testConfig("app"))
	err := m.Set(context.Background(), "fn", func() {})
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestManager_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	app1 := newManager(t, o, testConfig("app1"))
	app2 := newManager(t, o, testConfig("app2"))

	require.NoError(t, app1.Set(ctx, "shared", "one"))
	require.NoError(t, app2.Set(ctx, "shared", "two"))
	require.NoError(t, app1.Set(ctx, "only1", true))

	keys1, err := app1.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"only1", "shared"}, keys1)

	keys2, err := app2.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, keys2)

	v1, _, _ := GetAs[string](ctx, app1, "shared")
	v2, _, _ := GetAs[string](ctx, app2, "shared")
	assert.Equal(t, "one", v1)
	assert.Equal(t, "two", v2)

	require.NoError(t, app1.Clear(ctx))
	keys1, _ = app1.Keys(ctx)
	assert.Empty(t, keys1)
	keys2, _ = app2.Keys(ctx)
	assert.Equal(t, []string{"shared"}, keys2, "Clear must not touch other namespaces")
}

func TestManager_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, func(c *storage.Config) { c.LocalQuotaBytes = 512 })
	m := newManager(t, o, testConfig("app"))

	require.NoError(t, m.Set(ctx, "k", "small"))

	err := m.Set(ctx, "k", strings.Repeat("x", 1024))
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	got, ok, err := GetAs[string](ctx, m, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "small", got, "failed write must keep the previous value")
}

func TestManager_CookieAttributes(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	o := newOrigin(t, func(c *storage.Config) { c.Now = clock.Now })
	m := newManager(t, o, testConfig("app"), WithClock(clock.Now))

	require.NoError(t, m.Cookie().Set(ctx, "pref", "dark",
		WithTTL(90*time.Second),
		WithCookiePath("/settings"),
		WithCookieSecure(true),
		WithCookieSameSite(http.SameSiteStrictMode)))

	names, err := o.Cookies().Names()
	require.NoError(t, err)
	require.Len(t, names, 1)

	c, ok, err := o.Cookies().Get(names[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/settings", c.Path)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, clock.Now().Add(90*time.Second).Unix(), c.Expires.Unix())

	got, ok, err := GetAs[string](ctx, m.Cookie(), "pref")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", got)
}

func TestManager_CookieTooLarge(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	err := m.Cookie().Set(ctx, "big", strings.Repeat("x", 5000))
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestManager_UnknownBackend(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	err := m.Set(ctx, "k", 1, InStorage(domain.Backend(42)))
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = m.Capabilities(domain.Backend(42))
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)
	assert.False(t, m.IsAvailable(domain.Backend(42)))
}

func TestManager_Availability(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, func(c *storage.Config) { c.DisableIndexedDB = true })
	m := newManager(t, o, testConfig("app"))

	assert.Equal(t,
		[]domain.Backend{domain.BackendLocal, domain.BackendSession, domain.BackendCookie},
		m.AvailableBackends())
	assert.True(t, m.IsAvailable(domain.BackendDefault))
	assert.False(t, m.IsAvailable(domain.BackendIndexedDB))
	assert.False(t, m.IndexedDB().IsAvailable())

	err := m.IndexedDB().Set(ctx, "k", 1)
	assert.ErrorIs(t, err, domain.ErrUnavailableBackend)
}

func TestManager_Capabilities(t *testing.T) {
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	local, err := m.Capabilities(domain.BackendDefault)
	require.NoError(t, err)
	assert.True(t, local.Notifies)
	assert.True(t, local.Shared)

	session, err := m.Capabilities(domain.BackendSession)
	require.NoError(t, err)
	assert.False(t, session.Notifies)
	assert.False(t, session.Shared)

	cookie, err := m.Capabilities(domain.BackendCookie)
	require.NoError(t, err)
	assert.True(t, cookie.PerEntryLimit)
	assert.EqualValues(t, 4096, cookie.MaxBytes)

	idb, err := m.Capabilities(domain.BackendIndexedDB)
	require.NoError(t, err)
	assert.True(t, idb.Async)
}

func TestManager_SessionIsPrivate(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)
	a := newManager(t, o, testConfig("app"))
	b := newManager(t, o, testConfig("app"))

	require.NoError(t, a.Session().Set(ctx, "tab", "a"))

	has, err := b.Session().Has(ctx, "tab")
	require.NoError(t, err)
	assert.False(t, has, "session storage must not be shared between contexts")

	require.NoError(t, a.Local().Set(ctx, "shared", "a"))
	has, err = b.Local().Has(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, has, "local storage is shared between contexts")
}

func TestManager_CloseReleasesSession(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, nil)

	m, err := NewManager(o, testConfig("app"), WithContextID("tab-1"))
	require.NoError(t, err)
	require.NoError(t, m.Session().Set(ctx, "k", 1))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	again := newManager(t, o, testConfig("app"), WithContextID("tab-1"))
	has, err := again.Session().Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManager_ContextIDs(t *testing.T) {
	o := newOrigin(t, nil)
	a := newManager(t, o, testConfig("app"))
	b := newManager(t, o, testConfig("app"))

	assert.Len(t, a.ContextID(), 26)
	assert.NotEqual(t, a.ContextID(), b.ContextID())
	assert.Equal(t, "app", a.Namespace())
}

func TestRoute_OverridesStorageOption(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newOrigin(t, nil), testConfig("app"))

	require.NoError(t, m.Session().Set(ctx, "k", 1, InStorage(domain.BackendLocal)))

	has, err := m.Local().Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = m.Session().Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, domain.BackendSession, m.Session().Backend())
	assert.Equal(t, domain.BackendLocal, m.Route(domain.BackendDefault).Backend())
}

func TestNewManager_InvalidConfig(t *testing.T) {
	o := newOrigin(t, nil)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"namespace with separator", func(c *Config) { c.Namespace = "a:b" }},
		{"unknown default", func(c *Config) { c.DefaultStorage = domain.Backend(9) }},
		{"unknown fallback", func(c *Config) { c.Fallback = []domain.Backend{domain.BackendLocal, 9} }},
		{"duplicate fallback", func(c *Config) {
			c.Fallback = []domain.Backend{domain.BackendLocal, domain.BackendLocal}
		}},
		{"short secret", func(c *Config) { withSecret(c, "short") }},
		{"insecure SameSite=None", func(c *Config) { c.Cookie.SameSite = http.SameSiteNoneMode }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("app")
			tt.mutate(cfg)
			_, err := NewManager(o, cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}

	_, err := NewManager(nil, testConfig("app"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewManager_NilConfig(t *testing.T) {
	m := newManager(t, newOrigin(t, nil), nil)
	assert.Equal(t, "webstore", m.Namespace())
}
