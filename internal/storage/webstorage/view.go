package webstorage

import "github.com/yndnr/webstore-go/pkg/observe"

// View is one context's handle on an Area.
type View struct {
	area *Area
	id   string
}

// ID returns the identifier writes are attributed to.
func (v *View) ID() string {
	return v.id
}

// Area returns the underlying area.
func (v *View) Area() *Area {
	return v.area
}

// Get returns the value of key.
func (v *View) Get(key string) (string, bool, error) {
	return v.area.get(key)
}

// Set stores value under key. It fails with QuotaExceeded, leaving any
// previous value in place, when the write would exceed the quota.
func (v *View) Set(key, value string) error {
	return v.area.set(v.id, key, value)
}

// Remove deletes key. Removing an absent key is not an error.
func (v *View) Remove(key string) error {
	return v.area.remove(v.id, key)
}

// Clear deletes every key of the area.
func (v *View) Clear() error {
	return v.area.clear(v.id)
}

// Keys returns all keys, sorted.
func (v *View) Keys() ([]string, error) {
	return v.area.keys()
}

// Listen registers fn for changes made by any other View, including other
// processes sharing the file.
func (v *View) Listen(fn func(Event)) *observe.Subscription {
	id := v.id
	return v.area.events.topic.Subscribe(func(e Event) {
		if e.Source == id {
			return
		}
		fn(e)
	})
}
