// Package observe provides explicit push-based subscription registries.
//
// A Topic keeps a callback list; Publish delivers a value to every active
// subscriber in subscription order, on the caller's goroutine. There is no
// background dispatch loop. Each Subscribe returns a Subscription whose Stop
// method is the disposer.
//
// Subscription lifecycle:
//
//	Created -> Active -> Stopped
//
// Stopped is terminal and Stop is idempotent. Delivery to a single
// subscription is serialized, so a callback never runs concurrently with
// itself.
package observe
