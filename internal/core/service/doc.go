// Package service provides the webstore facade and its reactive layers.
//
// This package contains:
//
//   - Manager: typed Set/Get over the four backends, with namespacing,
//     expiry, encryption and fallback chains
//   - CrossTab: per-key change streams fed by other contexts' writes to
//     localStorage
//   - GlobalState: signals and observable variables bound to stored keys
//
// A Manager is one context (one browser tab). Several Managers opened on
// the same storage.Origin share localStorage, cookies and IndexedDB, and
// each keeps a private sessionStorage.
package service
