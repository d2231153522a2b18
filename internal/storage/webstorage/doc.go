// Package webstorage implements synchronous string key-value areas with a
// byte quota and change notifications.
//
// An Area is shared by any number of Views. Every mutation made through a
// View is announced to the listeners of all other Views of the same Area,
// never to the writer itself. Events are delivered in mutation order on a
// single dispatch goroutine.
//
// An Area created with a directory persists its contents to
// <dir>/<name>.local.json. Each process that opens the same file watches it
// with fsnotify, reloads changes written by other processes, and announces
// them to its local Views as if another View had written them.
package webstorage
