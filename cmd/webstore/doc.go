// Command webstore reads and writes namespaced entries in the
// localStorage, sessionStorage, cookie and IndexedDB backends of an
// origin, and streams changes made by other processes sharing it.
//
// Usage:
//
//	webstore [global flags] command [flags] [args]
//
// Run "webstore help" for the command list.
package main
