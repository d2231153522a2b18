// Package buildinfo reports the webstore build.
//
// Values injected with ldflags win; anything left at its default is read
// from the module build info the Go toolchain embeds:
//
//	go build -ldflags "-X github.com/yndnr/webstore-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
