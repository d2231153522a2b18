// Package output renders webstore CLI results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables built from structs, slices and maps
//   - json.go: indented JSON
//   - yaml.go: YAML via gopkg.in/yaml.v3
//
// Table columns come from json tags; fields tagged `table:"wide"` only
// show with --wide and `table:"-"` never shows.
package output
