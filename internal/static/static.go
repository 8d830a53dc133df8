package static

import _ "embed"

// IndexHTML contains the embedded live-updates debug page.
//
//go:embed index.html
var IndexHTML string
