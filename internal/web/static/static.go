// Package static embeds the stylesheet and scripts served under /static/.
package static

import "embed"

//go:embed dist
var Assets embed.FS
