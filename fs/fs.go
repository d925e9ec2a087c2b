// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

//go:embed migrations templates templates/email/_* seed
var FS embed.FS
