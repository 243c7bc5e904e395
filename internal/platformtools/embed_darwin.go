package platformtools

import "embed"

//go:embed archives/darwin
var archives embed.FS
