package platformtools

import "embed"

//go:embed archives/windows
var archives embed.FS
