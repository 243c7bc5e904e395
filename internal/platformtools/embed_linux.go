package platformtools

import "embed"

//go:embed archives/linux
var archives embed.FS
