package tray

import (
	_ "embed"
)

// Embedded PNG icon data
//
//go:embed icon.png
var IconPNG []byte
