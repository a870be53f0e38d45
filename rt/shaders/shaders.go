package shaders

import (
	_ "embed"
)

//go:embed random.wgsl
var RandomWGSL string

//go:embed rain_update.wgsl
var rainUpdateWGSL string

//go:embed raindrop.wgsl
var RaindropWGSL string

//go:embed splash.wgsl
var SplashWGSL string

// UpdateWGSL is the compute kernel with the hash helpers prepended.
var UpdateWGSL = RandomWGSL + "\n" + rainUpdateWGSL

const (
	UpdateEntry   = "update_rain"
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
