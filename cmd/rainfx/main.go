package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/gekko3d/rainfx"
	"github.com/gekko3d/rainfx/rt/app"
	"github.com/gekko3d/rainfx/rt/atlas"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type options struct {
	config string
	drops  int
	seed   int64
	debug  bool
	atlas  string
	width  int
	height int
}

func parseFlags(args []string) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("rainfx", flag.ContinueOnError)
	fs.StringVar(&o.config, "config", "rainfx.yaml", "YAML config file (missing file means defaults)")
	fs.IntVar(&o.drops, "drops", -1, "number of raindrops, overrides the config file")
	fs.Int64Var(&o.seed, "seed", 0, "initialization seed, overrides the config file")
	fs.BoolVar(&o.debug, "debug", false, "log every drop after each frame")
	fs.StringVar(&o.atlas, "atlas", "", "splash sprite sheet (PNG), overrides the config file")
	fs.IntVar(&o.width, "width", 1200, "window width")
	fs.IntVar(&o.height, "height", 800, "window height")
	err := fs.Parse(args)
	return o, fs, err
}

// loadSettings merges the config file with the flags that were set explicitly.
func loadSettings(o options, fs *flag.FlagSet) (rainfx.Config, error) {
	cfg, err := rainfx.LoadConfig(o.config)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "drops":
			cfg.DropCount = o.drops
		case "seed":
			cfg.Seed = o.seed
		case "debug":
			cfg.Debug = o.debug
		case "atlas":
			cfg.AtlasPath = o.atlas
		}
	})
	return cfg, cfg.Validate()
}

func loadAtlas(cfg rainfx.Config, logger rainfx.Logger) *image.RGBA {
	if cfg.AtlasPath != "" {
		img, err := atlas.Load(cfg.AtlasPath, cfg.Atlas, atlas.DefaultCell)
		if err == nil {
			return img
		}
		logger.Warnf("%v, using procedural splashes", err)
	}
	return atlas.Procedural(cfg.Atlas, atlas.DefaultCell)
}

func main() {
	o, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	cfg, err := loadSettings(o, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := rainfx.NewDefaultLogger("rainfx", cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(o.width, o.height, "Rain", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, loadAtlas(cfg, logger.With("atlas")), logger)
	if err := application.Init(); err != nil {
		logger.Errorf("init: %v", err)
		os.Exit(1)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleKey(key, action)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Render(application.Update())
	}
}
