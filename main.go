/*
Glacier renders the stock scene: a textured model spinning in front of a
camera driven with the arrow keys. Escape or closing the window exits.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/glacier/engine"
	"github.com/spaghettifunk/glacier/engine/assets"
	"github.com/spaghettifunk/glacier/engine/config"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/scene"
	"github.com/spaghettifunk/glacier/engine/systems"
	"github.com/spaghettifunk/glacier/testbed"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "glacier: %s\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !core.SetLogLevel(cfg.Log.Level) {
		core.LogWarn("unknown log level %q, keeping the default", cfg.Log.Level)
	}

	am, err := assets.NewAssetManager(cfg.Assets.Dir, assets.ModelOptions{
		CacheDir:    cfg.Model.CacheDir,
		Compress:    true,
		MergeConfig: cfg.Model.MergeConfig,
	})
	if err != nil {
		return err
	}
	defer am.Close()

	js, err := systems.NewJobSystem(cfg.Assets.Workers, 0)
	if err != nil {
		return err
	}
	bearer, err := scene.LoadStockResourceBearer(am, js, scene.DefaultStockAssets)
	js.Shutdown()
	if err != nil {
		return err
	}

	e, err := engine.New[testbed.AssetChanged](cfg)
	if err != nil {
		return err
	}
	proxy := e.NewMessageProxy()

	if cfg.Assets.Watch {
		err := am.Watch(func(info assets.AssetInfo, removed bool) {
			if removed {
				core.LogWarn("asset %s removed", info.Path)
				return
			}
			if err := proxy.SendCustom(testbed.AssetChanged(info.Path)); err != nil {
				core.LogWarn("dropped change of %s: %s", info.Path, err)
			}
		})
		if err != nil {
			return err
		}
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		forwardSignals(sigCh, done, proxy.RequestClose)
	}()
	defer func() {
		signal.Stop(sigCh)
		close(done)
		<-exited
	}()

	return e.Run(testbed.NewTestApp(), scene.NewStockScene(bearer))
}

// forwardSignals turns the first signal into a close request. It returns
// after that or once done is closed.
func forwardSignals(sigs <-chan os.Signal, done <-chan struct{}, requestClose func() error) {
	select {
	case <-sigs:
		if err := requestClose(); err != nil {
			core.LogWarn("failed to request close: %s", err)
		}
	case <-done:
	}
}
