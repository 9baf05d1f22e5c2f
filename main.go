/*
This is an example of application that will use the
presenter to put a UI frame on screen
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkpresent/engine/config"
	"github.com/spaghettifunk/vkpresent/engine/core"
	"github.com/spaghettifunk/vkpresent/testbed"
)

const defaultConfigPath = "vkpresent.toml"

func main() {
	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	demo := testbed.NewDemo(cfg)

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		demo.Stop()
	}()

	if err := demo.Initialize(); err != nil {
		_ = demo.Shutdown()
		core.LogFatal("failed to initialize: %+v", err)
	}

	runErr := demo.Run()
	if err := demo.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%+v", runErr)
	}
}
