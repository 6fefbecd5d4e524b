package main

import (
	"os"

	"github.com/spaghettifunk/magma/engine/core"
	"github.com/spaghettifunk/magma/testbed"
)

func main() {
	core.SetLogLevel(core.DebugLevel)

	app, err := testbed.New()
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := app.Setup(os.Args[1:]); err != nil {
		core.LogFatal(err.Error())
	}

	if err := app.Start(); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}
