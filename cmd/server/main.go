package main

import (
	"github.com/strategraph/backend/internal/server"
	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
