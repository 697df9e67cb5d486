package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/epicwp/bulkagent/config"
	"github.com/epicwp/bulkagent/internal/agent"
	"github.com/epicwp/bulkagent/internal/api/v1/handlers"
	"github.com/epicwp/bulkagent/internal/app"
	"github.com/epicwp/bulkagent/internal/constants"
	"github.com/epicwp/bulkagent/internal/logger"
)

const defaultListenAddress = ":8080"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger.InitializeAndConfigure()

	env, err := app.NewEnvironmentFromEnv(agent.BasicLogger{})
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	handler := handlers.NewRunHandler(env.Runs, env.Processor, env.Engine)
	server := app.NewApp(handler)

	address := config.GetEnv(constants.EnvServerAddress, defaultListenAddress)
	log.Fatal(server.Listen(address))
}
