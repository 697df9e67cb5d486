package app

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/config"
	"github.com/epicwp/bulkagent/internal/agent"
	"github.com/epicwp/bulkagent/internal/catalog"
	"github.com/epicwp/bulkagent/internal/constants"
	"github.com/epicwp/bulkagent/internal/db"
	"github.com/epicwp/bulkagent/internal/db/repos"
	"github.com/epicwp/bulkagent/internal/events"
	"github.com/epicwp/bulkagent/internal/llm"
	"github.com/epicwp/bulkagent/internal/services"
	"github.com/epicwp/bulkagent/internal/tools"
)

// Options assembles an Environment from pre-built components
type Options struct {
	DB            *gorm.DB
	Store         catalog.Store
	LLM           llm.Client
	ProcessLogger agent.ProcessLogger
}

// Environment wires the full pipeline behind the API and CLI: repositories,
// tool registry, conversation agent, job processor and rollback engine, all
// sharing one event bus.
type Environment struct {
	DB        *gorm.DB
	Bus       *events.Bus
	Registry  *tools.Registry
	Runs      *services.Run
	Processor *services.Processor
	Engine    *services.RollbackEngine
}

// NewEnvironment wires the components together. The rollback engine is
// subscribed to the bus before anything can publish on it.
func NewEnvironment(opts Options) *Environment {
	bus := events.NewBus()
	registry := tools.NewRegistry(bus)
	tools.RegisterProductTools(registry, opts.Store)

	runRepo := repos.NewRunRepository(opts.DB)
	jobRepo := repos.NewJobRepository(opts.DB)
	rollbackRepo := repos.NewRollbackRepository(opts.DB)

	var agentOpts []agent.Option
	if opts.ProcessLogger != nil {
		agentOpts = append(agentOpts, agent.WithProcessLogger(opts.ProcessLogger))
	}
	conversationAgent := agent.New(opts.LLM, registry, agentOpts...)

	engine := services.NewRollbackEngine(registry, jobRepo, rollbackRepo)
	engine.Register(bus)

	return &Environment{
		DB:        opts.DB,
		Bus:       bus,
		Registry:  registry,
		Runs:      services.NewRunService(runRepo, jobRepo, rollbackRepo),
		Processor: services.NewProcessor(conversationAgent, jobRepo, bus),
		Engine:    engine,
	}
}

// NewEnvironmentFromEnv builds an Environment from environment variables,
// connecting to the configured database, catalog backend and LLM endpoint.
func NewEnvironmentFromEnv(plog agent.ProcessLogger) (*Environment, error) {
	database, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, db.DefaultHost),
		User:     config.GetEnv(constants.EnvDBUser, db.DefaultUser),
		Password: config.GetEnv(constants.EnvDBPassword, db.DefaultPassword),
		DBName:   config.GetEnv(constants.EnvDBName, db.DefaultDBName),
		Port:     db.DefaultPort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := catalog.NewRESTStore(catalog.RESTOptions{
		BaseURL: os.Getenv(constants.EnvCatalogBaseURL),
		Key:     os.Getenv(constants.EnvCatalogKey),
		Secret:  os.Getenv(constants.EnvCatalogSecret),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:  os.Getenv(constants.EnvOpenAIAPIKey),
		BaseURL: os.Getenv(constants.EnvOpenAIBaseURL),
		Model:   os.Getenv(constants.EnvOpenAIModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	return NewEnvironment(Options{
		DB:            database,
		Store:         store,
		LLM:           client,
		ProcessLogger: plog,
	}), nil
}
