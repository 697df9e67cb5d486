// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvOpenAIAPIKey is the environment variable containing the LLM endpoint API key
	EnvOpenAIAPIKey = "BULKAGENT_OPENAI_API_KEY"

	// EnvOpenAIBaseURL is the environment variable overriding the LLM endpoint base URL
	EnvOpenAIBaseURL = "BULKAGENT_OPENAI_BASE_URL"

	// EnvOpenAIModel is the environment variable selecting the chat model
	EnvOpenAIModel = "BULKAGENT_OPENAI_MODEL"

	// EnvCatalogBaseURL is the environment variable containing the product catalog API base URL
	EnvCatalogBaseURL = "BULKAGENT_CATALOG_URL"

	// EnvCatalogKey is the environment variable containing the product catalog API key
	EnvCatalogKey = "BULKAGENT_CATALOG_KEY"

	// EnvCatalogSecret is the environment variable containing the product catalog API secret
	EnvCatalogSecret = "BULKAGENT_CATALOG_SECRET"

	// EnvServerAddress is the environment variable containing the API listen address
	EnvServerAddress = "BULKAGENT_SERVER_ADDRESS"

	// EnvDBHost is the environment variable containing the database host
	EnvDBHost = "BULKAGENT_DB_HOST"

	// EnvDBName is the environment variable containing the database name
	EnvDBName = "BULKAGENT_DB_NAME"

	// EnvDBUser is the environment variable containing the database user
	EnvDBUser = "BULKAGENT_DB_USER"

	// EnvDBPassword is the environment variable containing the database password
	EnvDBPassword = "BULKAGENT_DB_PASSWORD"
)
