// Package config loads the application configuration.
//
// Settings come from, in increasing priority: the built-in defaults, a YAML
// or TOML file, and GROUNDWORK_* environment variables. A .env file can be
// loaded into the environment first with LoadDotEnv. The OpenAI API key is
// never part of the config; the provider reads OPENAI_API_KEY itself.
//
// Example groundwork.yaml:
//
//	data_dir: ./data
//	db_path: ./groundwork_db
//	collection: growing_vegetables
//	chunking:
//	  size: 300
//	  overlap: 100
//	chat:
//	  model: gpt-4o
package config
