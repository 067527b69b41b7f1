// Package sourceenv loads configuration from environment variables.
//
// Key normalization: DATABASE_URL → database-url, LOG.LEVEL → log-level
//
// Values are parsed as literals: "8080" → 8080, ":debug" → :debug,
// "true" → true. Anything else, including bare words, stays a string.
//
// Example:
//
//	source := sourceenv.New(sourceenv.Options{Prefix: "APP_"})
//	store := strata.NewStore(strata.WithEnvSource(source))
package sourceenv
