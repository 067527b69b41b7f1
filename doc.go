// Package strata resolves layered configuration into a single key-value map.
//
// Quick Start:
//
//	store := strata.NewStore(
//	    strata.WithResources(sourcefile.Dir("resources")),
//	    strata.WithEnvSource(sourceenv.New(sourceenv.Options{})),
//	    strata.WithPropertySource(sourceprops.System),
//	)
//
//	port := store.Get("port", value.Int(8080))
//
// Precedence, lowest to highest: conf/base, conf/default,
// conf/defaults/{env}, conf/{env}, environment variables, properties.
// The environment is chosen by CONF_ENV (or the conf.env property).
//
// Values can refer to other keys with #conf/ref; see package literal.
// Package conf offers the same API over a process-wide store.
package strata
