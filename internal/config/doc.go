// Package config loads the process configuration and parses the per-invocation
// command-line options.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values (lowest priority)
//
// The YAML file is the path in TABKIT_CONFIG, or the first of tabkit.yaml and
// configs/tabkit.yaml found in the working directory.
//
// # Environment Variables
//
// All environment variables follow the pattern TABKIT_<SECTION>_<FIELD>:
//
//	TABKIT_LOGGING_LEVEL=debug
//	TABKIT_LOGGING_FORMAT=text
//	TABKIT_TRACING_ENABLED=true
//	TABKIT_METRICS_TEXTFILE_PATH=/var/lib/node_exporter/tabkit.prom
//	TABKIT_ANALYSIS_STRICT_VARIANCE=true
//
// # Options
//
// Options is the explicit value that carries one invocation's command line
// through the pipeline. It is built by ParseArgs and checked by Validate;
// nothing in the module reads it from package state.
//
//	opts, err := config.ParseArgs(os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	if err := opts.Validate(); err != nil {
//	    return err
//	}
package config
