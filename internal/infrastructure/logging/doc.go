// Package logging sets up fleetd's log/slog logger from the logging
// section of the config:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file, both
//	  file:
//	    path: "/var/log/graylogic/fleetd.log"
//
// Components receive the *Logger (or a With child) and log key/value
// pairs:
//
//	logger.Info("entity registered", "kind", "supervisor", "id", id)
//
// Bearer tokens and the JWT secret must never be logged.
package logging
