/*
Package log provides structured logging for hostbroker using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON (server mode) or console    │          │
	│  │            (script mode, human-readable)    │          │
	│  │  - Output: stdout or a custom writer        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("lifecycle")                │          │
	│  │  - WithRequestID("req-...")                  │          │
	│  │  - WithMachineID("i-...")                    │          │
	│  │  - WithCorrelationID("corr-...")              │          │
	│  └──────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("lifecycle").With().
		Str("request_id", req.RequestID).
		Logger()
	logger.Info().Msg("request entered Creating")

Every lifecycle-engine transition, provider handler call, and boundary
operation logs through a logger scoped with WithComponent plus whichever
of WithRequestID/WithMachineID/WithCorrelationID applies, so a single
correlation id can be grepped across acquire, poll, and release calls for
one request.

# Output modes

JSONOutput controls the encoding, not the destination: hostbrokerd (the
long-lived server) always sets JSONOutput true so logs are
machine-parseable; hostbroker (the script-mode CLI) defaults to console
output and switches to JSON only when --log-json is passed; it does not
detect whether it runs interactively.
*/
package log
