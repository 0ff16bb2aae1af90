package entity

// SupervisorRegistration is the gateway module that manages endpoint
// connections.
type SupervisorRegistration struct {
	Common

	LogLevel *LogLevel
	Version  *string
}

// Kind returns KindSupervisor.
func (r *SupervisorRegistration) Kind() Kind { return KindSupervisor }

func init() {
	type R = *SupervisorRegistration
	register(KindSupervisor, func() Registration { return &SupervisorRegistration{} },
		enumField("LogLevel", scopeState, func(r R) **LogLevel { return &r.LogLevel }).
			synced(string(LogLevelInformation)).backfilled(),
		stringField("Version", scopeReported, func(r R) **string { return &r.Version }),
	)
}
