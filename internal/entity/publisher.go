package entity

import "time"

// PublisherRegistration is the gateway module that runs publish jobs handed
// out by a job orchestrator.
type PublisherRegistration struct {
	Common

	LogLevel *LogLevel
	Version  *string

	JobOrchestratorURL *string
	MaxWorkers         *int
	JobCheckInterval   *time.Duration
	HeartbeatInterval  *time.Duration
	Capabilities       []string // set
}

// Kind returns KindPublisher.
func (r *PublisherRegistration) Kind() Kind { return KindPublisher }

func init() {
	type R = *PublisherRegistration
	register(KindPublisher, func() Registration { return &PublisherRegistration{} },
		enumField("LogLevel", scopeState, func(r R) **LogLevel { return &r.LogLevel }).
			synced(string(LogLevelInformation)).backfilled(),
		stringField("JobOrchestratorUrl", scopeState, func(r R) **string { return &r.JobOrchestratorURL }).synced(nil),
		intField("MaxWorkers", scopeState, func(r R) **int { return &r.MaxWorkers }).synced(nil),
		durationField("JobCheckInterval", scopeState, func(r R) **time.Duration { return &r.JobCheckInterval }).synced(nil),
		durationField("HeartbeatInterval", scopeState, func(r R) **time.Duration { return &r.HeartbeatInterval }).synced(nil),
		setField("Capabilities", scopeState, func(r R) *[]string { return &r.Capabilities }).synced(nil),
		stringField("Version", scopeReported, func(r R) **string { return &r.Version }),
	)
}
