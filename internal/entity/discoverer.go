package entity

import "time"

// DiscovererRegistration is the gateway module that scans the network for
// applications.
type DiscovererRegistration struct {
	Common

	LogLevel  *LogLevel
	Version   *string
	Discovery *DiscoveryMode

	AddressRangesToScan  *string
	NetworkProbeTimeout  *time.Duration
	MaxNetworkProbes     *int
	PortRangesToScan     *string
	PortProbeTimeout     *time.Duration
	MaxPortProbes        *int
	MinPortProbesPercent *int
	IdleTimeBetweenScans *time.Duration
	DiscoveryURLs        []string // ordered
	Locales              []string // ordered
	DiscoveryCallbacks   []string // ordered
}

// Kind returns KindDiscoverer.
func (r *DiscovererRegistration) Kind() Kind { return KindDiscoverer }

func init() {
	type R = *DiscovererRegistration
	register(KindDiscoverer, func() Registration { return &DiscovererRegistration{} },
		enumField("LogLevel", scopeState, func(r R) **LogLevel { return &r.LogLevel }).
			synced(string(LogLevelInformation)).backfilled(),
		enumField("Discovery", scopeState, func(r R) **DiscoveryMode { return &r.Discovery }).
			synced(string(DiscoveryModeOff)),
		stringField("AddressRangesToScan", scopeState, func(r R) **string { return &r.AddressRangesToScan }).synced(nil),
		durationField("NetworkProbeTimeout", scopeState, func(r R) **time.Duration { return &r.NetworkProbeTimeout }).synced(nil),
		intField("MaxNetworkProbes", scopeState, func(r R) **int { return &r.MaxNetworkProbes }).synced(nil),
		stringField("PortRangesToScan", scopeState, func(r R) **string { return &r.PortRangesToScan }).synced(nil),
		durationField("PortProbeTimeout", scopeState, func(r R) **time.Duration { return &r.PortProbeTimeout }).synced(nil),
		intField("MaxPortProbes", scopeState, func(r R) **int { return &r.MaxPortProbes }).synced(nil),
		intField("MinPortProbesPercent", scopeState, func(r R) **int { return &r.MinPortProbesPercent }).synced(nil),
		durationField("IdleTimeBetweenScans", scopeState, func(r R) **time.Duration { return &r.IdleTimeBetweenScans }).synced(nil),
		listField("DiscoveryUrls", scopeState, func(r R) *[]string { return &r.DiscoveryURLs }).synced(nil),
		listField("Locales", scopeState, func(r R) *[]string { return &r.Locales }).synced(nil),
		listField("DiscoveryCallbacks", scopeState, func(r R) *[]string { return &r.DiscoveryCallbacks }),
		stringField("Version", scopeReported, func(r R) **string { return &r.Version }),
	)
}
