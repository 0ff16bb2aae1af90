package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationContext records who performed an operation and when.
type OperationContext struct {
	AuthorityID string    `json:"authority_id,omitempty"`
	Time        time.Time `json:"time"`
}

func newOperationContext(authority *string, t *time.Time) *OperationContext {
	if authority == nil && t == nil {
		return nil
	}
	oc := &OperationContext{AuthorityID: deref(authority)}
	if t != nil {
		oc.Time = *t
	}
	return oc
}

func (oc *OperationContext) split() (*string, *time.Time) {
	if oc == nil {
		return nil, nil
	}
	var authority *string
	if oc.AuthorityID != "" {
		authority = Ptr(oc.AuthorityID)
	}
	var t *time.Time
	if !oc.Time.IsZero() {
		t = Ptr(oc.Time)
	}
	return authority, t
}

// Duration is a time.Duration that encodes to JSON as a string ("30s").
// Numbers are accepted on input as milliseconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func toDuration(d *time.Duration) *Duration {
	if d == nil {
		return nil
	}
	v := Duration(*d)
	return &v
}

func fromDuration(d *Duration) *time.Duration {
	if d == nil {
		return nil
	}
	v := time.Duration(*d)
	return &v
}

// syncState returns the OutOfSync flag for a service model: nil when the
// registration has no desired view to drift from.
func syncState(r Registration) *bool {
	if r.Desired() == nil {
		return nil
	}
	return Ptr(!r.IsInSync())
}

// ApplicationInfo is the service model of an application.
type ApplicationInfo struct {
	ApplicationID       string            `json:"application_id,omitempty"`
	ApplicationURI      string            `json:"application_uri"`
	ApplicationType     ApplicationType   `json:"application_type"`
	ApplicationName     string            `json:"application_name,omitempty"`
	Locale              string            `json:"locale,omitempty"`
	LocalizedNames      map[string]string `json:"localized_names,omitempty"`
	ProductURI          string            `json:"product_uri,omitempty"`
	SiteID              string            `json:"site_id,omitempty"`
	DiscovererID        string            `json:"discoverer_id,omitempty"`
	GatewayServerURI    string            `json:"gateway_server_uri,omitempty"`
	DiscoveryProfileURI string            `json:"discovery_profile_uri,omitempty"`
	Capabilities        []string          `json:"capabilities,omitempty"`
	DiscoveryURLs       []string          `json:"discovery_urls,omitempty"`
	HostAddresses       []string          `json:"host_addresses,omitempty"`
	Certificate         []byte            `json:"certificate,omitempty"`
	Thumbprint          string            `json:"thumbprint,omitempty"`
	NotSeenSince        *time.Time        `json:"not_seen_since,omitempty"`
	Created             *OperationContext `json:"created,omitempty"`
	Updated             *OperationContext `json:"updated,omitempty"`
	ConcurrencyToken    string            `json:"etag,omitempty"`
}

// ToApplicationInfo converts an application to its service model.
func ToApplicationInfo(r *ApplicationRegistration) *ApplicationInfo {
	return &ApplicationInfo{
		ApplicationID:       r.DeviceID,
		ApplicationURI:      deref(r.ApplicationURI),
		ApplicationType:     deref(r.ApplicationType),
		ApplicationName:     r.DisplayName(),
		Locale:              deref(r.Locale),
		LocalizedNames:      r.LocalizedNames,
		ProductURI:          deref(r.ProductURI),
		SiteID:              deref(r.SiteID),
		DiscovererID:        deref(r.DiscovererID),
		GatewayServerURI:    deref(r.GatewayServerURI),
		DiscoveryProfileURI: deref(r.DiscoveryProfileURI),
		Capabilities:        r.Capabilities,
		DiscoveryURLs:       r.DiscoveryURLs,
		HostAddresses:       r.HostAddresses,
		Certificate:         r.Certificate,
		Thumbprint:          r.Thumbprint(),
		NotSeenSince:        r.NotSeenSince,
		Created:             newOperationContext(r.CreateAuthorityID, r.CreateTime),
		Updated:             newOperationContext(r.UpdateAuthorityID, r.UpdateTime),
		ConcurrencyToken:    r.ConcurrencyToken,
	}
}

// FromApplicationInfo converts a service model to an application. Empty
// strings become unset fields so the result can serve as a sparse update.
func FromApplicationInfo(m *ApplicationInfo) *ApplicationRegistration {
	r := &ApplicationRegistration{
		ApplicationURI:      nonEmpty(m.ApplicationURI),
		ApplicationName:     nonEmpty(m.ApplicationName),
		Locale:              nonEmpty(m.Locale),
		LocalizedNames:      m.LocalizedNames,
		ProductURI:          nonEmpty(m.ProductURI),
		DiscovererID:        nonEmpty(m.DiscovererID),
		GatewayServerURI:    nonEmpty(m.GatewayServerURI),
		DiscoveryProfileURI: nonEmpty(m.DiscoveryProfileURI),
		Capabilities:        m.Capabilities,
		DiscoveryURLs:       m.DiscoveryURLs,
		HostAddresses:       m.HostAddresses,
		Certificate:         m.Certificate,
	}
	r.DeviceID = m.ApplicationID
	r.ConcurrencyToken = m.ConcurrencyToken
	r.SiteID = nonEmpty(m.SiteID)
	if m.ApplicationType != "" {
		r.ApplicationType = Ptr(m.ApplicationType)
	}
	r.CreateAuthorityID, r.CreateTime = m.Created.split()
	r.UpdateAuthorityID, r.UpdateTime = m.Updated.split()
	return r
}

// EndpointModel is the connection part of an endpoint.
type EndpointModel struct {
	URL             string       `json:"url"`
	AlternativeURLs []string     `json:"alternative_urls,omitempty"`
	SecurityMode    SecurityMode `json:"security_mode,omitempty"`
	SecurityPolicy  string       `json:"security_policy,omitempty"`
	Certificate     []byte       `json:"certificate,omitempty"`
}

// EndpointInfo is the service model of an endpoint.
type EndpointInfo struct {
	ID                    string                 `json:"id,omitempty"`
	ApplicationID         string                 `json:"application_id"`
	SiteID                string                 `json:"site_id,omitempty"`
	SupervisorID          string                 `json:"supervisor_id,omitempty"`
	DiscovererID          string                 `json:"discoverer_id,omitempty"`
	Endpoint              EndpointModel          `json:"endpoint"`
	SecurityLevel         *int                   `json:"security_level,omitempty"`
	AuthenticationMethods []AuthenticationMethod `json:"authentication_methods,omitempty"`
	Thumbprint            string                 `json:"thumbprint,omitempty"`
	ActivationState       ActivationState        `json:"activation_state,omitempty"`
	EndpointState         EndpointState          `json:"endpoint_state,omitempty"`
	NotSeenSince          *time.Time             `json:"not_seen_since,omitempty"`
	OutOfSync             *bool                  `json:"out_of_sync,omitempty"`
	ConcurrencyToken      string                 `json:"etag,omitempty"`
}

// ToEndpointInfo converts an endpoint to its service model.
func ToEndpointInfo(r *EndpointRegistration) *EndpointInfo {
	return &EndpointInfo{
		ID:            r.DeviceID,
		ApplicationID: deref(r.ApplicationID),
		SiteID:        deref(r.SiteID),
		SupervisorID:  deref(r.SupervisorID),
		DiscovererID:  deref(r.DiscovererID),
		Endpoint: EndpointModel{
			URL:             deref(r.EndpointURL),
			AlternativeURLs: r.AlternativeURLs,
			SecurityMode:    deref(r.SecurityMode),
			SecurityPolicy:  deref(r.SecurityPolicy),
			Certificate:     r.Certificate,
		},
		SecurityLevel:         r.SecurityLevel,
		AuthenticationMethods: r.AuthenticationMethods,
		Thumbprint:            r.Thumbprint(),
		ActivationState:       deref(r.ActivationState),
		EndpointState:         deref(r.State),
		NotSeenSince:          r.NotSeenSince,
		OutOfSync:             syncState(r),
		ConcurrencyToken:      r.ConcurrencyToken,
	}
}

// FromEndpointInfo converts a service model to an endpoint.
func FromEndpointInfo(m *EndpointInfo) *EndpointRegistration {
	r := &EndpointRegistration{
		ApplicationID:         nonEmpty(m.ApplicationID),
		SupervisorID:          nonEmpty(m.SupervisorID),
		DiscovererID:          nonEmpty(m.DiscovererID),
		SecurityLevel:         m.SecurityLevel,
		AuthenticationMethods: m.AuthenticationMethods,
		EndpointURL:           nonEmpty(m.Endpoint.URL),
		AlternativeURLs:       m.Endpoint.AlternativeURLs,
		SecurityPolicy:        nonEmpty(m.Endpoint.SecurityPolicy),
		Certificate:           m.Endpoint.Certificate,
	}
	r.DeviceID = m.ID
	r.ConcurrencyToken = m.ConcurrencyToken
	r.SiteID = nonEmpty(m.SiteID)
	if m.Endpoint.SecurityMode != "" {
		r.SecurityMode = Ptr(m.Endpoint.SecurityMode)
	}
	if m.ActivationState != "" {
		r.ActivationState = Ptr(m.ActivationState)
	}
	return r
}

// GatewayInfo is the service model of a gateway.
type GatewayInfo struct {
	ID               string     `json:"id"`
	SiteID           string     `json:"site_id,omitempty"`
	Connected        *bool      `json:"connected,omitempty"`
	Version          string     `json:"version,omitempty"`
	NotSeenSince     *time.Time `json:"not_seen_since,omitempty"`
	ConcurrencyToken string     `json:"etag,omitempty"`
}

// ToGatewayInfo converts a gateway to its service model.
func ToGatewayInfo(r *GatewayRegistration) *GatewayInfo {
	return &GatewayInfo{
		ID:               r.ID(),
		SiteID:           deref(r.SiteID),
		Connected:        Ptr(r.Connected),
		Version:          deref(r.Version),
		NotSeenSince:     r.NotSeenSince,
		ConcurrencyToken: r.ConcurrencyToken,
	}
}

// FromGatewayInfo converts a service model to a gateway.
func FromGatewayInfo(m *GatewayInfo) *GatewayRegistration {
	r := &GatewayRegistration{}
	setAgentIdentity(&r.Common, m.ID, m.SiteID, m.ConcurrencyToken)
	return r
}

// SupervisorInfo is the service model of a supervisor.
type SupervisorInfo struct {
	ID               string     `json:"id"`
	SiteID           string     `json:"site_id,omitempty"`
	LogLevel         LogLevel   `json:"log_level,omitempty"`
	Version          string     `json:"version,omitempty"`
	Connected        *bool      `json:"connected,omitempty"`
	OutOfSync        *bool      `json:"out_of_sync,omitempty"`
	NotSeenSince     *time.Time `json:"not_seen_since,omitempty"`
	ConcurrencyToken string     `json:"etag,omitempty"`
}

// ToSupervisorInfo converts a supervisor to its service model.
func ToSupervisorInfo(r *SupervisorRegistration) *SupervisorInfo {
	return &SupervisorInfo{
		ID:               r.ID(),
		SiteID:           deref(r.SiteID),
		LogLevel:         deref(r.LogLevel),
		Version:          deref(r.Version),
		Connected:        Ptr(r.Connected),
		OutOfSync:        syncState(r),
		NotSeenSince:     r.NotSeenSince,
		ConcurrencyToken: r.ConcurrencyToken,
	}
}

// FromSupervisorInfo converts a service model to a supervisor.
func FromSupervisorInfo(m *SupervisorInfo) *SupervisorRegistration {
	r := &SupervisorRegistration{}
	setAgentIdentity(&r.Common, m.ID, m.SiteID, m.ConcurrencyToken)
	if m.LogLevel != "" {
		r.LogLevel = Ptr(m.LogLevel)
	}
	return r
}

// DiscoveryConfig is a discoverer's scan configuration.
type DiscoveryConfig struct {
	AddressRangesToScan  string    `json:"address_ranges_to_scan,omitempty"`
	NetworkProbeTimeout  *Duration `json:"network_probe_timeout,omitempty"`
	MaxNetworkProbes     *int      `json:"max_network_probes,omitempty"`
	PortRangesToScan     string    `json:"port_ranges_to_scan,omitempty"`
	PortProbeTimeout     *Duration `json:"port_probe_timeout,omitempty"`
	MaxPortProbes        *int      `json:"max_port_probes,omitempty"`
	MinPortProbesPercent *int      `json:"min_port_probes_percent,omitempty"`
	IdleTimeBetweenScans *Duration `json:"idle_time_between_scans,omitempty"`
	DiscoveryURLs        []string  `json:"discovery_urls,omitempty"`
	Locales              []string  `json:"locales,omitempty"`
	Callbacks            []string  `json:"callbacks,omitempty"`
}

// DiscovererInfo is the service model of a discoverer. Discovery and
// DiscoveryConfig describe what the discoverer runs with; RequestedMode
// and RequestedConfig what the operator asked for.
type DiscovererInfo struct {
	ID               string           `json:"id"`
	SiteID           string           `json:"site_id,omitempty"`
	LogLevel         LogLevel         `json:"log_level,omitempty"`
	Version          string           `json:"version,omitempty"`
	Discovery        DiscoveryMode    `json:"discovery,omitempty"`
	DiscoveryConfig  *DiscoveryConfig `json:"discovery_config,omitempty"`
	RequestedMode    *DiscoveryMode   `json:"requested_mode,omitempty"`
	RequestedConfig  *DiscoveryConfig `json:"requested_config,omitempty"`
	Connected        *bool            `json:"connected,omitempty"`
	OutOfSync        *bool            `json:"out_of_sync,omitempty"`
	NotSeenSince     *time.Time       `json:"not_seen_since,omitempty"`
	ConcurrencyToken string           `json:"etag,omitempty"`
}

// ToDiscovererInfo converts a discoverer to its service model.
func ToDiscovererInfo(r *DiscovererRegistration) *DiscovererInfo {
	m := &DiscovererInfo{
		ID:               r.ID(),
		SiteID:           deref(r.SiteID),
		LogLevel:         deref(r.LogLevel),
		Version:          deref(r.Version),
		Discovery:        deref(r.Discovery),
		DiscoveryConfig:  discoveryConfigOf(r),
		Connected:        Ptr(r.Connected),
		OutOfSync:        syncState(r),
		NotSeenSince:     r.NotSeenSince,
		ConcurrencyToken: r.ConcurrencyToken,
	}
	if d, ok := r.Desired().(*DiscovererRegistration); ok {
		m.RequestedMode = clonePtr(d.Discovery)
		m.RequestedConfig = discoveryConfigOf(d)
	}
	return m
}

// FromDiscovererInfo converts a service model to a discoverer. The
// requested mode and configuration win over the running ones since they
// express intent.
func FromDiscovererInfo(m *DiscovererInfo) *DiscovererRegistration {
	r := &DiscovererRegistration{}
	setAgentIdentity(&r.Common, m.ID, m.SiteID, m.ConcurrencyToken)
	if m.LogLevel != "" {
		r.LogLevel = Ptr(m.LogLevel)
	}

	switch {
	case m.RequestedMode != nil:
		r.Discovery = clonePtr(m.RequestedMode)
	case m.Discovery != "":
		r.Discovery = Ptr(m.Discovery)
	}

	cfg := m.RequestedConfig
	if cfg == nil {
		cfg = m.DiscoveryConfig
	}
	if cfg != nil {
		r.AddressRangesToScan = nonEmpty(cfg.AddressRangesToScan)
		r.NetworkProbeTimeout = fromDuration(cfg.NetworkProbeTimeout)
		r.MaxNetworkProbes = cfg.MaxNetworkProbes
		r.PortRangesToScan = nonEmpty(cfg.PortRangesToScan)
		r.PortProbeTimeout = fromDuration(cfg.PortProbeTimeout)
		r.MaxPortProbes = cfg.MaxPortProbes
		r.MinPortProbesPercent = cfg.MinPortProbesPercent
		r.IdleTimeBetweenScans = fromDuration(cfg.IdleTimeBetweenScans)
		r.DiscoveryURLs = cfg.DiscoveryURLs
		r.Locales = cfg.Locales
		r.DiscoveryCallbacks = cfg.Callbacks
	}
	return r
}

func discoveryConfigOf(r *DiscovererRegistration) *DiscoveryConfig {
	cfg := &DiscoveryConfig{
		AddressRangesToScan:  deref(r.AddressRangesToScan),
		NetworkProbeTimeout:  toDuration(r.NetworkProbeTimeout),
		MaxNetworkProbes:     r.MaxNetworkProbes,
		PortRangesToScan:     deref(r.PortRangesToScan),
		PortProbeTimeout:     toDuration(r.PortProbeTimeout),
		MaxPortProbes:        r.MaxPortProbes,
		MinPortProbesPercent: r.MinPortProbesPercent,
		IdleTimeBetweenScans: toDuration(r.IdleTimeBetweenScans),
		DiscoveryURLs:        r.DiscoveryURLs,
		Locales:              r.Locales,
		Callbacks:            r.DiscoveryCallbacks,
	}
	if cfg.AddressRangesToScan == "" && cfg.NetworkProbeTimeout == nil && cfg.MaxNetworkProbes == nil &&
		cfg.PortRangesToScan == "" && cfg.PortProbeTimeout == nil && cfg.MaxPortProbes == nil &&
		cfg.MinPortProbesPercent == nil && cfg.IdleTimeBetweenScans == nil &&
		cfg.DiscoveryURLs == nil && cfg.Locales == nil && cfg.Callbacks == nil {
		return nil
	}
	return cfg
}

// PublisherConfig is a publisher's job-processing configuration.
type PublisherConfig struct {
	Capabilities       []string  `json:"capabilities,omitempty"`
	JobOrchestratorURL string    `json:"job_orchestrator_url,omitempty"`
	MaxWorkers         *int      `json:"max_workers,omitempty"`
	JobCheckInterval   *Duration `json:"job_check_interval,omitempty"`
	HeartbeatInterval  *Duration `json:"heartbeat_interval,omitempty"`
}

// PublisherInfo is the service model of a publisher.
type PublisherInfo struct {
	ID               string           `json:"id"`
	SiteID           string           `json:"site_id,omitempty"`
	LogLevel         LogLevel         `json:"log_level,omitempty"`
	Version          string           `json:"version,omitempty"`
	Configuration    *PublisherConfig `json:"configuration,omitempty"`
	Connected        *bool            `json:"connected,omitempty"`
	OutOfSync        *bool            `json:"out_of_sync,omitempty"`
	NotSeenSince     *time.Time       `json:"not_seen_since,omitempty"`
	ConcurrencyToken string           `json:"etag,omitempty"`
}

// ToPublisherInfo converts a publisher to its service model.
func ToPublisherInfo(r *PublisherRegistration) *PublisherInfo {
	m := &PublisherInfo{
		ID:               r.ID(),
		SiteID:           deref(r.SiteID),
		LogLevel:         deref(r.LogLevel),
		Version:          deref(r.Version),
		Connected:        Ptr(r.Connected),
		OutOfSync:        syncState(r),
		NotSeenSince:     r.NotSeenSince,
		ConcurrencyToken: r.ConcurrencyToken,
	}
	if r.Capabilities != nil || r.JobOrchestratorURL != nil || r.MaxWorkers != nil ||
		r.JobCheckInterval != nil || r.HeartbeatInterval != nil {
		m.Configuration = &PublisherConfig{
			Capabilities:       r.Capabilities,
			JobOrchestratorURL: deref(r.JobOrchestratorURL),
			MaxWorkers:         r.MaxWorkers,
			JobCheckInterval:   toDuration(r.JobCheckInterval),
			HeartbeatInterval:  toDuration(r.HeartbeatInterval),
		}
	}
	return m
}

// FromPublisherInfo converts a service model to a publisher.
func FromPublisherInfo(m *PublisherInfo) *PublisherRegistration {
	r := &PublisherRegistration{}
	setAgentIdentity(&r.Common, m.ID, m.SiteID, m.ConcurrencyToken)
	if m.LogLevel != "" {
		r.LogLevel = Ptr(m.LogLevel)
	}
	if cfg := m.Configuration; cfg != nil {
		r.Capabilities = cfg.Capabilities
		r.JobOrchestratorURL = nonEmpty(cfg.JobOrchestratorURL)
		r.MaxWorkers = cfg.MaxWorkers
		r.JobCheckInterval = fromDuration(cfg.JobCheckInterval)
		r.HeartbeatInterval = fromDuration(cfg.HeartbeatInterval)
	}
	return r
}

// ToServiceModel converts any registration to its service model.
func ToServiceModel(r Registration) any {
	switch t := r.(type) {
	case *ApplicationRegistration:
		return ToApplicationInfo(t)
	case *EndpointRegistration:
		return ToEndpointInfo(t)
	case *GatewayRegistration:
		return ToGatewayInfo(t)
	case *SupervisorRegistration:
		return ToSupervisorInfo(t)
	case *DiscovererRegistration:
		return ToDiscovererInfo(t)
	case *PublisherRegistration:
		return ToPublisherInfo(t)
	default:
		return nil
	}
}

// FromServiceModel converts a service model back to a registration.
func FromServiceModel(m any) (Registration, error) {
	switch t := m.(type) {
	case *ApplicationInfo:
		return FromApplicationInfo(t), nil
	case *EndpointInfo:
		return FromEndpointInfo(t), nil
	case *GatewayInfo:
		return FromGatewayInfo(t), nil
	case *SupervisorInfo:
		return FromSupervisorInfo(t), nil
	case *DiscovererInfo:
		return FromDiscovererInfo(t), nil
	case *PublisherInfo:
		return FromPublisherInfo(t), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedModel, m)
	}
}

// NewServiceModel returns an empty service model for kind, ready to be
// decoded into.
func NewServiceModel(kind Kind) (any, error) {
	switch kind {
	case KindApplication:
		return &ApplicationInfo{}, nil
	case KindEndpoint:
		return &EndpointInfo{}, nil
	case KindGateway:
		return &GatewayInfo{}, nil
	case KindSupervisor:
		return &SupervisorInfo{}, nil
	case KindDiscoverer:
		return &DiscovererInfo{}, nil
	case KindPublisher:
		return &PublisherInfo{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// setAgentIdentity fills the common fields of an agent kind from a
// service-model ID of the form device[_module_module].
func setAgentIdentity(c *Common, id, site, token string) {
	device, module := ParseModuleDeviceID(id)
	c.DeviceID = device
	if module != "" {
		c.ModuleID = Ptr(module)
	}
	c.SiteID = nonEmpty(site)
	c.ConcurrencyToken = token
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
