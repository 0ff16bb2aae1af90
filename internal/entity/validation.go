package entity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks r against the rules for its kind. Returns nil for a
// valid registration; otherwise the first failure, wrapping
// ErrInvalidRegistration.
func Validate(r Registration) error {
	switch t := r.(type) {
	case nil:
		return fmt.Errorf("%w: nil registration", ErrInvalidRegistration)
	case *ApplicationRegistration:
		return ValidateApplication(t)
	case *EndpointRegistration:
		return ValidateEndpoint(t)
	case *GatewayRegistration:
		return validateAgent(t.Base(), nil)
	case *SupervisorRegistration:
		return validateAgent(t.Base(), t.LogLevel)
	case *DiscovererRegistration:
		return validateDiscoverer(t)
	case *PublisherRegistration:
		return validatePublisher(t)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind())
	}
}

// ValidateApplication checks, in order: the application URI is an
// absolute URI; the type is known; a name resolves; the product URI is an
// absolute URI; every discovery URL is an absolute URL; non-client types
// list at least one discovery URL and one capability; clients list no
// discovery URLs.
func ValidateApplication(r *ApplicationRegistration) error {
	if r == nil {
		return fmt.Errorf("%w: nil application", ErrInvalidRegistration)
	}
	if err := validateAbsoluteURI("application uri", r.ApplicationURI); err != nil {
		return err
	}
	if r.ApplicationType == nil || !validApplicationTypes[*r.ApplicationType] {
		return fmt.Errorf("%w: application type %q", ErrInvalidRegistration, deref(r.ApplicationType))
	}
	if r.DisplayName() == "" {
		return fmt.Errorf("%w: application name is required", ErrInvalidRegistration)
	}
	if err := validateAbsoluteURI("product uri", r.ProductURI); err != nil {
		return err
	}

	discoveryURLs := 0
	for _, raw := range r.DiscoveryURLs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if !isAbsolute(raw) {
			return fmt.Errorf("%w: discovery url %q is not an absolute url", ErrInvalidRegistration, raw)
		}
		discoveryURLs++
	}

	if *r.ApplicationType == ApplicationTypeClient {
		if discoveryURLs > 0 {
			return fmt.Errorf("%w: client applications cannot have discovery urls", ErrInvalidRegistration)
		}
		return nil
	}
	if discoveryURLs == 0 {
		return fmt.Errorf("%w: %s applications need a discovery url", ErrInvalidRegistration, *r.ApplicationType)
	}
	if len(r.Capabilities) == 0 {
		return fmt.Errorf("%w: %s applications need a capability", ErrInvalidRegistration, *r.ApplicationType)
	}
	return nil
}

// ValidateEndpoint checks that the endpoint names its application, has an
// absolute URL and uses known enum values.
func ValidateEndpoint(r *EndpointRegistration) error {
	if r == nil {
		return fmt.Errorf("%w: nil endpoint", ErrInvalidRegistration)
	}
	if r.ApplicationID == nil || *r.ApplicationID == "" {
		return fmt.Errorf("%w: endpoint application id is required", ErrInvalidRegistration)
	}
	if err := validateAbsoluteURI("endpoint url", r.EndpointURL); err != nil {
		return err
	}
	for _, alt := range r.AlternativeURLs {
		if !isAbsolute(alt) {
			return fmt.Errorf("%w: alternative url %q is not an absolute url", ErrInvalidRegistration, alt)
		}
	}
	if r.SecurityMode != nil && !validSecurityModes[*r.SecurityMode] {
		return fmt.Errorf("%w: security mode %q", ErrInvalidRegistration, *r.SecurityMode)
	}
	if r.SecurityLevel != nil && *r.SecurityLevel < 0 {
		return fmt.Errorf("%w: security level %d", ErrInvalidRegistration, *r.SecurityLevel)
	}
	if r.ActivationState != nil && !validActivationStates[*r.ActivationState] {
		return fmt.Errorf("%w: activation state %q", ErrInvalidRegistration, *r.ActivationState)
	}
	for _, m := range r.AuthenticationMethods {
		if m.ID == "" {
			return fmt.Errorf("%w: authentication method id is required", ErrInvalidRegistration)
		}
		if m.CredentialType != "" && !validCredentialTypes[m.CredentialType] {
			return fmt.Errorf("%w: credential type %q", ErrInvalidRegistration, m.CredentialType)
		}
	}
	return nil
}

func validateAgent(c *Common, level *LogLevel) error {
	if c.DeviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidRegistration)
	}
	if level != nil && !validLogLevels[*level] {
		return fmt.Errorf("%w: log level %q", ErrInvalidRegistration, *level)
	}
	return nil
}

func validateDiscoverer(r *DiscovererRegistration) error {
	if err := validateAgent(r.Base(), r.LogLevel); err != nil {
		return err
	}
	if r.Discovery != nil && !validDiscoveryModes[*r.Discovery] {
		return fmt.Errorf("%w: discovery mode %q", ErrInvalidRegistration, *r.Discovery)
	}
	if err := nonNegative(
		named("network probe timeout", r.NetworkProbeTimeout),
		named("max network probes", r.MaxNetworkProbes),
		named("port probe timeout", r.PortProbeTimeout),
		named("max port probes", r.MaxPortProbes),
		named("idle time between scans", r.IdleTimeBetweenScans),
	); err != nil {
		return err
	}
	if p := r.MinPortProbesPercent; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%w: min port probes percent %d out of range", ErrInvalidRegistration, *p)
	}
	for _, raw := range r.DiscoveryURLs {
		if !isAbsolute(raw) {
			return fmt.Errorf("%w: discovery url %q is not an absolute url", ErrInvalidRegistration, raw)
		}
	}
	return nil
}

func validatePublisher(r *PublisherRegistration) error {
	if err := validateAgent(r.Base(), r.LogLevel); err != nil {
		return err
	}
	if r.JobOrchestratorURL != nil {
		if err := validateAbsoluteURI("job orchestrator url", r.JobOrchestratorURL); err != nil {
			return err
		}
	}
	return nonNegative(
		named("max workers", r.MaxWorkers),
		named("job check interval", r.JobCheckInterval),
		named("heartbeat interval", r.HeartbeatInterval),
	)
}

// namedValue is one optional numeric setting checked by nonNegative.
type namedValue struct {
	name     string
	negative bool
}

func named[T int | time.Duration](name string, v *T) namedValue {
	return namedValue{name: name, negative: v != nil && *v < 0}
}

// nonNegative reports the first negative value in argument order.
func nonNegative(values ...namedValue) error {
	for _, v := range values {
		if v.negative {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidRegistration, v.name)
		}
	}
	return nil
}

func validateAbsoluteURI(what string, s *string) error {
	if s == nil || *s == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRegistration, what)
	}
	if !isAbsolute(*s) {
		return fmt.Errorf("%w: %s %q is not an absolute uri", ErrInvalidRegistration, what, *s)
	}
	return nil
}

// isAbsolute reports whether s parses as an absolute URI. Both
// hierarchical ("opc.tcp://host:4840") and opaque ("urn:a:b") forms are
// accepted.
func isAbsolute(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
