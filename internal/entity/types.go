package entity

// ApplicationType classifies an OPC UA application.
type ApplicationType string

// Application types.
const (
	ApplicationTypeServer          ApplicationType = "Server"
	ApplicationTypeClient          ApplicationType = "Client"
	ApplicationTypeClientAndServer ApplicationType = "ClientAndServer"
	ApplicationTypeDiscoveryServer ApplicationType = "DiscoveryServer"
)

// AllApplicationTypes returns all valid application types.
func AllApplicationTypes() []ApplicationType {
	return []ApplicationType{
		ApplicationTypeServer,
		ApplicationTypeClient,
		ApplicationTypeClientAndServer,
		ApplicationTypeDiscoveryServer,
	}
}

// SecurityMode is the message security mode of an endpoint.
type SecurityMode string

// Security modes.
const (
	SecurityModeBest           SecurityMode = "Best"
	SecurityModeSign           SecurityMode = "Sign"
	SecurityModeSignAndEncrypt SecurityMode = "SignAndEncrypt"
	SecurityModeNone           SecurityMode = "None"
)

// AllSecurityModes returns all valid security modes.
func AllSecurityModes() []SecurityMode {
	return []SecurityMode{
		SecurityModeBest,
		SecurityModeSign,
		SecurityModeSignAndEncrypt,
		SecurityModeNone,
	}
}

// LogLevel is the trace level an agent runs at.
type LogLevel string

// Log levels.
const (
	LogLevelError       LogLevel = "Error"
	LogLevelInformation LogLevel = "Information"
	LogLevelDebug       LogLevel = "Debug"
	LogLevelVerbose     LogLevel = "Verbose"
)

// AllLogLevels returns all valid log levels.
func AllLogLevels() []LogLevel {
	return []LogLevel{
		LogLevelError,
		LogLevelInformation,
		LogLevelDebug,
		LogLevelVerbose,
	}
}

// DiscoveryMode controls how aggressively a discoverer scans.
type DiscoveryMode string

// Discovery modes.
const (
	DiscoveryModeOff     DiscoveryMode = "Off"
	DiscoveryModeLocal   DiscoveryMode = "Local"
	DiscoveryModeNetwork DiscoveryMode = "Network"
	DiscoveryModeFast    DiscoveryMode = "Fast"
	DiscoveryModeScan    DiscoveryMode = "Scan"
)

// AllDiscoveryModes returns all valid discovery modes.
func AllDiscoveryModes() []DiscoveryMode {
	return []DiscoveryMode{
		DiscoveryModeOff,
		DiscoveryModeLocal,
		DiscoveryModeNetwork,
		DiscoveryModeFast,
		DiscoveryModeScan,
	}
}

// EndpointState is the connectivity state an agent reports for an endpoint.
type EndpointState string

// Endpoint connectivity states.
const (
	EndpointStateConnecting         EndpointState = "Connecting"
	EndpointStateNotReachable       EndpointState = "NotReachable"
	EndpointStateBusy               EndpointState = "Busy"
	EndpointStateNoTrust            EndpointState = "NoTrust"
	EndpointStateCertificateInvalid EndpointState = "CertificateInvalid"
	EndpointStateReady              EndpointState = "Ready"
	EndpointStateError              EndpointState = "Error"
	EndpointStateDisconnected       EndpointState = "Disconnected"
	EndpointStateUnauthorized       EndpointState = "Unauthorized"
)

// AllEndpointStates returns all valid endpoint connectivity states.
func AllEndpointStates() []EndpointState {
	return []EndpointState{
		EndpointStateConnecting,
		EndpointStateNotReachable,
		EndpointStateBusy,
		EndpointStateNoTrust,
		EndpointStateCertificateInvalid,
		EndpointStateReady,
		EndpointStateError,
		EndpointStateDisconnected,
		EndpointStateUnauthorized,
	}
}

// ActivationState records whether an endpoint is activated for use.
type ActivationState string

// Activation states.
const (
	ActivationStateDeactivated           ActivationState = "Deactivated"
	ActivationStateActivated             ActivationState = "Activated"
	ActivationStateActivatedAndConnected ActivationState = "ActivatedAndConnected"
)

// AllActivationStates returns all valid activation states.
func AllActivationStates() []ActivationState {
	return []ActivationState{
		ActivationStateDeactivated,
		ActivationStateActivated,
		ActivationStateActivatedAndConnected,
	}
}

// CredentialType is the kind of user credential an endpoint accepts.
type CredentialType string

// Credential types.
const (
	CredentialTypeNone            CredentialType = "None"
	CredentialTypeUserName        CredentialType = "UserName"
	CredentialTypeX509Certificate CredentialType = "X509Certificate"
	CredentialTypeJwtToken        CredentialType = "JwtToken"
)

// AllCredentialTypes returns all valid credential types.
func AllCredentialTypes() []CredentialType {
	return []CredentialType{
		CredentialTypeNone,
		CredentialTypeUserName,
		CredentialTypeX509Certificate,
		CredentialTypeJwtToken,
	}
}

// AuthenticationMethod describes one way a client may authenticate to an
// endpoint.
type AuthenticationMethod struct {
	ID             string         `json:"id"`
	CredentialType CredentialType `json:"credential_type,omitempty"`
	SecurityPolicy string         `json:"security_policy,omitempty"`
}

// Lookup sets for enum validation, built once at init.
var (
	validApplicationTypes = make(map[ApplicationType]bool)
	validSecurityModes    = make(map[SecurityMode]bool)
	validLogLevels        = make(map[LogLevel]bool)
	validDiscoveryModes   = make(map[DiscoveryMode]bool)
	validEndpointStates   = make(map[EndpointState]bool)
	validActivationStates = make(map[ActivationState]bool)
	validCredentialTypes  = make(map[CredentialType]bool)
)

func init() {
	for _, v := range AllApplicationTypes() {
		validApplicationTypes[v] = true
	}
	for _, v := range AllSecurityModes() {
		validSecurityModes[v] = true
	}
	for _, v := range AllLogLevels() {
		validLogLevels[v] = true
	}
	for _, v := range AllDiscoveryModes() {
		validDiscoveryModes[v] = true
	}
	for _, v := range AllEndpointStates() {
		validEndpointStates[v] = true
	}
	for _, v := range AllActivationStates() {
		validActivationStates[v] = true
	}
	for _, v := range AllCredentialTypes() {
		validCredentialTypes[v] = true
	}
}
