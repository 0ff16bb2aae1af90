package entity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validServer() *ApplicationRegistration {
	return &ApplicationRegistration{
		ApplicationURI:  Ptr("urn:example:server"),
		ApplicationType: Ptr(ApplicationTypeServer),
		ApplicationName: Ptr("Line 3 PLC"),
		ProductURI:      Ptr("urn:example:product"),
		DiscoveryURLs:   []string{"opc.tcp://host:4840"},
		Capabilities:    []string{"DA"},
	}
}

func TestValidateApplication(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ApplicationRegistration)
		wantErr bool
	}{
		{
			name:   "valid server",
			mutate: func(*ApplicationRegistration) {},
		},
		{
			name:    "application uri not a uri",
			mutate:  func(r *ApplicationRegistration) { r.ApplicationURI = Ptr("not a uri") },
			wantErr: true,
		},
		{
			name:    "application uri missing",
			mutate:  func(r *ApplicationRegistration) { r.ApplicationURI = nil },
			wantErr: true,
		},
		{
			name:    "unknown type",
			mutate:  func(r *ApplicationRegistration) { r.ApplicationType = Ptr(ApplicationType("Robot")) },
			wantErr: true,
		},
		{
			name:    "no name",
			mutate:  func(r *ApplicationRegistration) { r.ApplicationName = nil },
			wantErr: true,
		},
		{
			name: "localized name resolves",
			mutate: func(r *ApplicationRegistration) {
				r.ApplicationName = nil
				r.LocalizedNames = map[string]string{"en-US": "Press"}
			},
		},
		{
			name:    "product uri not a uri",
			mutate:  func(r *ApplicationRegistration) { r.ProductURI = Ptr("product 1") },
			wantErr: true,
		},
		{
			name:    "relative discovery url",
			mutate:  func(r *ApplicationRegistration) { r.DiscoveryURLs = []string{"/discovery"} },
			wantErr: true,
		},
		{
			name:    "server with empty capabilities",
			mutate:  func(r *ApplicationRegistration) { r.Capabilities = []string{} },
			wantErr: true,
		},
		{
			name:    "server without discovery urls",
			mutate:  func(r *ApplicationRegistration) { r.DiscoveryURLs = []string{" "} },
			wantErr: true,
		},
		{
			name: "client with discovery url",
			mutate: func(r *ApplicationRegistration) {
				r.ApplicationType = Ptr(ApplicationTypeClient)
				r.DiscoveryURLs = []string{"opc.tcp://host:4840"}
			},
			wantErr: true,
		},
		{
			name: "client without discovery urls",
			mutate: func(r *ApplicationRegistration) {
				r.ApplicationType = Ptr(ApplicationTypeClient)
				r.DiscoveryURLs = nil
				r.Capabilities = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validServer()
			tt.mutate(r)
			err := ValidateApplication(r)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRegistration) {
					t.Errorf("ValidateApplication() = %v, want ErrInvalidRegistration", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateApplication() = %v, want nil", err)
			}
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	valid := func() *EndpointRegistration {
		return &EndpointRegistration{
			ApplicationID:  Ptr("uas0123"),
			EndpointURL:    Ptr("opc.tcp://host:4840/ua"),
			SecurityMode:   Ptr(SecurityModeSignAndEncrypt),
			SecurityPolicy: Ptr("http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *EndpointRegistration)
		wantErr bool
	}{
		{name: "valid", mutate: func(*EndpointRegistration) {}},
		{
			name:    "missing application",
			mutate:  func(r *EndpointRegistration) { r.ApplicationID = nil },
			wantErr: true,
		},
		{
			name:    "relative url",
			mutate:  func(r *EndpointRegistration) { r.EndpointURL = Ptr("host:4840") },
			wantErr: true,
		},
		{
			name:    "unknown security mode",
			mutate:  func(r *EndpointRegistration) { r.SecurityMode = Ptr(SecurityMode("Maybe")) },
			wantErr: true,
		},
		{
			name:    "negative security level",
			mutate:  func(r *EndpointRegistration) { r.SecurityLevel = Ptr(-1) },
			wantErr: true,
		},
		{
			name: "auth method without id",
			mutate: func(r *EndpointRegistration) {
				r.AuthenticationMethods = []AuthenticationMethod{{CredentialType: CredentialTypeUserName}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := Validate(r)
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAgents(t *testing.T) {
	tests := []struct {
		name    string
		r       Registration
		wantErr bool
	}{
		{
			name: "gateway",
			r:    &GatewayRegistration{Common: Common{DeviceID: "gw1"}},
		},
		{
			name:    "gateway without device id",
			r:       &GatewayRegistration{},
			wantErr: true,
		},
		{
			name:    "supervisor with bad log level",
			r:       &SupervisorRegistration{Common: Common{DeviceID: "gw1"}, LogLevel: Ptr(LogLevel("Loud"))},
			wantErr: true,
		},
		{
			name: "discoverer",
			r: &DiscovererRegistration{
				Common:           Common{DeviceID: "gw1", ModuleID: Ptr("discovery")},
				Discovery:        Ptr(DiscoveryModeFast),
				PortProbeTimeout: Ptr(5 * time.Second),
			},
		},
		{
			name: "discoverer with negative timeout",
			r: &DiscovererRegistration{
				Common:           Common{DeviceID: "gw1"},
				PortProbeTimeout: Ptr(-time.Second),
			},
			wantErr: true,
		},
		{
			name: "discoverer with percent out of range",
			r: &DiscovererRegistration{
				Common:               Common{DeviceID: "gw1"},
				MinPortProbesPercent: Ptr(120),
			},
			wantErr: true,
		},
		{
			name: "publisher with relative orchestrator url",
			r: &PublisherRegistration{
				Common:             Common{DeviceID: "gw1"},
				JobOrchestratorURL: Ptr("jobs"),
			},
			wantErr: true,
		},
		{
			name:    "nil",
			r:       nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.r)
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAgents_FirstFailureIsStable(t *testing.T) {
	tests := []struct {
		name string
		r    Registration
		want string
	}{
		{
			name: "discoverer",
			r: &DiscovererRegistration{
				Common:               Common{DeviceID: "gw1"},
				NetworkProbeTimeout:  Ptr(-time.Second),
				MaxNetworkProbes:     Ptr(-1),
				PortProbeTimeout:     Ptr(-time.Second),
				MaxPortProbes:        Ptr(-1),
				IdleTimeBetweenScans: Ptr(-time.Minute),
			},
			want: "network probe timeout",
		},
		{
			name: "publisher",
			r: &PublisherRegistration{
				Common:            Common{DeviceID: "gw1"},
				MaxWorkers:        Ptr(-1),
				JobCheckInterval:  Ptr(-time.Second),
				HeartbeatInterval: Ptr(-time.Second),
			},
			want: "max workers",
		},
		{
			name: "publisher intervals",
			r: &PublisherRegistration{
				Common:            Common{DeviceID: "gw1"},
				JobCheckInterval:  Ptr(-time.Second),
				HeartbeatInterval: Ptr(-time.Second),
			},
			want: "job check interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 20 {
				err := Validate(tt.r)
				if !errors.Is(err, ErrInvalidRegistration) {
					t.Fatalf("Validate() error = %v, want ErrInvalidRegistration", err)
				}
				if !strings.Contains(err.Error(), tt.want) {
					t.Fatalf("Validate() error = %q, want first failure %q", err, tt.want)
				}
			}
		})
	}
}
