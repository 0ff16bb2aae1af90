package entity

import "time"

// ApplicationRegistration is an OPC UA application found on the network or
// registered by an operator. An application's identity key is its DeviceID.
//
// Applications have no agent, so every field is an administrative
// attribute.
type ApplicationRegistration struct {
	Common

	ApplicationURI      *string
	ApplicationType     *ApplicationType
	ApplicationName     *string
	Locale              *string
	LocalizedNames      map[string]string
	ProductURI          *string
	DiscovererID        *string
	GatewayServerURI    *string
	DiscoveryProfileURI *string
	Capabilities        []string // set
	DiscoveryURLs       []string // ordered
	HostAddresses       []string // set
	Certificate         []byte

	CreateAuthorityID *string
	CreateTime        *time.Time
	UpdateAuthorityID *string
	UpdateTime        *time.Time
}

// Kind returns KindApplication.
func (r *ApplicationRegistration) Kind() Kind { return KindApplication }

// Thumbprint returns the certificate thumbprint, or "".
func (r *ApplicationRegistration) Thumbprint() string { return Thumbprint(r.Certificate) }

// DisplayName resolves the application name: the explicit name, else the
// localized name for Locale, else the first localized name by locale.
// Returns "" when none resolves.
func (r *ApplicationRegistration) DisplayName() string {
	if r.ApplicationName != nil && *r.ApplicationName != "" {
		return *r.ApplicationName
	}
	if r.Locale != nil {
		if n := r.LocalizedNames[*r.Locale]; n != "" {
			return n
		}
	}
	for _, locale := range sortedKeys(r.LocalizedNames) {
		if n := r.LocalizedNames[locale]; n != "" {
			return n
		}
	}
	return ""
}

func init() {
	type R = *ApplicationRegistration
	register(KindApplication, func() Registration { return &ApplicationRegistration{} },
		stringField("ApplicationUri", scopeAdmin, func(r R) **string { return &r.ApplicationURI }),
		derivedField("ApplicationUriLC", scopeAdmin, func(r R) any { return lowerOrNil(r.ApplicationURI) }),
		enumField("ApplicationType", scopeAdmin, func(r R) **ApplicationType { return &r.ApplicationType }),
		stringField("ApplicationName", scopeAdmin, func(r R) **string { return &r.ApplicationName }),
		stringField("Locale", scopeAdmin, func(r R) **string { return &r.Locale }),
		mapField("LocalizedNames", scopeAdmin, func(r R) *map[string]string { return &r.LocalizedNames }),
		stringField("ProductUri", scopeAdmin, func(r R) **string { return &r.ProductURI }),
		stringField("DiscovererId", scopeAdmin, func(r R) **string { return &r.DiscovererID }),
		stringField("GatewayServerUri", scopeAdmin, func(r R) **string { return &r.GatewayServerURI }),
		stringField("DiscoveryProfileUri", scopeAdmin, func(r R) **string { return &r.DiscoveryProfileURI }),
		setField("Capabilities", scopeAdmin, func(r R) *[]string { return &r.Capabilities }),
		listField("DiscoveryUrls", scopeAdmin, func(r R) *[]string { return &r.DiscoveryURLs }),
		setField("HostAddresses", scopeAdmin, func(r R) *[]string { return &r.HostAddresses }),
		bytesField("Certificate", scopeAdmin, func(r R) *[]byte { return &r.Certificate }),
		derivedField("Thumbprint", scopeAdmin, func(r R) any { return thumbprintOrNil(r.Certificate) }),
		stringField("CreateAuthorityId", scopeAdmin, func(r R) **string { return &r.CreateAuthorityID }),
		timeField("CreateTime", scopeAdmin, func(r R) **time.Time { return &r.CreateTime }),
		stringField("UpdateAuthorityId", scopeAdmin, func(r R) **string { return &r.UpdateAuthorityID }),
		timeField("UpdateTime", scopeAdmin, func(r R) **time.Time { return &r.UpdateTime }),
	)
}
