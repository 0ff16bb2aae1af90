package entity

import (
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

// EndpointRegistration is a server endpoint of an application, activated
// on a supervisor. Connection settings are desired/reported state so the
// supervisor can confirm what it actually connected with.
type EndpointRegistration struct {
	Common

	ApplicationID         *string
	SupervisorID          *string
	DiscovererID          *string
	SecurityLevel         *int
	AuthenticationMethods []AuthenticationMethod
	ActivationState       *ActivationState

	EndpointURL     *string
	AlternativeURLs []string // set
	SecurityMode    *SecurityMode
	SecurityPolicy  *string
	Certificate     []byte

	// State is reported by the supervisor only.
	State *EndpointState
}

// Kind returns KindEndpoint.
func (r *EndpointRegistration) Kind() Kind { return KindEndpoint }

// Thumbprint returns the certificate thumbprint, or "".
func (r *EndpointRegistration) Thumbprint() string { return Thumbprint(r.Certificate) }

// NormalizeURL lowercases the scheme and host of an endpoint URL and trims
// a trailing slash, so equivalent spellings share an identity. Unparsable
// input is lowercased whole.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return strings.TrimSuffix(u.String(), "/")
}

func init() {
	type R = *EndpointRegistration
	register(KindEndpoint, func() Registration { return &EndpointRegistration{} },
		stringField("ApplicationId", scopeAdmin, func(r R) **string { return &r.ApplicationID }),
		stringField("SupervisorId", scopeAdmin, func(r R) **string { return &r.SupervisorID }),
		stringField("DiscovererId", scopeAdmin, func(r R) **string { return &r.DiscovererID }),
		intField("SecurityLevel", scopeAdmin, func(r R) **int { return &r.SecurityLevel }),
		authMethodsField("AuthenticationMethods", scopeAdmin, func(r R) *[]AuthenticationMethod { return &r.AuthenticationMethods }),
		enumField("ActivationState", scopeAdmin, func(r R) **ActivationState { return &r.ActivationState }),
		derivedField("EndpointUrlLC", scopeAdmin, func(r R) any {
			if r.EndpointURL == nil {
				return nil
			}
			return strings.ToLower(NormalizeURL(*r.EndpointURL))
		}),
		derivedField("Thumbprint", scopeAdmin, func(r R) any { return thumbprintOrNil(r.Certificate) }),

		stringField("EndpointUrl", scopeState, func(r R) **string { return &r.EndpointURL }).synced(nil),
		setField("AlternativeUrls", scopeState, func(r R) *[]string { return &r.AlternativeURLs }).synced(nil),
		enumField("SecurityMode", scopeState, func(r R) **SecurityMode { return &r.SecurityMode }).synced(nil),
		stringField("SecurityPolicy", scopeState, func(r R) **string { return &r.SecurityPolicy }).synced(nil),
		bytesField("Certificate", scopeState, func(r R) *[]byte { return &r.Certificate }).synced(nil),

		enumField("State", scopeReported, func(r R) **EndpointState { return &r.State }),
	)
}

// authMethodsField stores authentication methods as an index-keyed list of
// nested bags.
func authMethodsField[R Registration](name string, sc scope, ptr func(R) *[]AuthenticationMethod) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			methods := *ptr(r.(R))
			if methods == nil {
				return nil
			}
			items := make([]shadow.Properties, len(methods))
			for i, m := range methods {
				item := shadow.Properties{"Id": m.ID}
				if m.CredentialType != "" {
					item["CredentialType"] = string(m.CredentialType)
				}
				if m.SecurityPolicy != "" {
					item["SecurityPolicy"] = m.SecurityPolicy
				}
				items[i] = item
			}
			return shadow.EncodeList(items)
		},
		set: func(r Registration, v any) {
			items, ok := shadow.DecodeList(v)
			if !ok {
				*ptr(r.(R)) = nil
				return
			}
			methods := make([]AuthenticationMethod, 0, len(items))
			for _, item := range items {
				bag, isBag := shadow.AsProperties(item)
				if !isBag {
					continue
				}
				id, _ := shadow.String(bag["Id"])
				ct, _ := shadow.String(bag["CredentialType"])
				sp, _ := shadow.String(bag["SecurityPolicy"])
				methods = append(methods, AuthenticationMethod{
					ID:             id,
					CredentialType: CredentialType(ct),
					SecurityPolicy: sp,
				})
			}
			*ptr(r.(R)) = methods
		},
	}
}
