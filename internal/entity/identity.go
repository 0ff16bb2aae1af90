package entity

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Identity key prefixes. Applications are prefixed by type so a server
// and a client with the same URI never collide.
const (
	prefixServer          = "uas"
	prefixClient          = "uac"
	prefixClientAndServer = "uax"
	prefixDiscoveryServer = "uad"
	prefixEndpoint        = "uep"
)

// keyDigestBytes is the number of BLAKE3 output bytes kept in a key.
const keyDigestBytes = 20

var applicationPrefixes = map[ApplicationType]string{
	ApplicationTypeServer:          prefixServer,
	ApplicationTypeClient:          prefixClient,
	ApplicationTypeClientAndServer: prefixClientAndServer,
	ApplicationTypeDiscoveryServer: prefixDiscoveryServer,
}

// IdentityKey computes the deterministic identity of r.
//
// Applications hash site-or-gateway, lowercased URI and type. Endpoints
// hash application ID, normalized URL, security mode and policy. Agent
// kinds are identified by device and module ID. Returns a
// *MissingIdentityFieldError when an identity-affecting field is unset.
func IdentityKey(r Registration) (string, error) {
	switch t := r.(type) {
	case nil:
		return "", fmt.Errorf("%w: nil registration", ErrMissingIdentityField)
	case *ApplicationRegistration:
		return applicationKey(t)
	case *EndpointRegistration:
		return endpointKey(t)
	default:
		c := r.Base()
		if c.DeviceID == "" {
			return "", &MissingIdentityFieldError{Kind: r.Kind(), Field: "DeviceId"}
		}
		return c.ID(), nil
	}
}

func applicationKey(r *ApplicationRegistration) (string, error) {
	site := siteOrGatewayID(r)
	if site == "" {
		return "", &MissingIdentityFieldError{Kind: KindApplication, Field: "SiteId"}
	}
	if r.ApplicationURI == nil || *r.ApplicationURI == "" {
		return "", &MissingIdentityFieldError{Kind: KindApplication, Field: "ApplicationUri"}
	}
	if r.ApplicationType == nil {
		return "", &MissingIdentityFieldError{Kind: KindApplication, Field: "ApplicationType"}
	}
	prefix, ok := applicationPrefixes[*r.ApplicationType]
	if !ok {
		return "", fmt.Errorf("%w: application type %q", ErrInvalidRegistration, *r.ApplicationType)
	}
	return prefix + digest(map[string]string{
		"site": site,
		"uri":  strings.ToLower(*r.ApplicationURI),
		"type": string(*r.ApplicationType),
	}), nil
}

func endpointKey(r *EndpointRegistration) (string, error) {
	switch {
	case r.ApplicationID == nil || *r.ApplicationID == "":
		return "", &MissingIdentityFieldError{Kind: KindEndpoint, Field: "ApplicationId"}
	case r.EndpointURL == nil || *r.EndpointURL == "":
		return "", &MissingIdentityFieldError{Kind: KindEndpoint, Field: "EndpointUrl"}
	case r.SecurityMode == nil:
		return "", &MissingIdentityFieldError{Kind: KindEndpoint, Field: "SecurityMode"}
	case r.SecurityPolicy == nil:
		return "", &MissingIdentityFieldError{Kind: KindEndpoint, Field: "SecurityPolicy"}
	}
	return prefixEndpoint + digest(map[string]string{
		"application": *r.ApplicationID,
		"url":         strings.ToLower(NormalizeURL(*r.EndpointURL)),
		"mode":        string(*r.SecurityMode),
		"policy":      *r.SecurityPolicy,
	}), nil
}

// siteOrGatewayID returns the site, or the gateway that hosts the
// application's discoverer.
func siteOrGatewayID(r *ApplicationRegistration) string {
	if r.SiteID != nil && *r.SiteID != "" {
		return *r.SiteID
	}
	if r.DiscovererID != nil && *r.DiscovererID != "" {
		gateway, _ := ParseModuleDeviceID(*r.DiscovererID)
		return gateway
	}
	return ""
}

// digest hashes named parts independent of their order.
func digest(parts map[string]string) string {
	h := blake3.New()
	for _, k := range sortedKeys(parts) {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(parts[k]))
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil)[:keyDigestBytes])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveIdentity computes the identity of existing overlaid with updated
// and reports whether it differs from the identity of existing alone. A
// nil existing always counts as changed. A changed identity means the
// record must be re-created under the new key.
func ResolveIdentity(existing, updated Registration) (key string, changed bool, err error) {
	key, err = IdentityKey(Overlay(existing, updated))
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return key, true, nil
	}

	prev, err := IdentityKey(stored(existing))
	if err != nil {
		prev = existing.Base().ID()
	}
	return key, key != prev, nil
}

// Overlay returns existing with every field updated sets replaced. State
// fields fall back to existing's desired companion before its consolidated
// value, so the overlay reflects intent rather than drift. Companions are
// not carried over. Neither input is modified.
func Overlay(existing, updated Registration) Registration {
	if existing == nil {
		return companion(updated)
	}
	if updated == nil {
		return companion(existing)
	}

	out := companion(existing)
	base := existing.Desired()
	for _, f := range schemas[out.Kind()].fields {
		if f.isDerived() {
			continue
		}
		v := f.get(updated)
		if v == nil && f.scope == scopeState && base != nil {
			v = f.get(base)
		}
		if v == nil {
			v = f.get(existing)
		}
		f.set(out, v)
	}

	c, u := out.Base(), updated.Base()
	if u.DeviceID != "" {
		c.DeviceID = u.DeviceID
	}
	if u.ModuleID != nil {
		c.ModuleID = clonePtr(u.ModuleID)
	}
	if u.SiteID != nil {
		c.SiteID = clonePtr(u.SiteID)
	}
	if u.IsDisabled != nil {
		c.IsDisabled = clonePtr(u.IsDisabled)
	}
	return out
}

// stored returns what existing holds in its record, preferring desired
// state over reported.
func stored(existing Registration) Registration {
	return Overlay(existing, schemas[existing.Kind()].create())
}

// RecordKey maps an identity key, or any service-model ID, to the record
// ID and module ID it is stored under.
func RecordKey(kind Kind, key string) (id, moduleID string) {
	switch kind {
	case KindApplication, KindEndpoint:
		return key, ""
	default:
		return ParseModuleDeviceID(key)
	}
}
