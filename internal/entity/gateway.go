package entity

// GatewayRegistration is an edge gateway hosting supervisor, discoverer and
// publisher modules. It carries no configuration of its own.
type GatewayRegistration struct {
	Common

	Version *string
}

// Kind returns KindGateway.
func (r *GatewayRegistration) Kind() Kind { return KindGateway }

func init() {
	type R = *GatewayRegistration
	register(KindGateway, func() Registration { return &GatewayRegistration{} },
		stringField("Version", scopeReported, func(r R) **string { return &r.Version }),
	)
}
