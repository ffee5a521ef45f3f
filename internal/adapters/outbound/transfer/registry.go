package transfer

import (
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
)

// Registry is assembled once at startup and read-only afterwards.
type Registry struct {
	gateways map[valueobjects.AddressClass]portsout.TransferGateway
}

var _ portsout.TransferGatewayRegistry = (*Registry)(nil)

func NewRegistry(gateways map[valueobjects.AddressClass]portsout.TransferGateway) *Registry {
	copied := make(map[valueobjects.AddressClass]portsout.TransferGateway, len(gateways))
	for class, gateway := range gateways {
		if gateway == nil || !class.IsValid() {
			continue
		}
		copied[class] = gateway
	}
	return &Registry{gateways: copied}
}

func (r *Registry) Resolve(class valueobjects.AddressClass) (portsout.TransferGateway, bool) {
	if r == nil {
		return nil, false
	}
	gateway, ok := r.gateways[class]
	return gateway, ok
}

func (r *Registry) Classes() []valueobjects.AddressClass {
	out := make([]valueobjects.AddressClass, 0, len(r.gateways))
	for class := range r.gateways {
		out = append(out, class)
	}
	return out
}
