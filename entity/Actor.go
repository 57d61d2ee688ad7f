package entity

// Actor is the originator of a transition request.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorVendor   Actor = "vendor"
	ActorSystem   Actor = "system"
)

func (a Actor) Valid() bool {
	return a == ActorCustomer || a == ActorVendor || a == ActorSystem
}
