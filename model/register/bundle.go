package register

// LogBundle is the replication unit exchanged between replicas: the
// verbatim persisted op-log of one address. Ops are not re-signed for
// transport; the receiver re-verifies every authority.
type LogBundle struct {
	Address Address
	OpLog   []Op
}
