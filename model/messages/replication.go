// Package messages holds the wire representations exchanged with
// external collaborators. The anti-entropy service ships whole register
// op-logs between replicas; the envelope here is CBOR while each op stays
// in its canonical binary form, so signatures remain verifiable bit-exact
// on the receiving side.
package messages

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sectionnet/register-store/model/register"
)

// RegisterBundle is the transport form of a replicated register op-log.
type RegisterBundle struct {
	Address []byte   `cbor:"1,keyasint"`
	OpLog   [][]byte `cbor:"2,keyasint"`
}

// BundleFromReplica converts an engine-level log bundle into its
// transport form.
func BundleFromReplica(replica *register.LogBundle) *RegisterBundle {
	ops := make([][]byte, 0, len(replica.OpLog))
	for _, op := range replica.OpLog {
		ops = append(ops, register.EncodeOp(op))
	}
	return &RegisterBundle{
		Address: replica.Address.Encode(),
		OpLog:   ops,
	}
}

// ToReplica decodes the transport form back into an engine-level log
// bundle.
func (b *RegisterBundle) ToReplica() (*register.LogBundle, error) {
	addr, err := register.DecodeAddress(b.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle address: %w", err)
	}
	ops := make([]register.Op, 0, len(b.OpLog))
	for i, data := range b.OpLog {
		op, err := register.DecodeOp(data)
		if err != nil {
			return nil, fmt.Errorf("invalid bundle op %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return &register.LogBundle{Address: addr, OpLog: ops}, nil
}

// Encode marshals the bundle envelope.
func (b *RegisterBundle) Encode() ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("could not encode bundle: %w", err)
	}
	return data, nil
}

// DecodeBundle unmarshals a bundle envelope.
func DecodeBundle(data []byte) (*RegisterBundle, error) {
	var b RegisterBundle
	err := cbor.Unmarshal(data, &b)
	if err != nil {
		return nil, fmt.Errorf("could not decode bundle: %w", err)
	}
	return &b, nil
}
