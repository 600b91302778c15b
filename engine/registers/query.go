package registers

import (
	"fmt"

	"github.com/sectionnet/register-store/model/register"
)

// Query is a typed read request against one register address.
type Query interface {
	// Target returns the register address the query projects.
	Target() register.Address
}

// GetQuery asks for the entire reconstructed register.
type GetQuery struct {
	Addr register.Address
}

func (q GetQuery) Target() register.Address { return q.Addr }

// ReadQuery asks for the register's current value: its leaves.
type ReadQuery struct {
	Addr register.Address
}

func (q ReadQuery) Target() register.Address { return q.Addr }

// GetEntryQuery asks for a single entry by hash.
type GetEntryQuery struct {
	Addr register.Address
	Hash register.EntryHash
}

func (q GetEntryQuery) Target() register.Address { return q.Addr }

// GetOwnerQuery asks for the register owner.
type GetOwnerQuery struct {
	Addr register.Address
}

func (q GetOwnerQuery) Target() register.Address { return q.Addr }

// GetUserPermissionsQuery asks for the permission entry applying to one
// user.
type GetUserPermissionsQuery struct {
	Addr register.Address
	User register.User
}

func (q GetUserPermissionsQuery) Target() register.Address { return q.Addr }

// GetPolicyQuery asks for the register policy.
type GetPolicyQuery struct {
	Addr register.Address
}

func (q GetPolicyQuery) Target() register.Address { return q.Addr }

// QueryResponse wraps the result of one query. Exactly the field
// matching the query kind is populated on success; Err carries the
// failure otherwise.
type QueryResponse struct {
	Register    *register.Register
	Leaves      []register.Leaf
	Entry       register.Entry
	Owner       register.User
	Permissions register.Permission
	Policy      register.Policy
	Err         error
}

// HandleQuery converts a typed query into the matching engine read and
// wraps its outcome. Every query reconstructs from the log and runs the
// requester through the register's read policy.
func (e *Engine) HandleQuery(query Query, requester register.User) *QueryResponse {
	resp := new(QueryResponse)
	switch query := query.(type) {
	case GetQuery:
		resp.Register, resp.Err = e.GetRegister(query.Addr, requester)
	case ReadQuery:
		resp.Leaves, resp.Err = e.ReadRegister(query.Addr, requester)
	case GetEntryQuery:
		resp.Entry, resp.Err = e.GetEntry(query.Addr, query.Hash, requester)
	case GetOwnerQuery:
		resp.Owner, resp.Err = e.GetOwner(query.Addr, requester)
	case GetUserPermissionsQuery:
		resp.Permissions, resp.Err = e.GetUserPermissions(query.Addr, query.User, requester)
	case GetPolicyQuery:
		resp.Policy, resp.Err = e.GetPolicy(query.Addr, requester)
	default:
		resp.Err = fmt.Errorf("unknown query type %T", query)
	}
	return resp
}
