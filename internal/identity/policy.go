package identity

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
)

const (
	consoleObject = "console"
	accessAction  = "access"
)

// The matcher compares subjects byte-for-byte, so allow-list entries are
// case-sensitive.
const adminModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// AdminPolicy is the admin allow-list.
type AdminPolicy struct {
	enforcer *casbin.Enforcer
}

func NewAdminPolicy(emails []string) (*AdminPolicy, error) {
	m, err := casbinmodel.NewModelFromString(adminModel)
	if err != nil {
		return nil, fmt.Errorf("load admin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create admin enforcer: %w", err)
	}

	for _, email := range emails {
		if email == "" {
			continue
		}
		if _, err := enforcer.AddPolicy(email, consoleObject, accessAction); err != nil {
			return nil, fmt.Errorf("add admin %q: %w", email, err)
		}
	}

	return &AdminPolicy{enforcer: enforcer}, nil
}

func (p *AdminPolicy) Allows(email string) bool {
	if p == nil || email == "" {
		return false
	}
	allowed, err := p.enforcer.Enforce(email, consoleObject, accessAction)
	if err != nil {
		return false
	}
	return allowed
}
