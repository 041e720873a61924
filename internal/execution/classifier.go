// Package execution maps the legacy trade flags onto a canonical
// authority/intent/target classification and resolves the ledger identity
// a trade is recorded under.
package execution

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type Authority string

const (
	AuthorityUser   Authority = "USER"
	AuthoritySystem Authority = "SYSTEM"
)

type Intent string

const (
	IntentManual    Intent = "MANUAL"
	IntentAutomated Intent = "AUTOMATED"
)

type Target string

const (
	TargetMock Target = "MOCK"
	TargetReal Target = "REAL"
)

// ParseTarget returns nil for anything other than MOCK or REAL.
func ParseTarget(raw string) *Target {
	t := Target(strings.ToUpper(strings.TrimSpace(raw)))
	if t != TargetMock && t != TargetReal {
		return nil
	}
	return &t
}

// SourceManual is the trade source used by hand-placed orders.
const SourceManual = "manual"

// SystemUserID is the ledger identity for every system-operator trade.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var ErrIdentityUnresolvable = errors.New("cannot resolve execution user id")

// Metadata holds the optional flags attached to a trade intent.
// Nil means the flag was not supplied.
type Metadata struct {
	SystemOperatorMode *bool   `json:"system_operator_mode,omitempty"`
	Force              *bool   `json:"force,omitempty"`
	ExecutionWalletID  *string `json:"execution_wallet_id,omitempty"`
	IsTestMode         *bool   `json:"is_test_mode,omitempty"`
}

type Input struct {
	Source                  string   `json:"source"`
	Metadata                Metadata `json:"metadata"`
	StrategyExecutionTarget *Target  `json:"strategy_execution_target,omitempty"`
}

// flags is Input with every default applied.
type flags struct {
	manual         bool
	systemOperator bool
	hasWallet      bool
	strategyReal   bool
}

func (in Input) normalized() flags {
	f := flags{
		manual: in.Source == SourceManual,
	}
	if in.Metadata.SystemOperatorMode != nil {
		f.systemOperator = *in.Metadata.SystemOperatorMode
	}
	if in.Metadata.ExecutionWalletID != nil {
		f.hasWallet = strings.TrimSpace(*in.Metadata.ExecutionWalletID) != ""
	}
	if in.StrategyExecutionTarget != nil {
		f.strategyReal = *in.StrategyExecutionTarget == TargetReal
	}
	return f
}

type Class struct {
	Authority Authority `json:"authority"`
	Intent    Intent    `json:"intent"`
	Target    Target    `json:"target"`
}

func (c Class) IsSystemOperator() bool { return c.Authority == AuthoritySystem }
func (c Class) IsMockExecution() bool  { return c.Target == TargetMock }
func (c Class) IsManualTrade() bool    { return c.Intent == IntentManual }

// Derive classifies a trade intent. Each axis is computed independently and
// REAL dominates MOCK.
func Derive(in Input) Class {
	f := in.normalized()

	c := Class{Authority: AuthorityUser, Intent: IntentAutomated, Target: TargetMock}
	if f.manual && f.systemOperator {
		c.Authority = AuthoritySystem
	}
	if f.manual {
		c.Intent = IntentManual
	}
	if f.hasWallet || f.strategyReal || f.systemOperator {
		c.Target = TargetReal
	}
	return c
}

// ResolveUserID picks the ledger owner for a classified trade. System-operator
// trades always use SystemUserID. Otherwise the authenticated id wins over the
// caller-supplied one, and having neither is an error.
func ResolveUserID(c Class, authUserID, intentUserID string) (string, error) {
	if c.IsSystemOperator() {
		return SystemUserID.String(), nil
	}
	if id := strings.TrimSpace(authUserID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(intentUserID); id != "" {
		return id, nil
	}
	return "", ErrIdentityUnresolvable
}
