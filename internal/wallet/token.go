// Package wallet holds the shared model of the dual-token wallet: tokens,
// fixed-point amounts, balances, transaction records and the error kinds
// every component reports.
package wallet

import (
	"fmt"
	"strings"
)

// Token identifies one of the two balances an account holds.
type Token string

const (
	// Utility is the spendable token ("U").
	Utility Token = "U"
	// Governance is the stakeable token ("G").
	Governance Token = "G"
)

func (t Token) Valid() bool {
	return t == Utility || t == Governance
}

// ParseToken accepts the short symbol or the long name, case-insensitive.
func ParseToken(s string) (Token, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u", "utility":
		return Utility, nil
	case "g", "governance":
		return Governance, nil
	}
	return "", fmt.Errorf("unknown token %q", s)
}

// Direction is a swap direction between the two tokens.
type Direction string

const (
	GovernanceToUtility Direction = "G_TO_U"
	UtilityToGovernance Direction = "U_TO_G"
)

func (d Direction) Valid() bool {
	return d == GovernanceToUtility || d == UtilityToGovernance
}

// Source is the token debited by a swap in this direction.
func (d Direction) Source() Token {
	if d == UtilityToGovernance {
		return Utility
	}
	return Governance
}

// Destination is the token credited by a swap in this direction.
func (d Direction) Destination() Token {
	if d == UtilityToGovernance {
		return Governance
	}
	return Utility
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == UtilityToGovernance {
		return GovernanceToUtility
	}
	return UtilityToGovernance
}

func (d Direction) String() string {
	return fmt.Sprintf("%s → %s", d.Source(), d.Destination())
}

// ParseDirection understands "G_TO_U", "g2u", "g->u" and their U→G forms.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g_to_u", "g2u", "g->u", "gu":
		return GovernanceToUtility, nil
	case "u_to_g", "u2g", "u->g", "ug":
		return UtilityToGovernance, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}
