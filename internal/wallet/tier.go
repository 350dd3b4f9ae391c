package wallet

import (
	"fmt"
	"strings"
)

// Tier names a staking lock term.
type Tier string

const (
	TierFlexible Tier = "flexible"
	TierShort    Tier = "short"
	TierLong     Tier = "long"
)

// ParseTier accepts the tier name or its lock length in days ("0", "30", "90").
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flexible", "flex", "0":
		return TierFlexible, nil
	case "short", "30":
		return TierShort, nil
	case "long", "90":
		return TierLong, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}
