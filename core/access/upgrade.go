package access

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// AuthorizeUpgrade is the gate release tooling must pass before swapping the
// logic operating over persisted ledger state. The replacement mechanism
// itself belongs to the hosting environment; this only answers whether the
// caller may trigger it. Fails closed for any principal not currently
// holding RoleUpgrader, including one whose role was revoked.
func (r *Registry) AuthorizeUpgrade(caller common.Address, newImplementation common.Address) error {
	if !r.HasRole(caller, RoleUpgrader) {
		r.log.Warn("upgrade authorization rejected",
			zap.String("caller", caller.Hex()),
			zap.String("new_implementation", newImplementation.Hex()))
		return fmt.Errorf("%w: upgrader role required", ErrUnauthorized)
	}

	r.log.Info("upgrade authorized",
		zap.String("caller", caller.Hex()),
		zap.String("new_implementation", newImplementation.Hex()))
	return nil
}
