package actions

import "errors"

// Named sentinel errors surfaced to callers (spec §7). None of these
// are fatal to the block — a handler validates eagerly and returns one
// of these before any mutation occurs.
var (
	ErrIpDoesntExist                   = errors.New("ip set does not exist in registry")
	ErrNoPermission                    = errors.New("signer does not match ip set's derived address")
	ErrNotParent                       = errors.New("ip set is not a top-level ip set")
	ErrIpsNotRegistered                = errors.New("ip set is not registered")
	ErrNotEnoughFreeBalance            = errors.New("stake amount exceeds free balance")
	ErrBelowMinStakingAmount           = errors.New("amount below minimum staking amount")
	ErrBelowMinUnstakingAmount         = errors.New("amount below minimum unstaking amount")
	ErrStakingAmountTooLow             = errors.New("residual stake after unstake is below minimum staking amount")
	ErrMaxStakesAlreadyReached         = errors.New("account has reached the maximum number of distinct ip-set stakes")
	ErrAccountHasNoStake               = errors.New("account has no active stake in this ip set")
	ErrUnstakeValueGreaterThanStaked   = errors.New("unstake amount exceeds active staked amount")
	ErrAccountHasNoClaim               = errors.New("account has no claimable rewards")
	ErrIpsAlreadyRegistered            = errors.New("ip set is already registered")
	ErrIpsHasOutstandingStake          = errors.New("ip set has outstanding stake and cannot be unregistered")
)
