// services/economy.go
package services

// Economy tuning. These are compiled constants, not env config — changing them
// is a deploy, same as the origin contracts. All amounts are integer currency
// units, all durations are seconds, all division truncates toward zero.

const SecondsPerDay = 86400

// --- Tiers ---

const MaxTier = 5

// UpgradeCosts[n] is the burn cost to reach tier n from n-1 (index 0 unused).
var UpgradeCosts = [MaxTier + 1]int64{0, 50_000, 120_000, 250_000, 500_000, 1_000_000}

// MaintenanceCosts[n] is the periodic upkeep burn for holding tier n.
var MaintenanceCosts = [MaxTier + 1]int64{0, 5_000, 12_000, 25_000, 50_000, 100_000}

// MaintenancePeriod is how long a tier holds before it decays one step.
const MaintenancePeriod = 7 * SecondsPerDay

// Discount credits are worth 1.5× face value toward an upgrade cost, while the
// remaining gap (and the credits themselves) burn at 1.0×. The asymmetry is
// intentional; the arithmetic in upgrade() reproduces it exactly.
const (
	creditValueNum = 150
	creditValueDen = 100
)

// --- Accrual ---

// BaseYieldPerDay is the tier-0 yield an asset accrues per 24h of active game time.
const BaseYieldPerDay = 1_000

// TierMultipliers are integer percents applied to BaseYieldPerDay per tier.
var TierMultipliers = [MaxTier + 1]int64{100, 150, 200, 300, 500, 800}

// MaxClaimBatch bounds claimMultiple so a single transition stays cheap.
const MaxClaimBatch = 50

// --- Discount credits ---

const (
	CreditRateBps      = 500     // credits earned per qualifying purchase, in basis points
	MaxCredits         = 100_000 // hard cap on a player's discount credits
	CreditLockDuration = SecondsPerDay
	DustThreshold      = 1_000 // market transfers below this earn nothing
)

// --- Prize rounds ---

const (
	MinPool         = 1_000_000
	VestingDuration = 7 * SecondsPerDay
	RecoveryDelay   = 30 * SecondsPerDay
)

// --- Operator mint path ---

// OperatorMintCap is the lifetime cap on direct operator mints (liquidity
// seeding), tracked in LedgerState independently of per-player balances.
const OperatorMintCap = 10_000_000

// CollectionOf decodes the collection/company component of an asset id.
func CollectionOf(assetID uint64) uint64 {
	return assetID / 10000
}
