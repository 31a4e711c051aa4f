package services

import (
	"testing"
	"time"

	"game-economy-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db      *gorm.DB
	clock   *clockwork.FakeClock
	ledger  *CreditLedgerService
	tiers   *TierService
	gclock  *ClockService
	accrual *AccrualService
	rounds  *RoundService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite: one connection, or every pooled conn gets its own DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.CreditAccount{},
		&models.LedgerState{},
		&models.LedgerEntry{},
		&models.TierRecord{},
		&models.AccrualRecord{},
		&models.Round{},
		&models.PrizeClaim{},
		&models.GameClock{},
		&models.AssetMirror{},
	))

	fc := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))

	ledger := NewCreditLedgerService(db)
	ledger.Clock = fc
	tiers := NewTierService(db, ledger, nil)
	tiers.Clock = fc
	gclock := NewClockService(db)
	gclock.Clock = fc
	accrual := NewAccrualService(db, ledger, tiers, gclock, nil)
	accrual.Clock = fc
	rounds := NewRoundService(db, ledger)
	rounds.Clock = fc

	return &testEnv{
		db:      db,
		clock:   fc,
		ledger:  ledger,
		tiers:   tiers,
		gclock:  gclock,
		accrual: accrual,
		rounds:  rounds,
	}
}

func (e *testEnv) now() int64 {
	return e.clock.Now().Unix()
}

// mintAsset mirrors an asset as if the registry sync had delivered it.
func (e *testEnv) mintAsset(t *testing.T, assetID uint64, ownerID string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.AssetMirror{
		ID:         uuid.NewString(),
		AssetID:    assetID,
		OwnerID:    ownerID,
		Collection: CollectionOf(assetID),
		MintedAt:   e.now(),
	}).Error)
}

func (e *testEnv) fund(t *testing.T, playerID string, amount int64) {
	t.Helper()
	require.NoError(t, e.ledger.OperatorMint(playerID, amount))
}

// giveCredits sets a player's discount credits directly (unlocked).
func (e *testEnv) giveCredits(t *testing.T, playerID string, credits int64) {
	t.Helper()
	acct, err := e.ledger.GetAccount(playerID)
	require.NoError(t, err)
	acct.DiscountCredits = credits
	acct.CreditUnlockTime = 0
	require.NoError(t, e.db.Save(acct).Error)
}

func (e *testEnv) balance(t *testing.T, playerID string) int64 {
	t.Helper()
	acct, err := e.ledger.GetAccount(playerID)
	require.NoError(t, err)
	return acct.Balance
}

func (e *testEnv) credits(t *testing.T, playerID string) int64 {
	t.Helper()
	acct, err := e.ledger.GetAccount(playerID)
	require.NoError(t, err)
	return acct.DiscountCredits
}

// setTier writes a tier record directly, as if upgraded at the given time.
func (e *testEnv) setTier(t *testing.T, assetID uint64, tier int, maintainedAt int64) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.TierRecord{
		ID:                  uuid.NewString(),
		AssetID:             assetID,
		StoredTier:          tier,
		LastMaintenanceTime: maintainedAt,
		TierUpgradeTime:     maintainedAt,
	}).Error)
}

func days(n int64) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
