package services

import (
	"testing"

	"game-economy-system/models"
	"game-economy-system/utils"

	"github.com/stretchr/testify/require"
)

// finalizedRound opens and finalizes a round over the given allocations,
// returning the round plus a proof lookup for each player.
func finalizedRound(t *testing.T, env *testEnv, pool int64, entries []utils.AllowlistEntry) (*models.Round, map[string][]string) {
	t.Helper()
	round, err := env.rounds.StartRound("Season Finals", pool)
	require.NoError(t, err)

	root := utils.BuildAllowlistRoot(round.ID, entries)
	round, err = env.rounds.FinalizeRound(round.ID, root, nil)
	require.NoError(t, err)

	proofs := make(map[string][]string, len(entries))
	for _, e := range entries {
		proofs[e.PlayerID] = utils.BuildAllowlistProof(round.ID, entries, e.PlayerID)
	}
	return round, proofs
}

func TestStartRound(t *testing.T) {
	env := newTestEnv(t)

	t.Run("opens with a funded pool and a derived slug", func(t *testing.T) {
		round, err := env.rounds.StartRound("Season Finals", 2_000_000)
		require.NoError(t, err)
		require.Equal(t, int64(2_000_000), round.Pool)
		require.Equal(t, int64(0), round.PaidOut)
		require.False(t, round.Finalized)
		require.Contains(t, round.Slug, "season-finals-")
	})

	t.Run("rejects pools below the minimum", func(t *testing.T) {
		_, err := env.rounds.StartRound("Tiny", MinPool-1)
		require.ErrorIs(t, err, ErrPoolTooSmall)
	})
}

func TestAddFunds(t *testing.T) {
	env := newTestEnv(t)
	round, err := env.rounds.StartRound("Season Finals", 2_000_000)
	require.NoError(t, err)

	require.NoError(t, env.rounds.AddFunds(round.ID, 500_000))
	got, err := env.rounds.GetRound(round.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2_500_000), got.Pool)

	_, err = env.rounds.FinalizeRound(round.ID, "abcd", nil)
	require.NoError(t, err)
	require.ErrorIs(t, env.rounds.AddFunds(round.ID, 1), ErrRoundFinalized)

	require.ErrorIs(t, env.rounds.AddFunds("no-such-round", 1), ErrRoundNotFound)
}

func TestFinalizeRound(t *testing.T) {
	env := newTestEnv(t)

	t.Run("is one-way", func(t *testing.T) {
		round, err := env.rounds.StartRound("Season Finals", 2_000_000)
		require.NoError(t, err)

		_, err = env.rounds.FinalizeRound(round.ID, "deadbeef", nil)
		require.NoError(t, err)
		_, err = env.rounds.FinalizeRound(round.ID, "deadbeef", nil)
		require.ErrorIs(t, err, ErrRoundFinalized)
	})

	t.Run("derives the root from a supplied entry list", func(t *testing.T) {
		round, err := env.rounds.StartRound("Derived", 2_000_000)
		require.NoError(t, err)

		entries := []utils.AllowlistEntry{
			{PlayerID: "alice", Amount: 100_000},
			{PlayerID: "bob", Amount: 50_000},
		}
		finalized, err := env.rounds.FinalizeRound(round.ID, "", entries)
		require.NoError(t, err)
		require.Equal(t, utils.BuildAllowlistRoot(round.ID, entries), finalized.AllowlistRoot)
	})

	t.Run("rejects an empty root", func(t *testing.T) {
		round, err := env.rounds.StartRound("Empty", 2_000_000)
		require.NoError(t, err)
		_, err = env.rounds.FinalizeRound(round.ID, "", nil)
		require.ErrorIs(t, err, ErrEmptyRoot)
	})
}

func TestClaimPrize(t *testing.T) {
	entries := []utils.AllowlistEntry{
		{PlayerID: "alice", Amount: 700_000},
		{PlayerID: "bob", Amount: 300_000},
		{PlayerID: "carol", Amount: 500_000},
	}

	t.Run("valid proof opens a vesting schedule", func(t *testing.T) {
		env := newTestEnv(t)
		round, proofs := finalizedRound(t, env, 2_000_000, entries)

		claim, err := env.rounds.ClaimPrize(round.ID, "alice", 700_000, proofs["alice"])
		require.NoError(t, err)
		require.Equal(t, int64(700_000), claim.TotalAmount)
		require.Equal(t, int64(0), claim.ClaimedAmount)
		require.Equal(t, env.now(), claim.VestingStart)
	})

	t.Run("claims are one-time per player per round", func(t *testing.T) {
		env := newTestEnv(t)
		round, proofs := finalizedRound(t, env, 2_000_000, entries)

		_, err := env.rounds.ClaimPrize(round.ID, "alice", 700_000, proofs["alice"])
		require.NoError(t, err)
		_, err = env.rounds.ClaimPrize(round.ID, "alice", 700_000, proofs["alice"])
		require.ErrorIs(t, err, ErrAlreadyClaimed)
	})

	t.Run("wrong amount fails the proof", func(t *testing.T) {
		env := newTestEnv(t)
		round, proofs := finalizedRound(t, env, 2_000_000, entries)

		_, err := env.rounds.ClaimPrize(round.ID, "alice", 999_999, proofs["alice"])
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("a proof from another round does not replay", func(t *testing.T) {
		env := newTestEnv(t)
		_, proofsA := finalizedRound(t, env, 2_000_000, entries)

		// Round B commits to the same allocation set, so the tree shape is
		// identical; only the round id in the leaves differs.
		roundB, err := env.rounds.StartRound("Round B", 2_000_000)
		require.NoError(t, err)
		_, err = env.rounds.FinalizeRound(roundB.ID, utils.BuildAllowlistRoot(roundB.ID, entries), nil)
		require.NoError(t, err)

		_, err = env.rounds.ClaimPrize(roundB.ID, "alice", 700_000, proofsA["alice"])
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("claims need a finalized round", func(t *testing.T) {
		env := newTestEnv(t)
		round, err := env.rounds.StartRound("Open", 2_000_000)
		require.NoError(t, err)

		_, err = env.rounds.ClaimPrize(round.ID, "alice", 700_000, nil)
		require.ErrorIs(t, err, ErrRoundNotFinalized)
	})
}

func TestVesting(t *testing.T) {
	entries := []utils.AllowlistEntry{{PlayerID: "alice", Amount: 700_000}}

	openClaim := func(t *testing.T, env *testEnv) *models.Round {
		t.Helper()
		round, proofs := finalizedRound(t, env, 2_000_000, entries)
		_, err := env.rounds.ClaimPrize(round.ID, "alice", 700_000, proofs["alice"])
		require.NoError(t, err)
		return round
	}

	t.Run("vests linearly and completes at the full duration", func(t *testing.T) {
		env := newTestEnv(t)
		round := openClaim(t, env)

		vested, withdrawable, err := env.rounds.VestedAmount(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(0), vested)
		require.Equal(t, int64(0), withdrawable)

		env.clock.Advance(days(7) / 2)
		vested, _, err = env.rounds.VestedAmount(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(350_000), vested)

		env.clock.Advance(days(7)) // well past the end
		vested, _, err = env.rounds.VestedAmount(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(700_000), vested)
	})

	t.Run("withdrawals pay the vested delta and never double-pay", func(t *testing.T) {
		env := newTestEnv(t)
		round := openClaim(t, env)

		_, err := env.rounds.WithdrawVested(round.ID, "alice")
		require.ErrorIs(t, err, ErrNothingToWithdraw)

		env.clock.Advance(days(7) / 2)
		paid, err := env.rounds.WithdrawVested(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(350_000), paid)

		// Nothing new has vested since.
		_, err = env.rounds.WithdrawVested(round.ID, "alice")
		require.ErrorIs(t, err, ErrNothingToWithdraw)

		env.clock.Advance(days(4))
		paid, err = env.rounds.WithdrawVested(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(350_000), paid)

		got, err := env.rounds.GetRound(round.ID)
		require.NoError(t, err)
		require.Equal(t, int64(700_000), got.PaidOut)
	})

	t.Run("without a claim there is nothing to vest", func(t *testing.T) {
		env := newTestEnv(t)
		round, _ := finalizedRound(t, env, 2_000_000, entries)
		_, _, err := env.rounds.VestedAmount(round.ID, "bob")
		require.ErrorIs(t, err, ErrNoClaim)
		_, err = env.rounds.WithdrawVested(round.ID, "bob")
		require.ErrorIs(t, err, ErrNoClaim)
	})
}

func TestFundIsolation(t *testing.T) {
	t.Run("withdrawals clamp to the round's own remaining pool", func(t *testing.T) {
		env := newTestEnv(t)
		// The allow-list over-allocates relative to the pool. The clamp bounds
		// the damage to this round.
		entries := []utils.AllowlistEntry{
			{PlayerID: "alice", Amount: 900_000},
			{PlayerID: "bob", Amount: 900_000},
		}
		round, proofs := finalizedRound(t, env, 1_000_000, entries)

		_, err := env.rounds.ClaimPrize(round.ID, "alice", 900_000, proofs["alice"])
		require.NoError(t, err)
		_, err = env.rounds.ClaimPrize(round.ID, "bob", 900_000, proofs["bob"])
		require.NoError(t, err)

		env.clock.Advance(days(8))
		paid, err := env.rounds.WithdrawVested(round.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(900_000), paid)

		// Bob's fully-vested claim only gets what the round still holds.
		paid, err = env.rounds.WithdrawVested(round.ID, "bob")
		require.NoError(t, err)
		require.Equal(t, int64(100_000), paid)

		_, err = env.rounds.WithdrawVested(round.ID, "bob")
		require.ErrorIs(t, err, ErrPoolExhausted)

		got, err := env.rounds.GetRound(round.ID)
		require.NoError(t, err)
		require.Equal(t, got.Pool, got.PaidOut)
	})

	t.Run("an exhausted round never draws on a neighbor", func(t *testing.T) {
		env := newTestEnv(t)
		entries := []utils.AllowlistEntry{{PlayerID: "alice", Amount: 2_000_000}}
		roundA, proofsA := finalizedRound(t, env, 1_000_000, entries)
		roundB, _ := finalizedRound(t, env, 5_000_000, entries)

		_, err := env.rounds.ClaimPrize(roundA.ID, "alice", 2_000_000, proofsA["alice"])
		require.NoError(t, err)
		env.clock.Advance(days(8))

		paid, err := env.rounds.WithdrawVested(roundA.ID, "alice")
		require.NoError(t, err)
		require.Equal(t, int64(1_000_000), paid) // clamped to round A's pool

		gotB, err := env.rounds.GetRound(roundB.ID)
		require.NoError(t, err)
		require.Equal(t, int64(0), gotB.PaidOut)
		require.Equal(t, int64(5_000_000), gotB.Pool)
	})
}

func TestSweepUnclaimed(t *testing.T) {
	entries := []utils.AllowlistEntry{{PlayerID: "alice", Amount: 700_000}}

	t.Run("recovers the unpaid remainder after the delay", func(t *testing.T) {
		env := newTestEnv(t)
		round, proofs := finalizedRound(t, env, 2_000_000, entries)
		_, err := env.rounds.ClaimPrize(round.ID, "alice", 700_000, proofs["alice"])
		require.NoError(t, err)
		env.clock.Advance(days(8))
		_, err = env.rounds.WithdrawVested(round.ID, "alice")
		require.NoError(t, err)

		env.clock.Advance(days(23)) // past the 30-day recovery delay
		recovered, err := env.rounds.SweepUnclaimed(round.ID, "treasury")
		require.NoError(t, err)
		require.Equal(t, int64(1_300_000), recovered)

		got, err := env.rounds.GetRound(round.ID)
		require.NoError(t, err)
		require.Equal(t, got.Pool, got.PaidOut)
	})

	t.Run("too early", func(t *testing.T) {
		env := newTestEnv(t)
		round, _ := finalizedRound(t, env, 2_000_000, entries)
		env.clock.Advance(days(29))

		_, err := env.rounds.SweepUnclaimed(round.ID, "treasury")
		require.ErrorIs(t, err, ErrSweepTooEarly)
	})

	t.Run("never sweeps twice", func(t *testing.T) {
		env := newTestEnv(t)
		round, _ := finalizedRound(t, env, 2_000_000, entries)
		env.clock.Advance(days(31))

		_, err := env.rounds.SweepUnclaimed(round.ID, "treasury")
		require.NoError(t, err)
		_, err = env.rounds.SweepUnclaimed(round.ID, "treasury")
		require.ErrorIs(t, err, ErrNothingToRecover)
	})

	t.Run("open rounds cannot be swept", func(t *testing.T) {
		env := newTestEnv(t)
		round, err := env.rounds.StartRound("Open", 2_000_000)
		require.NoError(t, err)
		env.clock.Advance(days(31))

		_, err = env.rounds.SweepUnclaimed(round.ID, "treasury")
		require.ErrorIs(t, err, ErrRoundNotFinalized)
	})
}

func TestSweepableRounds(t *testing.T) {
	env := newTestEnv(t)
	entries := []utils.AllowlistEntry{{PlayerID: "alice", Amount: 700_000}}

	stale, _ := finalizedRound(t, env, 2_000_000, entries)
	env.clock.Advance(days(31))
	finalizedRound(t, env, 2_000_000, entries) // fresh, not yet sweepable

	rounds, err := env.rounds.SweepableRounds()
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Equal(t, stale.ID, rounds[0].ID)

	// A swept round drops off the audit list.
	_, err = env.rounds.SweepUnclaimed(stale.ID, "treasury")
	require.NoError(t, err)
	rounds, err = env.rounds.SweepableRounds()
	require.NoError(t, err)
	require.Empty(t, rounds)
}
