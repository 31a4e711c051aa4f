package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEntries(n int) []AllowlistEntry {
	entries := make([]AllowlistEntry, n)
	for i := range entries {
		entries[i] = AllowlistEntry{
			PlayerID: fmt.Sprintf("player-%02d", i),
			Amount:   int64((i + 1) * 10_000),
		}
	}
	return entries
}

func TestProofRoundTrip(t *testing.T) {
	// Odd and even tree widths exercise both the promoted-node path and the
	// fully paired one.
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			entries := sampleEntries(n)
			root := BuildAllowlistRoot("round-1", entries)
			require.NotEmpty(t, root)

			for _, e := range entries {
				proof := BuildAllowlistProof("round-1", entries, e.PlayerID)
				leaf := LeafHash("round-1", e.PlayerID, e.Amount)
				require.True(t, VerifyProof(root, leaf, proof),
					"proof for %s should verify", e.PlayerID)
			}
		})
	}
}

func TestProofRejectsTamperedLeaves(t *testing.T) {
	entries := sampleEntries(5)
	root := BuildAllowlistRoot("round-1", entries)
	proof := BuildAllowlistProof("round-1", entries, "player-02")

	t.Run("wrong amount", func(t *testing.T) {
		leaf := LeafHash("round-1", "player-02", 999_999)
		require.False(t, VerifyProof(root, leaf, proof))
	})

	t.Run("wrong player", func(t *testing.T) {
		leaf := LeafHash("round-1", "player-03", 30_000)
		require.False(t, VerifyProof(root, leaf, proof))
	})

	t.Run("wrong round", func(t *testing.T) {
		leaf := LeafHash("round-2", "player-02", 30_000)
		require.False(t, VerifyProof(root, leaf, proof))
	})
}

func TestProofsAreRoundBound(t *testing.T) {
	entries := sampleEntries(4)
	rootA := BuildAllowlistRoot("round-a", entries)
	rootB := BuildAllowlistRoot("round-b", entries)
	require.NotEqual(t, rootA, rootB)

	// A complete, valid proof for round A never verifies against round B.
	proofA := BuildAllowlistProof("round-a", entries, "player-01")
	leafB := LeafHash("round-b", "player-01", 20_000)
	require.False(t, VerifyProof(rootB, leafB, proofA))
}

func TestRootIsOrderIndependent(t *testing.T) {
	entries := sampleEntries(4)
	shuffled := []AllowlistEntry{entries[2], entries[0], entries[3], entries[1]}
	require.Equal(t,
		BuildAllowlistRoot("round-1", entries),
		BuildAllowlistRoot("round-1", shuffled))
}

func TestBuildProofUnknownPlayer(t *testing.T) {
	entries := sampleEntries(3)
	require.Nil(t, BuildAllowlistProof("round-1", entries, "nobody"))
}

func TestEmptyInputs(t *testing.T) {
	require.Empty(t, BuildAllowlistRoot("round-1", nil))
	leaf := LeafHash("round-1", "player-00", 10_000)
	require.False(t, VerifyProof("", leaf, nil))
	require.False(t, VerifyProof("zz-not-hex", leaf, nil))
}
