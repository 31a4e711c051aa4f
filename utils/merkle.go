// utils/merkle.go
package utils

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// Allow-list trees are plain sha256 merkle trees over (round, player, amount)
// leaves. Two deliberate choices carried through the whole system:
//
//   - Leaves are double-hashed. Internal nodes are single sha256 over a sorted
//     pair, so a leaf digest can never be confused for (or forged from) an
//     internal node.
//   - The round id is part of the leaf, so a proof issued for one round can
//     never be replayed against another round's root.
//
// Sorted-pair hashing means proofs carry no left/right index bits.

// AllowlistEntry is one (player, amount) allocation in a round's tree.
type AllowlistEntry struct {
	PlayerID string `json:"player_id"`
	Amount   int64  `json:"amount"`
}

// LeafHash computes the double-hashed leaf for a (round, player, amount) triple.
func LeafHash(roundID, playerID string, amount int64) [32]byte {
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], uint64(amount))

	h := sha256.New()
	h.Write([]byte(roundID))
	h.Write([]byte{0})
	h.Write([]byte(playerID))
	h.Write([]byte{0})
	h.Write(amt[:])
	inner := h.Sum(nil)

	return sha256.Sum256(inner)
}

func hashPair(a, b [32]byte) [32]byte {
	h := sha256.New()
	// Sorted pair: smaller digest first.
	if lessDigest(a, b) {
		h.Write(a[:])
		h.Write(b[:])
	} else {
		h.Write(b[:])
		h.Write(a[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func lessDigest(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// VerifyProof folds the proof path into the leaf and compares against the
// expected hex-encoded root.
func VerifyProof(rootHex string, leaf [32]byte, proof []string) bool {
	node := leaf
	for _, sibHex := range proof {
		sib, err := hex.DecodeString(sibHex)
		if err != nil || len(sib) != 32 {
			return false
		}
		var s [32]byte
		copy(s[:], sib)
		node = hashPair(node, s)
	}
	return hex.EncodeToString(node[:]) == rootHex
}

// BuildAllowlistRoot computes the root for a round's entries. This is normally
// the job of the off-chain allow-list builder; it lives here so operators and
// tests can reproduce roots locally. Entries are sorted by player id first so
// the root is independent of input order.
func BuildAllowlistRoot(roundID string, entries []AllowlistEntry) string {
	leaves := sortedLeaves(roundID, entries)
	if len(leaves) == 0 {
		return ""
	}
	for len(leaves) > 1 {
		var next [][32]byte
		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				// Odd node promotes unchanged.
				next = append(next, leaves[i])
			} else {
				next = append(next, hashPair(leaves[i], leaves[i+1]))
			}
		}
		leaves = next
	}
	return hex.EncodeToString(leaves[0][:])
}

// BuildAllowlistProof returns the sibling path for one player's leaf, or nil
// if the player is not in the entries.
func BuildAllowlistProof(roundID string, entries []AllowlistEntry, playerID string) []string {
	sorted := append([]AllowlistEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PlayerID < sorted[j].PlayerID })

	idx := -1
	leaves := make([][32]byte, len(sorted))
	for i, e := range sorted {
		leaves[i] = LeafHash(roundID, e.PlayerID, e.Amount)
		if e.PlayerID == playerID {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}

	proof := []string{}
	for len(leaves) > 1 {
		var next [][32]byte
		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				next = append(next, leaves[i])
				if i == idx {
					idx = len(next) - 1
				}
				continue
			}
			if i == idx || i+1 == idx {
				sib := i
				if i == idx {
					sib = i + 1
				}
				proof = append(proof, hex.EncodeToString(leaves[sib][:]))
				next = append(next, hashPair(leaves[i], leaves[i+1]))
				idx = len(next) - 1
				continue
			}
			next = append(next, hashPair(leaves[i], leaves[i+1]))
		}
		leaves = next
	}
	return proof
}

func sortedLeaves(roundID string, entries []AllowlistEntry) [][32]byte {
	sorted := append([]AllowlistEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PlayerID < sorted[j].PlayerID })
	leaves := make([][32]byte, len(sorted))
	for i, e := range sorted {
		leaves[i] = LeafHash(roundID, e.PlayerID, e.Amount)
	}
	return leaves
}
