package core

import (
	"slices"

	"github.com/dkeye/Whisper/internal/domain"
)

// presenceOrder inspects only its own operand: online sorts before whatever
// it is compared to, anything else sorts after.
func presenceOrder(u domain.User) int {
	if u.Online() {
		return -1
	}
	return 1
}

// ReorderUsers moves online users towards the front of a presence snapshot.
//
// The comparison never looks at the second operand, so it is not a strict
// weak ordering and no secondary key breaks ties. The outcome is pinned by
// the algorithm: a binary insertion pass where the element being inserted is
// the inspected operand. Online users end up first in reverse delivery
// order, offline users follow in delivery order.
func ReorderUsers(users []domain.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		lo, hi := 0, len(out)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			if presenceOrder(u) < 0 {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		out = slices.Insert(out, lo, u)
	}
	return out
}
