package promo

// AvailableStatuses returns the loyalty statuses not yet used by rewards,
// in display order. The "add reward" selector offers only these.
func AvailableStatuses(rewards []Reward) []LoyaltyStatus {
	used := make(map[LoyaltyStatus]struct{}, len(rewards))
	for _, r := range rewards {
		used[r.LoyaltyStatus] = struct{}{}
	}
	out := make([]LoyaltyStatus, 0, len(LoyaltyStatuses))
	for _, s := range LoyaltyStatuses {
		if _, ok := used[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
