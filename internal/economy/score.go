package economy

// LiveScore is the in-progress leaderboard value ("K"). It ignores drift.
func LiveScore(w Wallet) int {
	score := w.Tokens
	for _, r := range Resources {
		score += w.Holdings.Get(r) * Price(r)
	}
	return score
}

// FinalScore is the settlement value used when a game finishes: every unit is
// valued at its nominal price plus the resource's current drift.
func FinalScore(w Wallet, m Market) int {
	score := w.Tokens
	for _, r := range Resources {
		score += w.Holdings.Get(r) * (Price(r) + m.Drift(r))
	}
	return score
}
