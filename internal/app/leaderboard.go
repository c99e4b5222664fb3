package app

import (
	"sort"

	"quiz-night-service/internal/domain"
)

// Leaderboard ranks players by score, highest first. Equal scores keep their
// input order and still get distinct consecutive ranks.
func Leaderboard(players []*domain.Player) []domain.LeaderboardRow {
	sorted := make([]*domain.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	rows := make([]domain.LeaderboardRow, 0, len(sorted))
	for i, p := range sorted {
		rows = append(rows, domain.LeaderboardRow{Rank: i + 1, Name: p.Name, Score: p.Score})
	}
	return rows
}

// scoreLedger awards one point per correct entry whose player is still in the room.
func scoreLedger(l *Ledger, players map[string]*domain.Player) {
	for _, e := range l.Entries() {
		if !e.Correct {
			continue
		}
		if p, ok := players[e.ConnID]; ok {
			p.Score++
		}
	}
}
