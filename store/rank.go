package store

import (
	"sort"

	"github.com/jesseboth/autocross/models"
)

// rankEntries orders entries ascending by adjusted time and truncates to
// the leaderboard size, writing 1-based ranks onto the survivors. Equal
// adjusted times order by earlier timestamp, then run id, so ranking is
// deterministic rather than whatever the underlying sort happens to do.
func rankEntries(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AdjustedTime != b.AdjustedTime {
			return a.AdjustedTime < b.AdjustedTime
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.RunID < b.RunID
	})

	if len(entries) > models.Top10Size {
		entries = entries[:models.Top10Size]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
