package domain

import librarydomain "readjourney/internal/modules/library/domain"

type Stats struct {
	TotalPagesRead int
	// CompletionPercent is within [0, 100].
	CompletionPercent float64
	TotalReadingTime  float64
	// AverageSpeed averages over every session; a missing speed counts as 0.
	AverageSpeed       float64
	IsCurrentlyReading bool
	Sessions           int
}

func Aggregate(book librarydomain.Book, sessions []ReadingSession) Stats {
	stats := Stats{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return stats
	}
	var speedSum float64
	for _, s := range sessions {
		stats.TotalPagesRead += s.PagesRead()
		stats.TotalReadingTime += s.ReadingTimeMinutes
		speedSum += s.Speed()
		if s.Open() {
			stats.IsCurrentlyReading = true
		}
	}
	stats.AverageSpeed = speedSum / float64(len(sessions))
	if book.TotalPages > 0 {
		pct := float64(stats.TotalPagesRead) * 100 / float64(book.TotalPages)
		stats.CompletionPercent = min(100, max(0, pct))
	}
	return stats
}

// Completed reports whether finishing at page finishes the book.
func Completed(book librarydomain.Book, page int) bool {
	return book.TotalPages > 0 && page >= book.TotalPages
}

// ActiveSession returns the last open session, if any.
func ActiveSession(sessions []ReadingSession) (ReadingSession, bool) {
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Open() {
			return sessions[i], true
		}
	}
	return ReadingSession{}, false
}
