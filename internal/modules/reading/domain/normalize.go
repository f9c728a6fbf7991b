package domain

import (
	"strconv"

	librarydomain "readjourney/internal/modules/library/domain"
)

// Normalize converts the raw progress entries of book into sessions, one per
// entry and in the same order. Field aliases are resolved canonical name first.
func Normalize(book librarydomain.Book) []ReadingSession {
	if len(book.Progress) == 0 {
		return []ReadingSession{}
	}
	sessions := make([]ReadingSession, 0, len(book.Progress))
	for i, raw := range book.Progress {
		sessions = append(sessions, normalizeEntry(book.ID, i, raw))
	}
	return sessions
}

func normalizeEntry(bookID string, index int, raw librarydomain.RawProgressEntry) ReadingSession {
	s := ReadingSession{
		ID:                 bookID + "-" + strconv.Itoa(index),
		RemoteID:           firstString(raw.LegacyID, raw.ID),
		BookID:             bookID,
		StartPage:          max(0, intOr(raw.StartPage, 0)),
		FinishPage:         max(0, intOr(raw.FinishPage, 0)),
		StartTime:          firstString(raw.StartTime, raw.StartReading, raw.StartReadingTime),
		FinishTime:         firstString(raw.FinishTime, raw.FinishReading, raw.FinishReadingTime),
		ReadingTimeMinutes: floatOr(firstFloat(raw.ReadingTimeMinutes, raw.ReadingTime), 0),
		ReadingSpeed:       firstFloat(raw.Speed, raw.ReadingSpeed),
	}
	s.Status = inferStatus(raw.Status, s.FinishPage)
	return s
}

func inferStatus(raw *string, finishPage int) Status {
	if raw != nil {
		switch Status(*raw) {
		case StatusActive, StatusInactive:
			return Status(*raw)
		}
	}
	if finishPage == 0 {
		return StatusActive
	}
	return StatusInactive
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			out := *v
			return &out
		}
	}
	return nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
