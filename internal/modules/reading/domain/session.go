package domain

import (
	"math"
	"strconv"
	"strings"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ReadingSession is derived from one raw progress entry. It is never persisted.
type ReadingSession struct {
	// ID is "<bookId>-<index>", stable for a given book payload.
	ID string
	// RemoteID is the store's own id for the entry, when it sent one.
	RemoteID  string
	BookID    string
	StartPage int
	// FinishPage is 0 when the entry has no finish page yet.
	FinishPage int
	StartTime  string
	// FinishTime is empty while the session is open.
	FinishTime         string
	ReadingTimeMinutes float64
	// ReadingSpeed is nil when the store did not report a speed.
	ReadingSpeed *float64
	Status       Status
}

// EffectiveFinishPage is the finish page used for counting and display: an
// unset finish page counts as the start page, so an open session reads zero pages.
func (s ReadingSession) EffectiveFinishPage() int {
	if s.FinishPage <= 0 {
		return s.StartPage
	}
	return s.FinishPage
}

func (s ReadingSession) PagesRead() int {
	return max(0, s.EffectiveFinishPage()-s.StartPage)
}

// Open reports whether the session counts as current reading.
func (s ReadingSession) Open() bool {
	return s.Status == StatusActive || s.FinishTime == ""
}

func (s ReadingSession) Speed() float64 {
	if s.ReadingSpeed == nil {
		return 0
	}
	return *s.ReadingSpeed
}

// DisplayPercent is the share of the book reached at the end of the session,
// rounded to one decimal.
func (s ReadingSession) DisplayPercent(totalPages int) float64 {
	if totalPages <= 0 {
		return 0
	}
	return roundTenth(float64(s.EffectiveFinishPage()) * 100 / float64(totalPages))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// SplitSessionID parses a derived "<bookId>-<index>" id. Book ids may contain
// dashes, so the index is taken after the last one.
func SplitSessionID(id string) (bookID string, index int, ok bool) {
	cut := strings.LastIndex(id, "-")
	if cut <= 0 || cut == len(id)-1 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[cut+1:])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return id[:cut], index, true
}
