package domain_test

import (
	"math"
	"testing"

	librarydomain "readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/reading/domain"
)

func TestAggregateSingleSessionOnTwoHundredPageBook(t *testing.T) {
	t.Parallel()
	book := librarydomain.Book{ID: "b", TotalPages: 200, Progress: []librarydomain.RawProgressEntry{
		{StartPage: ptr(1), FinishPage: ptr(100), FinishTime: ptr("t1")},
	}}
	sessions := domain.Normalize(book)
	stats := domain.Aggregate(book, sessions)
	if stats.TotalPagesRead != 99 {
		t.Fatalf("expected 99 pages read, got %d", stats.TotalPagesRead)
	}
	if stats.CompletionPercent != 49.5 {
		t.Fatalf("expected 99/200 = 49.5%%, got %v", stats.CompletionPercent)
	}
	if got := math.Round(stats.CompletionPercent); got != 50 {
		t.Fatalf("expected 50%% when rounded to a whole percent, got %v", got)
	}
	if got := sessions[0].DisplayPercent(book.TotalPages); got != 50 {
		t.Fatalf("expected the session row to show 50%%, got %v", got)
	}
	if stats.IsCurrentlyReading {
		t.Fatalf("a finished session must not mark current reading")
	}
}

func TestAggregateTwoSessionsOnTwoHundredPageBook(t *testing.T) {
	t.Parallel()
	book := librarydomain.Book{ID: "b", TotalPages: 200, Progress: []librarydomain.RawProgressEntry{
		{StartPage: ptr(1), FinishPage: ptr(50), FinishTime: ptr("t1"), ReadingTimeMinutes: ptr(60.0), Speed: ptr(49.0)},
		{StartPage: ptr(50), FinishPage: ptr(100), FinishTime: ptr("t2"), ReadingTimeMinutes: ptr(30.0)},
	}}
	sessions := domain.Normalize(book)
	stats := domain.Aggregate(book, sessions)
	if stats.TotalPagesRead != 99 {
		t.Fatalf("expected 99 pages read, got %d", stats.TotalPagesRead)
	}
	if stats.CompletionPercent != 49.5 {
		t.Fatalf("expected 49.5%%, got %v", stats.CompletionPercent)
	}
	if stats.TotalReadingTime != 90 {
		t.Fatalf("expected 90 minutes, got %v", stats.TotalReadingTime)
	}
	if stats.AverageSpeed != 24.5 {
		t.Fatalf("missing speed must dilute the mean, got %v", stats.AverageSpeed)
	}
	if stats.IsCurrentlyReading {
		t.Fatalf("finished sessions must not mark current reading")
	}
	if got := sessions[1].DisplayPercent(book.TotalPages); got != 50 {
		t.Fatalf("expected 50%% display for second session, got %v", got)
	}
}

func TestAggregateOpenStartOnlyEntry(t *testing.T) {
	t.Parallel()
	book := librarydomain.Book{ID: "b", TotalPages: 300, Progress: []librarydomain.RawProgressEntry{{StartPage: ptr(10)}}}
	sessions := domain.Normalize(book)
	s := sessions[0]
	if s.FinishPage != 0 || s.EffectiveFinishPage() != 10 || s.Status != domain.StatusActive {
		t.Fatalf("unexpected open session %+v", s)
	}
	stats := domain.Aggregate(book, sessions)
	if stats.TotalPagesRead != 0 || stats.CompletionPercent != 0 || !stats.IsCurrentlyReading {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := s.DisplayPercent(book.TotalPages); got != 3.3 {
		t.Fatalf("expected 3.3%% display, got %v", got)
	}
	active, ok := domain.ActiveSession(sessions)
	if !ok || active.ID != "b-0" {
		t.Fatalf("expected b-0 as active session, got %+v", active)
	}
}

func TestIsCurrentlyReadingTruthTable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status     string
		finishTime *string
		want       bool
	}{
		{"active", ptr("t"), true},
		{"active", nil, true},
		{"inactive", nil, true},
		{"inactive", ptr("t"), false},
	}
	for _, tc := range cases {
		book := librarydomain.Book{ID: "b", TotalPages: 10, Progress: []librarydomain.RawProgressEntry{
			{StartPage: ptr(1), FinishPage: ptr(2), Status: ptr(tc.status), FinishTime: tc.finishTime},
		}}
		got := domain.Aggregate(book, domain.Normalize(book)).IsCurrentlyReading
		if got != tc.want {
			t.Fatalf("status=%s finishTime=%v: expected %v, got %v", tc.status, tc.finishTime != nil, tc.want, got)
		}
	}
}

func TestCompletionPercentBounds(t *testing.T) {
	t.Parallel()
	over := librarydomain.Book{ID: "b", TotalPages: 100, Progress: []librarydomain.RawProgressEntry{
		{StartPage: ptr(1), FinishPage: ptr(100), FinishTime: ptr("t")},
		{StartPage: ptr(1), FinishPage: ptr(100), FinishTime: ptr("t")},
	}}
	if got := domain.Aggregate(over, domain.Normalize(over)).CompletionPercent; got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
	zero := librarydomain.Book{ID: "b", TotalPages: 0, Progress: over.Progress}
	if got := domain.Aggregate(zero, domain.Normalize(zero)).CompletionPercent; got != 0 {
		t.Fatalf("expected 0 for books without pages, got %v", got)
	}
	backwards := librarydomain.Book{ID: "b", TotalPages: 100, Progress: []librarydomain.RawProgressEntry{{StartPage: ptr(80), FinishPage: ptr(20)}}}
	stats := domain.Aggregate(backwards, domain.Normalize(backwards))
	if stats.TotalPagesRead != 0 || stats.CompletionPercent != 0 {
		t.Fatalf("pages read must never be negative, got %+v", stats)
	}
	empty := domain.Aggregate(librarydomain.Book{TotalPages: 10}, nil)
	if empty.AverageSpeed != 0 || math.IsNaN(empty.AverageSpeed) || empty.IsCurrentlyReading {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestCompleted(t *testing.T) {
	t.Parallel()
	book := librarydomain.Book{TotalPages: 200}
	if !domain.Completed(book, 200) || !domain.Completed(book, 250) || domain.Completed(book, 199) {
		t.Fatalf("unexpected completion signal")
	}
}
