package out

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	readingout "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/markdown"
)

const (
	DiarySchemaVersion = 1

	sessionsSection = "sessions"
)

// VaultDiaryStore writes one markdown note per book. The sessions table lives in
// a managed block; anything the reader wrote around it is kept on re-export.
type VaultDiaryStore struct {
	dir   string
	clock clock.Clock
}

var _ readingout.DiaryWriter = (*VaultDiaryStore)(nil)

func NewVaultDiaryStore(dir string, clock clock.Clock) *VaultDiaryStore {
	return &VaultDiaryStore{dir: dir, clock: clock}
}

func (s *VaultDiaryStore) WriteDiary(_ context.Context, entry readingout.DiaryEntry) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diary dir: %w", err)
	}
	path := filepath.Join(s.dir, markdown.FileName(entry.Book.Title)+".md")

	note := markdown.Note{Body: fmt.Sprintf("# %s\n\n%s\n\n## Notes\n", entry.Book.Title, entry.Book.Author)}
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		prev, parseErr := markdown.Parse(string(existing))
		if parseErr != nil {
			return "", fmt.Errorf("parse diary %s: %w", path, parseErr)
		}
		note.Body = prev.Body
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read diary: %w", err)
	}

	note.Meta = map[string]any{
		"schema_version":       DiarySchemaVersion,
		"book_id":              entry.Book.ID,
		"title":                entry.Book.Title,
		"author":               entry.Book.Author,
		"total_pages":          entry.Book.TotalPages,
		"status":               string(entry.Book.Status),
		"pages_read":           entry.Stats.TotalPagesRead,
		"completion_percent":   roundTenth(entry.Stats.CompletionPercent),
		"reading_time_minutes": entry.Stats.TotalReadingTime,
		"average_speed":        roundTenth(entry.Stats.AverageSpeed),
		"currently_reading":    entry.Stats.IsCurrentlyReading,
		"exported_at":          s.clock.Now().Format("2006-01-02T15:04:05Z07:00"),
	}
	note.SetSection(sessionsSection, renderSessions(entry))
	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write diary: %w", err)
	}
	return path, nil
}

func renderSessions(entry readingout.DiaryEntry) string {
	if len(entry.Sessions) == 0 {
		return "_No reading sessions yet._"
	}
	var b strings.Builder
	b.WriteString("| # | Started | Finished | Pages | Read | % | Minutes | Pages/min |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|")
	for i, s := range entry.Sessions {
		finished := s.FinishTime
		if finished == "" {
			finished = "in progress"
		}
		speed := "-"
		if s.ReadingSpeed != nil {
			speed = fmt.Sprintf("%.1f", *s.ReadingSpeed)
		}
		fmt.Fprintf(&b, "\n| %d | %s | %s | %d-%d | %d | %.1f | %.0f | %s |",
			i+1, s.StartTime, finished, s.StartPage, s.EffectiveFinishPage(), s.PagesRead(),
			s.DisplayPercent(entry.Book.TotalPages), s.ReadingTimeMinutes, speed)
	}
	return b.String()
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
