package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/talentsift/recruitex-backend/internal/repository"
)

// Snapshot fetch size. The live monitor is a dashboard, not a paging API.
const monitorSnapshotLimit = 500

// MonitorService assembles live proctoring snapshots for the admin SSE feed.
type MonitorService struct {
	sessions *repository.ExamSessionRepository
	logs     *repository.ActivityLogRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(sessions *repository.ExamSessionRepository, logs *repository.ActivityLogRepository) *MonitorService {
	return &MonitorService{sessions: sessions, logs: logs}
}

// MonitorRow is one active session in the snapshot.
type MonitorRow struct {
	repository.SubmissionRow
	EventCount int64 `json:"event_count"`
}

// LiveSnapshot is the monitor's view of every in-progress exam.
type LiveSnapshot struct {
	Sessions    []MonitorRow `json:"sessions"`
	TotalActive int64        `json:"total_active"`
	TotalEvents int64        `json:"total_events"`
}

// GetSnapshot returns every active session with its recorded event count.
// The two fetches are independent and run concurrently; event counts are
// best-effort while the session list is critical.
func (s *MonitorService) GetSnapshot(ctx context.Context) (*LiveSnapshot, error) {
	var (
		rows     []repository.SubmissionRow
		total    int64
		counts   []repository.SessionEventCount
		rowsErr  error
		countErr error
		wg       sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, total, rowsErr = s.sessions.ListSubmissions(ctx,
			repository.SubmissionFilter{ActiveOnly: true}, monitorSnapshotLimit, 0)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, countErr = s.logs.CountActiveSessionEvents(ctx)
	}()

	wg.Wait()

	if rowsErr != nil {
		return nil, rowsErr
	}

	countBySession := make(map[uuid.UUID]int64, len(counts))
	var totalEvents int64
	if countErr == nil {
		for _, c := range counts {
			countBySession[c.SessionID] = c.Count
			totalEvents += c.Count
		}
	}

	snapshot := &LiveSnapshot{
		Sessions:    make([]MonitorRow, 0, len(rows)),
		TotalActive: total,
		TotalEvents: totalEvents,
	}
	for _, row := range rows {
		snapshot.Sessions = append(snapshot.Sessions, MonitorRow{
			SubmissionRow: row,
			EventCount:    countBySession[row.SessionID],
		})
	}
	return snapshot, nil
}
