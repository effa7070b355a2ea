package services

import (
	"context"
	"sort"
	"sync"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/ports"
)

// memStore is an in-memory ports.Store with the same guarded-update
// semantics as the Postgres store. Transactions are serialized and roll
// back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[string]models.User
	reports map[string]models.Report
	logs    map[string]models.PickupLog
	tokens  map[string][]string
}

var _ ports.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]models.User{},
		reports: map[string]models.Report{},
		logs:    map[string]models.PickupLog{},
		tokens:  map[string][]string{},
	}
}

func (m *memStore) addUser(id string, role models.Role, active bool, tokens ...string) {
	m.users[id] = models.User{ID: id, Email: id + "@example.com", Name: id, Role: role, IsActive: active}
	if len(tokens) > 0 {
		m.tokens[id] = tokens
	}
}

func (m *memStore) addReport(r models.Report) {
	if r.Status == "" {
		r.Status = models.ReportStatusPending
	}
	if r.Urgency == "" {
		r.Urgency = models.UrgencyMedium
	}
	m.reports[r.ID] = r
}

func (m *memStore) addLog(pl models.PickupLog) {
	m.logs[pl.ID] = pl
}

func (m *memStore) report(id string) models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id]
}

func (m *memStore) pickup(id string) *models.PickupLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl := m.logs[id]
	return &pl
}

func (m *memStore) openLogCount(reportID, collectorID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, pl := range m.logs {
		if pl.ReportID == reportID && pl.CollectorID == collectorID && pl.IsOpen() {
			n++
		}
	}
	return n
}

func (m *memStore) InTx(ctx context.Context, fn func(tx ports.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	users, reports, logs := copyMap(m.users), copyMap(m.reports), copyMap(m.logs)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.reports, m.logs = users, reports, logs
		m.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) CreateReport(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = *r
	return nil
}

func (m *memStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "report", ID: id}
	}
	return &r, nil
}

func (m *memStore) FindReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Report{}
	for _, r := range m.reports {
		if q.ReporterID != "" && r.ReporterID != q.ReporterID {
			continue
		}
		if q.CollectorID != "" && (r.AssignedCollectorID == nil || *r.AssignedCollectorID != q.CollectorID) {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, r.Status) {
			continue
		}
		if q.Urgency != "" && r.Urgency != q.Urgency {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Sort == models.SortUrgency && out[i].Urgency.Rank() != out[j].Urgency.Rank() {
			return out[i].Urgency.Rank() > out[j].Urgency.Rank()
		}
		if out[i].CreatedAt != out[j].CreatedAt {
			if q.Sort == models.SortCreatedDesc {
				return out[i].CreatedAt > out[j].CreatedAt
			}
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) FindReportsByCollectorAndStatus(ctx context.Context, collectorID string, statuses []models.ReportStatus) ([]models.Report, error) {
	return m.FindReports(ctx, models.ReportQuery{CollectorID: collectorID, Statuses: statuses})
}

func (m *memStore) UpdateReportStatus(ctx context.Context, u models.StatusUpdate) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[u.ReportID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "report", ID: u.ReportID}
	}
	if r.Status != u.From {
		return nil, &models.StaleStateError{Resource: "report", ID: r.ID, Expected: string(u.From), Actual: string(r.Status)}
	}

	now := u.Now
	r.Status = u.To
	r.UpdatedAt = now
	switch {
	case u.ClearAssignment:
		r.AssignedCollectorID, r.AssignedAt = nil, nil
	case u.AssignCollectorID != nil:
		id := *u.AssignCollectorID
		r.AssignedCollectorID, r.AssignedAt = &id, &now
	}
	switch u.To {
	case models.ReportStatusCollected:
		r.CollectedAt = &now
	case models.ReportStatusResolved:
		r.ResolvedAt = &now
	case models.ReportStatusCancelled:
		r.CancelledAt = &now
	}
	if u.ActualQuantity != nil {
		r.ActualQuantity = u.ActualQuantity
	}
	if u.ConfirmedWasteType != nil {
		r.ConfirmedWasteType = u.ConfirmedWasteType
	}
	if u.CollectorNotes != nil {
		r.CollectorNotes = u.CollectorNotes
	}

	m.reports[r.ID] = r
	return &r, nil
}

func (m *memStore) DeactivateCollectorCascade(ctx context.Context, collectorID string, now int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[collectorID]; ok {
		u.IsActive = false
		m.users[collectorID] = u
	}

	n := 0
	for id, r := range m.reports {
		if r.AssignedCollectorID == nil || *r.AssignedCollectorID != collectorID {
			continue
		}
		if r.Status != models.ReportStatusAssigned && r.Status != models.ReportStatusInProgress {
			continue
		}
		r.Status = models.ReportStatusPending
		r.AssignedCollectorID, r.AssignedAt = nil, nil
		r.UpdatedAt = now
		m.reports[id] = r
		n++
	}
	return n, nil
}

func (m *memStore) CollectorCounts(ctx context.Context, collectorID string, since int64) (models.CollectorCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c models.CollectorCounts
	for _, r := range m.reports {
		if r.AssignedCollectorID == nil || *r.AssignedCollectorID != collectorID {
			continue
		}
		switch r.Status {
		case models.ReportStatusAssigned:
			c.TotalOpen++
			c.AwaitingStart++
		case models.ReportStatusInProgress:
			c.TotalOpen++
			c.InProgress++
		}
	}
	for _, pl := range m.logs {
		if pl.CollectorID == collectorID && pl.Status == models.PickupStatusCompleted && pl.EndTime != nil && *pl.EndTime >= since {
			c.CompletedToday++
		}
	}
	return c, nil
}

func (m *memStore) GetPickupLog(ctx context.Context, id string) (*models.PickupLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.logs[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "pickup log", ID: id}
	}
	return &pl, nil
}

func (m *memStore) FindOpenPickupLog(ctx context.Context, reportID, collectorID string) (*models.PickupLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pl := range m.logs {
		if pl.ReportID == reportID && pl.CollectorID == collectorID && pl.IsOpen() {
			found := pl
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindOpenPickupLogsByReport(ctx context.Context, reportID string) ([]models.PickupLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PickupLog{}
	for _, pl := range m.logs {
		if pl.ReportID == reportID && pl.IsOpen() {
			out = append(out, pl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *memStore) CreatePickupLog(ctx context.Context, pl *models.PickupLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.logs {
		if existing.ReportID == pl.ReportID && existing.CollectorID == pl.CollectorID && existing.IsOpen() {
			return &models.DuplicateActiveLogError{ReportID: pl.ReportID, CollectorID: pl.CollectorID}
		}
	}
	m.logs[pl.ID] = *pl
	return nil
}

func (m *memStore) ClosePickupLog(ctx context.Context, c models.PickupClose) (*models.PickupLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.logs[c.LogID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "pickup log", ID: c.LogID}
	}
	if !pl.IsOpen() {
		return nil, &models.StaleStateError{Resource: "pickup log", ID: pl.ID, Expected: "started", Actual: string(pl.Status)}
	}
	end := c.EndTime
	pl.Status = c.Outcome
	pl.EndTime = &end
	pl.ActualQuantity = c.ActualQuantity
	pl.ConfirmedWasteType = c.ConfirmedWasteType
	pl.Notes = c.Notes
	pl.FailureReason = c.FailureReason
	m.logs[pl.ID] = pl
	return &pl, nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "user", ID: id}
	}
	return &u, nil
}

func (m *memStore) FCMTokensForUser(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens[userID]...), nil
}

func containsStatus(statuses []models.ReportStatus, s models.ReportStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
