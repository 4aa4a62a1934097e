package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
)

type conflictRepoStub struct {
	conflicts []*models.ShiftConflict
	nextID    int
}

func (s *conflictRepoStub) FindByID(ctx context.Context, id string) (*models.ShiftConflict, error) {
	for _, c := range s.conflicts {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *conflictRepoStub) FindOpenByKey(ctx context.Context, conflictType models.ConflictType, guardID, shiftID string, secondShiftID *string) (*models.ShiftConflict, error) {
	probe := models.ShiftConflict{Type: conflictType, GuardID: guardID, ShiftID: shiftID, SecondShiftID: secondShiftID}
	for _, c := range s.conflicts {
		if c.Resolution == models.ConflictResolutionOpen && c.Key() == probe.Key() {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *conflictRepoStub) List(ctx context.Context, filter models.ConflictFilter) ([]models.ShiftConflict, int, error) {
	var out []models.ShiftConflict
	for _, c := range s.conflicts {
		if filter.Resolution != "" && c.Resolution != filter.Resolution {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *conflictRepoStub) Create(ctx context.Context, conflict *models.ShiftConflict) error {
	s.nextID++
	conflict.ID = string(conflict.Type) + "-" + conflict.GuardID
	copied := *conflict
	s.conflicts = append(s.conflicts, &copied)
	return nil
}

func (s *conflictRepoStub) UpdateResolution(ctx context.Context, conflict *models.ShiftConflict) error {
	for i, c := range s.conflicts {
		if c.ID == conflict.ID {
			copied := *conflict
			s.conflicts[i] = &copied
			return nil
		}
	}
	return sql.ErrNoRows
}

type assignmentScannerStub struct {
	details     map[string][]models.AssignmentDetail
	byLocation  map[string][]string
	workMinutes map[string]int
}

func (s assignmentScannerStub) ListActiveDetailsByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.AssignmentDetail, error) {
	return s.details[guardID], nil
}

func (s assignmentScannerStub) ListActiveGuardsByLocation(ctx context.Context, locationID string, from, to time.Time) ([]string, error) {
	return s.byLocation[locationID], nil
}

func (s assignmentScannerStub) SumWorkMinutesForMonth(ctx context.Context, guardID string, ref time.Time) (int, error) {
	return s.workMinutes[guardID], nil
}

type leaveReaderStub struct {
	periods map[string][]models.LeavePeriod
}

func (s leaveReaderStub) ListApprovedByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.LeavePeriod, error) {
	return s.periods[guardID], nil
}

type replacementFinderStub struct {
	guards     map[string]*models.Guard
	candidates []models.Guard
}

func (s replacementFinderStub) FindByID(ctx context.Context, id string) (*models.Guard, error) {
	if guard, ok := s.guards[id]; ok {
		copied := *guard
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s replacementFinderStub) FindAvailableReplacements(ctx context.Context, requiredLevel int, start, end time.Time, excludeGuardID string, limit int) ([]models.Guard, error) {
	return s.candidates, nil
}

func detail(assignmentID, shiftID string, start, end time.Time, workMinutes, requiredLevel int) models.AssignmentDetail {
	d := models.AssignmentDetail{
		ShiftDate:     time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		ShiftStartAt:  start,
		ShiftEndAt:    end,
		LocationID:    "loc-1",
		WorkMinutes:   workMinutes,
		RequiredLevel: requiredLevel,
	}
	d.ID = assignmentID
	d.ShiftID = shiftID
	d.GuardID = "guard-1"
	d.Status = models.AssignmentStatusConfirmed
	return d
}

func scanWindow() (time.Time, time.Time) {
	return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)
}

func newConflictServiceForTest(repo *conflictRepoStub, scanner assignmentScannerStub, leaves leaveReaderStub, guards replacementFinderStub) (*ConflictService, *notifierStub) {
	events := &notifierStub{}
	svc := NewConflictService(repo, scanner, leaves, guards, events, nil, config.ConflictsConfig{
		MinRestHours:            12,
		MonthlyOvertimeCapHours: 40,
	}, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 7, 10, 8, 0, 0, 0, time.UTC) }
	return svc, events
}

func defaultGuards() replacementFinderStub {
	return replacementFinderStub{guards: map[string]*models.Guard{
		"guard-1": {ID: "guard-1", FullName: "Tran Van A", CertificationLevel: 2, Status: models.GuardStatusActive},
	}}
}

func TestDetectDoubleBooking(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, events := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	var doubleBookings []models.ShiftConflict
	for _, c := range found {
		if c.Type == models.ConflictTypeDoubleBooking {
			doubleBookings = append(doubleBookings, c)
		}
	}
	require.Len(t, doubleBookings, 1)
	assert.Equal(t, models.ConflictSeverityCritical, doubleBookings[0].Severity)
	require.NotNil(t, doubleBookings[0].SecondShiftID)
	assert.Equal(t, "shift-2", *doubleBookings[0].SecondShiftID)
	assert.NotEmpty(t, events.events, "critical findings notify the guard")
}

func TestDetectBackToBackIsNotDoubleBooking(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(14*time.Hour), day.Add(22*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	for _, c := range found {
		assert.NotEqual(t, models.ConflictTypeDoubleBooking, c.Type)
	}
}

func TestDetectInsufficientRest(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			// Ends 22:00, next starts 06:00: an 8h gap against a 12h floor.
			detail("asg-1", "shift-1", day.Add(14*time.Hour), day.Add(22*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(30*time.Hour), day.Add(38*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	var rests []models.ShiftConflict
	for _, c := range found {
		if c.Type == models.ConflictTypeInsufficientRest {
			rests = append(rests, c)
		}
	}
	require.Len(t, rests, 1)
	assert.Equal(t, models.ConflictSeverityHigh, rests[0].Severity)
}

func TestDetectSufficientRestPasses(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			// Ends 14:00, next starts 06:00 next day: 16h of rest.
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(30*time.Hour), day.Add(38*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDetectOvertimeLimit(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{
		details: map[string][]models.AssignmentDetail{
			"guard-1": {detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1)},
		},
		// 210 hours scheduled against the 160+40 ceiling.
		workMinutes: map[string]int{"guard-1": 210 * 60},
	}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, models.ConflictTypeOvertimeLimit, found[0].Type)
	assert.Equal(t, models.ConflictSeverityMedium, found[0].Severity)
}

func TestDetectLeaveOverlap(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1)},
	}}
	leaves := leaveReaderStub{periods: map[string][]models.LeavePeriod{
		"guard-1": {{
			GuardID:   "guard-1",
			StartDate: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC),
			LeaveType: "ANNUAL",
			Approved:  true,
		}},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaves, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, models.ConflictTypeLeaveOverlap, found[0].Type)
	assert.Equal(t, models.ConflictSeverityHigh, found[0].Severity)
}

func TestDetectSkillMismatchWithSuggestion(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 4)},
	}}
	guards := defaultGuards()
	guards.candidates = []models.Guard{{ID: "guard-9", FullName: "Nguyen Van D", CertificationLevel: 4}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, guards)

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, models.ConflictTypeSkillMismatch, found[0].Type)
	assert.Equal(t, models.ConflictSeverityHigh, found[0].Severity, "a two level gap escalates")
	assert.True(t, found[0].AutoResolvable)
	require.NotNil(t, found[0].SuggestedAction)
	assert.Contains(t, *found[0].SuggestedAction, "Nguyen Van D")
}

func TestDetectIsIdempotent(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	_, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	firstCount := len(repo.conflicts)

	_, err = svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, firstCount, len(repo.conflicts), "re-detection must not duplicate open conflicts")
}

func TestResolveConflict(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	require.NotEmpty(t, found)

	resolved, err := svc.Resolve(context.Background(), found[0].ID, "supervisor-1", "moved guard to another shift")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictResolutionResolved, resolved.Resolution)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "supervisor-1", *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	// Closing an already closed conflict is rejected.
	_, err = svc.Resolve(context.Background(), found[0].ID, "supervisor-1", "again")
	require.Error(t, err)
}

func TestStartResolutionClaimsConflict(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)
	require.NotEmpty(t, found)

	claimed, err := svc.StartResolution(context.Background(), found[0].ID, "supervisor-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictResolutionInProgress, claimed.Resolution)
	require.NotNil(t, claimed.ResolvedBy)
	assert.Equal(t, "supervisor-1", *claimed.ResolvedBy)
	assert.Nil(t, claimed.ResolvedAt, "claiming is not closing")

	// A second supervisor cannot claim the same finding.
	_, err = svc.StartResolution(context.Background(), found[0].ID, "supervisor-2")
	require.Error(t, err)

	// The claim still closes normally.
	resolved, err := svc.Resolve(context.Background(), found[0].ID, "supervisor-1", "rescheduled the second shift")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictResolutionResolved, resolved.Resolution)
}

func TestStartResolutionRequiresIdentity(t *testing.T) {
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, assignmentScannerStub{}, leaveReaderStub{}, defaultGuards())
	_, err := svc.StartResolution(context.Background(), "whatever", "")
	require.Error(t, err)
}

func TestResolveRequiresIdentity(t *testing.T) {
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, assignmentScannerStub{}, leaveReaderStub{}, defaultGuards())
	_, err := svc.Resolve(context.Background(), "whatever", "", "notes")
	require.Error(t, err)
}

func TestDetectForLocationFansOut(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{
		details: map[string][]models.AssignmentDetail{
			"guard-1": {
				detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
				detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
			},
		},
		byLocation: map[string][]string{"loc-1": {"guard-1"}},
	}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	found, err := svc.DetectForLocation(context.Background(), "loc-1", from, to)
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}

func TestConflictReportAggregates(t *testing.T) {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	scanner := assignmentScannerStub{details: map[string][]models.AssignmentDetail{
		"guard-1": {
			detail("asg-1", "shift-1", day.Add(6*time.Hour), day.Add(14*time.Hour), 450, 1),
			detail("asg-2", "shift-2", day.Add(13*time.Hour), day.Add(21*time.Hour), 450, 1),
		},
	}}
	repo := &conflictRepoStub{}
	svc, _ := newConflictServiceForTest(repo, scanner, leaveReaderStub{}, defaultGuards())

	from, to := scanWindow()
	_, err := svc.DetectForGuard(context.Background(), "guard-1", from, to)
	require.NoError(t, err)

	report, cacheHit, err := svc.Report(context.Background(), from, to)
	require.NoError(t, err)
	assert.False(t, cacheHit, "no cache configured")
	assert.Equal(t, report.Total, len(report.Conflicts))
	assert.Equal(t, 1, report.ByType[string(models.ConflictTypeDoubleBooking)])
	assert.Equal(t, 1, report.BySeverity[string(models.ConflictSeverityCritical)])
}
