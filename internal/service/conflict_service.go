package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/timewindow"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
)

type conflictRepository interface {
	FindByID(ctx context.Context, id string) (*models.ShiftConflict, error)
	FindOpenByKey(ctx context.Context, conflictType models.ConflictType, guardID, shiftID string, secondShiftID *string) (*models.ShiftConflict, error)
	List(ctx context.Context, filter models.ConflictFilter) ([]models.ShiftConflict, int, error)
	Create(ctx context.Context, conflict *models.ShiftConflict) error
	UpdateResolution(ctx context.Context, conflict *models.ShiftConflict) error
}

type assignmentScanner interface {
	ListActiveDetailsByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.AssignmentDetail, error)
	ListActiveGuardsByLocation(ctx context.Context, locationID string, from, to time.Time) ([]string, error)
	SumWorkMinutesForMonth(ctx context.Context, guardID string, ref time.Time) (int, error)
}

type leaveReader interface {
	ListApprovedByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.LeavePeriod, error)
}

type replacementFinder interface {
	FindByID(ctx context.Context, id string) (*models.Guard, error)
	FindAvailableReplacements(ctx context.Context, requiredLevel int, start, end time.Time, excludeGuardID string, limit int) ([]models.Guard, error)
}

// ConflictService scans a guard's active assignments for scheduling
// problems. Findings are append-only: detection records a conflict once per
// open guard+shift-pair+type key and resolving it never touches the
// underlying assignment.
type ConflictService struct {
	conflicts   conflictRepository
	assignments assignmentScanner
	leaves      leaveReader
	guards      replacementFinder
	events      notifier
	cache       *CacheService
	policy      config.ConflictsConfig
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewConflictService instantiates ConflictService.
func NewConflictService(
	conflicts conflictRepository,
	assignments assignmentScanner,
	leaves leaveReader,
	guards replacementFinder,
	events notifier,
	cache *CacheService,
	policy config.ConflictsConfig,
	metrics *MetricsService,
	logger *zap.Logger,
) *ConflictService {
	if policy.MinRestHours <= 0 {
		policy.MinRestHours = 12
	}
	if policy.MonthlyOvertimeCapHours <= 0 {
		policy.MonthlyOvertimeCapHours = 40
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		conflicts:   conflicts,
		assignments: assignments,
		leaves:      leaves,
		guards:      guards,
		events:      events,
		cache:       cache,
		policy:      policy,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// DetectForGuard scans one guard's active assignments inside the window and
// records any new conflicts. Returns all conflicts found in this pass,
// including ones that already had an open record.
func (s *ConflictService) DetectForGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.ShiftConflict, error) {
	details, err := s.assignments.ListActiveDetailsByGuard(ctx, guardID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments for conflict scan")
	}
	if len(details) == 0 {
		return nil, nil
	}

	var findings []models.ShiftConflict
	findings = append(findings, s.detectDoubleBookings(guardID, details)...)
	findings = append(findings, s.detectInsufficientRest(guardID, details)...)
	findings = append(findings, s.detectSkillMismatches(ctx, guardID, details)...)

	overtime, err := s.detectOvertime(ctx, guardID, details)
	if err != nil {
		return nil, err
	}
	findings = append(findings, overtime...)

	leave, err := s.detectLeaveOverlaps(ctx, guardID, details, from, to)
	if err != nil {
		return nil, err
	}
	findings = append(findings, leave...)

	recorded := make([]models.ShiftConflict, 0, len(findings))
	for i := range findings {
		persisted, err := s.record(ctx, &findings[i])
		if err != nil {
			return nil, err
		}
		recorded = append(recorded, *persisted)
	}
	return recorded, nil
}

// DetectForLocation runs DetectForGuard for every guard with an active
// assignment at the location inside the window.
func (s *ConflictService) DetectForLocation(ctx context.Context, locationID string, from, to time.Time) ([]models.ShiftConflict, error) {
	guardIDs, err := s.assignments.ListActiveGuardsByLocation(ctx, locationID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guards for location scan")
	}

	var all []models.ShiftConflict
	for _, guardID := range guardIDs {
		found, err := s.DetectForGuard(ctx, guardID, from, to)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// List returns conflicts with pagination metadata. Unfiltered open-conflict
// listings are served from cache when available.
func (s *ConflictService) List(ctx context.Context, filter models.ConflictFilter) ([]models.ShiftConflict, *models.Pagination, error) {
	conflicts, total, err := s.conflicts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return conflicts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one conflict by id.
func (s *ConflictService) Get(ctx context.Context, id string) (*models.ShiftConflict, error) {
	conflict, err := s.conflicts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict")
	}
	return conflict, nil
}

// StartResolution claims an OPEN conflict for an operator and moves it to
// IN_PROGRESS so two supervisors don't work the same finding.
func (s *ConflictService) StartResolution(ctx context.Context, id, startedBy string) (*models.ShiftConflict, error) {
	if startedBy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "claiming a conflict requires the operator's identity")
	}

	conflict, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conflict.Resolution != models.ConflictResolutionOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("conflict is already %s", conflict.Resolution))
	}

	conflict.Resolution = models.ConflictResolutionInProgress
	conflict.ResolvedBy = &startedBy

	if err := s.conflicts.UpdateResolution(ctx, conflict); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update conflict resolution")
	}
	s.invalidateReportCache(ctx)
	return conflict, nil
}

// Resolve marks a conflict RESOLVED with the operator's notes.
func (s *ConflictService) Resolve(ctx context.Context, id, resolvedBy, notes string) (*models.ShiftConflict, error) {
	return s.close(ctx, id, models.ConflictResolutionResolved, resolvedBy, notes)
}

// Ignore marks a conflict IGNORED. The finding stays on record.
func (s *ConflictService) Ignore(ctx context.Context, id, resolvedBy, notes string) (*models.ShiftConflict, error) {
	return s.close(ctx, id, models.ConflictResolutionIgnored, resolvedBy, notes)
}

func (s *ConflictService) close(ctx context.Context, id string, resolution models.ConflictResolution, resolvedBy, notes string) (*models.ShiftConflict, error) {
	if resolvedBy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "closing a conflict requires the resolver's identity")
	}

	conflict, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conflict.Resolution == models.ConflictResolutionResolved || conflict.Resolution == models.ConflictResolutionIgnored {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("conflict is already %s", conflict.Resolution))
	}

	now := s.now().UTC()
	conflict.Resolution = resolution
	conflict.ResolvedBy = &resolvedBy
	conflict.ResolvedAt = &now
	if notes != "" {
		conflict.ResolutionNotes = &notes
	}

	if err := s.conflicts.UpdateResolution(ctx, conflict); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update conflict resolution")
	}
	s.invalidateReportCache(ctx)
	return conflict, nil
}

// record persists a finding unless an open conflict with the same key
// already exists, in which case the existing record is returned.
func (s *ConflictService) record(ctx context.Context, finding *models.ShiftConflict) (*models.ShiftConflict, error) {
	existing, err := s.conflicts.FindOpenByKey(ctx, finding.Type, finding.GuardID, finding.ShiftID, finding.SecondShiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing conflict")
	}
	if existing != nil {
		return existing, nil
	}

	finding.Resolution = models.ConflictResolutionOpen
	finding.DetectedAt = s.now().UTC()
	if err := s.conflicts.Create(ctx, finding); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record conflict")
	}

	s.metrics.RecordConflictDetected(string(finding.Type))
	s.invalidateReportCache(ctx)
	if finding.Severity == models.ConflictSeverityCritical || finding.Severity == models.ConflictSeverityHigh {
		s.notifyConflict(finding)
	}
	s.logger.Info("conflict recorded",
		zap.String("type", string(finding.Type)),
		zap.String("severity", string(finding.Severity)),
		zap.String("guard_id", finding.GuardID),
		zap.String("shift_id", finding.ShiftID))

	return finding, nil
}

func (s *ConflictService) detectDoubleBookings(guardID string, details []models.AssignmentDetail) []models.ShiftConflict {
	var findings []models.ShiftConflict
	for i := 0; i < len(details); i++ {
		for j := i + 1; j < len(details); j++ {
			a, b := details[i], details[j]
			if a.ShiftID == b.ShiftID {
				continue
			}
			if !timewindow.Overlaps(a.ShiftStartAt, a.ShiftEndAt, b.ShiftStartAt, b.ShiftEndAt) {
				continue
			}
			second := b.ShiftID
			findings = append(findings, models.ShiftConflict{
				Type:          models.ConflictTypeDoubleBooking,
				Severity:      models.ConflictSeverityCritical,
				GuardID:       guardID,
				ShiftID:       a.ShiftID,
				SecondShiftID: &second,
				AssignmentID:  &a.ID,
				Description: fmt.Sprintf("guard is booked on overlapping shifts %s (%s - %s) and %s (%s - %s)",
					a.ShiftID, a.ShiftStartAt.Format(time.RFC3339), a.ShiftEndAt.Format(time.RFC3339),
					b.ShiftID, b.ShiftStartAt.Format(time.RFC3339), b.ShiftEndAt.Format(time.RFC3339)),
			})
		}
	}
	return findings
}

// detectInsufficientRest walks consecutive shifts ordered by start and flags
// gaps shorter than the rest floor. Overlapping pairs are left to the
// double-booking rule.
func (s *ConflictService) detectInsufficientRest(guardID string, details []models.AssignmentDetail) []models.ShiftConflict {
	var findings []models.ShiftConflict
	for i := 0; i+1 < len(details); i++ {
		prev, next := details[i], details[i+1]
		gap := next.ShiftStartAt.Sub(prev.ShiftEndAt)
		if gap < 0 {
			continue
		}
		if gap.Hours() >= s.policy.MinRestHours {
			continue
		}
		second := next.ShiftID
		findings = append(findings, models.ShiftConflict{
			Type:          models.ConflictTypeInsufficientRest,
			Severity:      models.ConflictSeverityHigh,
			GuardID:       guardID,
			ShiftID:       prev.ShiftID,
			SecondShiftID: &second,
			AssignmentID:  &next.ID,
			Description: fmt.Sprintf("only %.1fh of rest between shift ending %s and shift starting %s (minimum %.1fh)",
				gap.Hours(), prev.ShiftEndAt.Format(time.RFC3339), next.ShiftStartAt.Format(time.RFC3339), s.policy.MinRestHours),
		})
	}
	return findings
}

func (s *ConflictService) detectOvertime(ctx context.Context, guardID string, details []models.AssignmentDetail) ([]models.ShiftConflict, error) {
	// One check per calendar month touched by the window; the sum query
	// already aggregates every active assignment in that month.
	checked := make(map[string]bool)
	var findings []models.ShiftConflict
	for _, d := range details {
		monthKey := d.ShiftDate.Format("2006-01")
		if checked[monthKey] {
			continue
		}
		checked[monthKey] = true

		minutes, err := s.assignments.SumWorkMinutesForMonth(ctx, guardID, d.ShiftDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum monthly work minutes")
		}
		hours := float64(minutes) / 60
		capHours := 160 + s.policy.MonthlyOvertimeCapHours
		if hours <= capHours {
			continue
		}
		findings = append(findings, models.ShiftConflict{
			Type:         models.ConflictTypeOvertimeLimit,
			Severity:     models.ConflictSeverityMedium,
			GuardID:      guardID,
			ShiftID:      d.ShiftID,
			AssignmentID: &d.ID,
			Description: fmt.Sprintf("scheduled %.1fh in %s exceeds the %.0fh monthly ceiling (%.0fh base + %.0fh overtime cap)",
				hours, monthKey, capHours, 160.0, s.policy.MonthlyOvertimeCapHours),
		})
	}
	return findings, nil
}

func (s *ConflictService) detectLeaveOverlaps(ctx context.Context, guardID string, details []models.AssignmentDetail, from, to time.Time) ([]models.ShiftConflict, error) {
	periods, err := s.leaves.ListApprovedByGuard(ctx, guardID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave periods")
	}
	if len(periods) == 0 {
		return nil, nil
	}

	var findings []models.ShiftConflict
	for _, d := range details {
		for i := range periods {
			if !periods[i].Covers(d.ShiftDate) {
				continue
			}
			findings = append(findings, models.ShiftConflict{
				Type:         models.ConflictTypeLeaveOverlap,
				Severity:     models.ConflictSeverityHigh,
				GuardID:      guardID,
				ShiftID:      d.ShiftID,
				AssignmentID: &d.ID,
				Description: fmt.Sprintf("shift on %s falls inside approved %s leave (%s - %s)",
					d.ShiftDate.Format("2006-01-02"), periods[i].LeaveType,
					periods[i].StartDate.Format("2006-01-02"), periods[i].EndDate.Format("2006-01-02")),
			})
			break
		}
	}
	return findings, nil
}

// detectSkillMismatches compares the guard's certification level with each
// shift's requirement. A gap of two levels or more escalates to HIGH, and a
// replacement suggestion is attached when an eligible substitute exists.
func (s *ConflictService) detectSkillMismatches(ctx context.Context, guardID string, details []models.AssignmentDetail) []models.ShiftConflict {
	guard, err := s.guards.FindByID(ctx, guardID)
	if err != nil {
		s.logger.Warn("skipping skill checks, guard lookup failed", zap.String("guard_id", guardID), zap.Error(err))
		return nil
	}

	var findings []models.ShiftConflict
	for _, d := range details {
		if d.RequiredLevel <= guard.CertificationLevel {
			continue
		}
		severity := models.ConflictSeverityMedium
		if d.RequiredLevel-guard.CertificationLevel >= 2 {
			severity = models.ConflictSeverityHigh
		}
		finding := models.ShiftConflict{
			Type:         models.ConflictTypeSkillMismatch,
			Severity:     severity,
			GuardID:      guardID,
			ShiftID:      d.ShiftID,
			AssignmentID: &d.ID,
			Description: fmt.Sprintf("guard certification level %d is below the shift requirement %d",
				guard.CertificationLevel, d.RequiredLevel),
		}
		s.suggestReplacement(ctx, &finding, d)
		findings = append(findings, finding)
	}
	return findings
}

// suggestReplacement attaches a non-binding substitution proposal. Lookup
// failures only cost the suggestion, never the finding.
func (s *ConflictService) suggestReplacement(ctx context.Context, finding *models.ShiftConflict, d models.AssignmentDetail) {
	candidates, err := s.guards.FindAvailableReplacements(ctx, d.RequiredLevel, d.ShiftStartAt, d.ShiftEndAt, finding.GuardID, 3)
	if err != nil {
		s.logger.Warn("replacement lookup failed", zap.String("shift_id", d.ShiftID), zap.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, fmt.Sprintf("%s (level %d)", c.FullName, c.CertificationLevel))
	}
	action := fmt.Sprintf("replace with one of: %s", strings.Join(names, ", "))
	finding.AutoResolvable = true
	finding.SuggestedAction = &action
}

func (s *ConflictService) notifyConflict(finding *models.ShiftConflict) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(models.NotificationEvent{
		RecipientID:   finding.GuardID,
		RecipientType: "GUARD",
		Action:        "CONFLICT_DETECTED",
		Title:         fmt.Sprintf("%s conflict on your schedule", finding.Type),
		Message:       finding.Description,
		Priority:      models.NotificationPriorityHigh,
		Metadata:      map[string]interface{}{"conflict_type": string(finding.Type), "shift_id": finding.ShiftID},
	})
}

func (s *ConflictService) invalidateReportCache(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "conflict-report:*"); err != nil {
		s.logger.Warn("conflict report cache invalidation failed", zap.Error(err))
	}
}

// ConflictReport aggregates open findings for export and dashboards.
type ConflictReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	From        time.Time              `json:"from"`
	To          time.Time              `json:"to"`
	Total       int                    `json:"total"`
	BySeverity  map[string]int         `json:"by_severity"`
	ByType      map[string]int         `json:"by_type"`
	Conflicts   []models.ShiftConflict `json:"conflicts"`
}

// Report builds the open-conflict report for the window, served from cache
// inside the TTL. The bool reports whether the cache satisfied the request.
func (s *ConflictService) Report(ctx context.Context, from, to time.Time) (*ConflictReport, bool, error) {
	key := fmt.Sprintf("conflict-report:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if s.cache != nil && s.cache.Enabled() {
		var cached ConflictReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	filter := models.ConflictFilter{
		Resolution: models.ConflictResolutionOpen,
		DateFrom:   &from,
		DateTo:     &to,
		PageSize:   100,
	}
	var all []models.ShiftConflict
	for page := 1; ; page++ {
		filter.Page = page
		conflicts, total, err := s.conflicts.List(ctx, filter)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build conflict report")
		}
		all = append(all, conflicts...)
		if len(all) >= total || len(conflicts) == 0 {
			break
		}
	}

	report := &ConflictReport{
		GeneratedAt: s.now().UTC(),
		From:        from,
		To:          to,
		Total:       len(all),
		BySeverity:  map[string]int{},
		ByType:      map[string]int{},
		Conflicts:   all,
	}
	for i := range all {
		report.BySeverity[string(all[i].Severity)]++
		report.ByType[string(all[i].Type)]++
	}

	if s.cache != nil && s.cache.Enabled() {
		ttl := s.policy.ReportCacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		if err := s.cache.Set(ctx, key, report, ttl); err != nil {
			s.logger.Warn("conflict report cache write failed", zap.Error(err))
		}
	}
	return report, false, nil
}
