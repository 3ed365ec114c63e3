package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

// Service computes the operational read-models for one company at a time.
// Every view follows the same shape: fetch active projects, fan out one
// parallel batch fetch per project for each child collection, build id maps
// for referenced entities, then join purely in memory. Round-trips are O(1)
// per entity type, never per record.
type Service struct {
	projects       storage.ProjectStore
	subcontractors storage.SubcontractorStore
	assignments    storage.AssignmentStore
	documents      storage.DocumentStore
	verifications  storage.VerificationStore
	communications storage.CommunicationStore
	exceptions     storage.ExceptionStore

	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests to pin days-waiting math.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(stores *storage.Stores, opts ...Option) *Service {
	s := &Service{
		projects:       stores.Projects,
		subcontractors: stores.Subcontractors,
		assignments:    stores.Assignments,
		documents:      stores.Documents,
		verifications:  stores.Verifications,
		communications: stores.Communications,
		exceptions:     stores.Exceptions,
		tracer:         otel.Tracer("coverguard/aggregate"),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Now exposes the service clock so callers computing against a view use the
// same notion of "today".
func (s *Service) Now() time.Time {
	return s.now()
}

type pairKey struct {
	projectID       string
	subcontractorID string
}

// snapshot holds one consistent read of every collection a view needs plus
// the id-keyed indexes built from it. Foreign keys stay one-directional;
// lookups always go through these maps.
type snapshot struct {
	projects       []domain.Project
	assignments    []domain.Assignment
	documents      []domain.Document
	verifications  []domain.Verification
	communications []domain.Communication

	subcontractors  map[string]domain.Subcontractor
	exceptionCounts map[string]int

	projectsByID map[string]domain.Project
	docsByID     map[string]domain.Document
	docsByPair   map[pairKey][]domain.Document      // newest first
	commsByPair  map[pairKey][]domain.Communication // newest first
}

// load performs the staged fan-out. Any store failure aborts the whole call;
// no partial snapshot is ever returned.
func (s *Service) load(ctx context.Context, companyID string, withExceptionCounts bool) (*snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "aggregate.load")
	defer span.End()

	projects, err := s.projects.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}
	snap := &snapshot{
		projects:        projects,
		subcontractors:  map[string]domain.Subcontractor{},
		exceptionCounts: map[string]int{},
		projectsByID:    map[string]domain.Project{},
		docsByID:        map[string]domain.Document{},
		docsByPair:      map[pairKey][]domain.Document{},
		commsByPair:     map[pairKey][]domain.Communication{},
	}
	if len(projects) == 0 {
		return snap, nil
	}

	// Stage two: one parallel fetch per (project, child collection). Results
	// land in per-project slots so no locking is needed; flattening happens
	// only after every fetch resolved.
	perAssignments := make([][]domain.Assignment, len(projects))
	perDocuments := make([][]domain.Document, len(projects))
	perVerifications := make([][]domain.Verification, len(projects))
	perCommunications := make([][]domain.Communication, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	for i, project := range projects {
		g.Go(func() error {
			rows, err := s.assignments.ListByProject(gctx, project.ID)
			if err != nil {
				return fmt.Errorf("list assignments for project %s: %w", project.ID, err)
			}
			perAssignments[i] = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.documents.ListByProject(gctx, project.ID)
			if err != nil {
				return fmt.Errorf("list documents for project %s: %w", project.ID, err)
			}
			perDocuments[i] = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.verifications.ListByProject(gctx, project.ID)
			if err != nil {
				return fmt.Errorf("list verifications for project %s: %w", project.ID, err)
			}
			perVerifications[i] = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.communications.ListByProject(gctx, project.ID)
			if err != nil {
				return fmt.Errorf("list communications for project %s: %w", project.ID, err)
			}
			perCommunications[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range projects {
		snap.assignments = append(snap.assignments, perAssignments[i]...)
		snap.documents = append(snap.documents, perDocuments[i]...)
		snap.verifications = append(snap.verifications, perVerifications[i]...)
		snap.communications = append(snap.communications, perCommunications[i]...)
	}

	// Stage three: batch lookups restricted to the ids actually referenced.
	subIDs := referencedSubcontractorIDs(snap)
	assignmentIDs := make([]string, 0, len(snap.assignments))
	for _, a := range snap.assignments {
		assignmentIDs = append(assignmentIDs, a.ID)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := s.subcontractors.FindByIDs(gctx, subIDs)
		if err != nil {
			return fmt.Errorf("batch load subcontractors: %w", err)
		}
		snap.subcontractors = subs
		return nil
	})
	if withExceptionCounts {
		g.Go(func() error {
			counts, err := s.exceptions.CountActive(gctx, assignmentIDs)
			if err != nil {
				return fmt.Errorf("count active exceptions: %w", err)
			}
			snap.exceptionCounts = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.buildIndexes()
	return snap, nil
}

func referencedSubcontractorIDs(snap *snapshot) []string {
	seen := map[string]bool{}
	var ids []string
	for _, a := range snap.assignments {
		if !seen[a.SubcontractorID] {
			seen[a.SubcontractorID] = true
			ids = append(ids, a.SubcontractorID)
		}
	}
	for _, d := range snap.documents {
		if !seen[d.SubcontractorID] {
			seen[d.SubcontractorID] = true
			ids = append(ids, d.SubcontractorID)
		}
	}
	return ids
}

func (snap *snapshot) buildIndexes() {
	for _, p := range snap.projects {
		snap.projectsByID[p.ID] = p
	}
	for _, d := range snap.documents {
		snap.docsByID[d.ID] = d
		key := pairKey{d.ProjectID, d.SubcontractorID}
		snap.docsByPair[key] = append(snap.docsByPair[key], d)
	}
	for _, c := range snap.communications {
		key := pairKey{c.ProjectID, c.SubcontractorID}
		snap.commsByPair[key] = append(snap.commsByPair[key], c)
	}
	for key := range snap.docsByPair {
		docs := snap.docsByPair[key]
		sort.Slice(docs, func(i, j int) bool { return docs[i].ReceivedAt.After(docs[j].ReceivedAt) })
	}
	for key := range snap.commsByPair {
		comms := snap.commsByPair[key]
		sort.Slice(comms, func(i, j int) bool { return comms[i].SentAt.After(comms[j].SentAt) })
	}
}

// ComplianceStats counts assignments by status and derives the compliance
// rate. The rate is nil, not zero, when the company has no assignments.
func (s *Service) ComplianceStats(ctx context.Context, companyID string) (Stats, error) {
	started := s.now()
	snap, err := s.load(ctx, companyID, false)
	defer func() { s.metrics.ObserveView("compliance_stats", time.Since(started), err) }()
	if err != nil {
		return Stats{}, err
	}
	return statsFrom(snap), nil
}

func statsFrom(snap *snapshot) Stats {
	stats := Stats{ActiveProjects: len(snap.projects)}
	for _, a := range snap.assignments {
		stats.Total++
		switch a.Status {
		case domain.AssignmentCompliant:
			stats.Compliant++
		case domain.AssignmentNonCompliant:
			stats.NonCompliant++
		case domain.AssignmentException:
			stats.Exception++
		default:
			stats.Pending++
		}
	}
	for _, v := range snap.verifications {
		if v.Status == domain.VerificationReview {
			stats.PendingReviews++
		}
	}
	if stats.Total > 0 {
		rate := float64(stats.Compliant+stats.Exception) / float64(stats.Total) * 100
		stats.ComplianceRate = &rate
	}
	return stats
}

// StopWorkRisks lists assignments due on-site while not compliant, soonest
// first with undated rows last.
func (s *Service) StopWorkRisks(ctx context.Context, companyID string, includeExceptionCount bool) ([]StopWorkRisk, error) {
	started := s.now()
	snap, err := s.load(ctx, companyID, includeExceptionCount)
	defer func() { s.metrics.ObserveView("stop_work_risks", time.Since(started), err) }()
	if err != nil {
		return nil, err
	}
	return s.stopWorkFrom(snap, includeExceptionCount), nil
}

func (s *Service) stopWorkFrom(snap *snapshot, includeExceptionCount bool) []StopWorkRisk {
	today := s.now()
	risks := []StopWorkRisk{}
	for _, a := range snap.assignments {
		if !a.AtRisk(today) {
			continue
		}
		risk := StopWorkRisk{
			AssignmentID:    a.ID,
			ProjectID:       a.ProjectID,
			ProjectName:     snap.projectsByID[a.ProjectID].Name,
			SubcontractorID: a.SubcontractorID,
			Subcontractor:   snap.subcontractors[a.SubcontractorID],
			Status:          a.Status,
			OnSiteDate:      a.OnSiteDate,
		}
		if includeExceptionCount {
			risk.ActiveExceptions = snap.exceptionCounts[a.ID]
		}
		risks = append(risks, risk)
	}
	sort.SliceStable(risks, func(i, j int) bool {
		di, dj := risks[i].OnSiteDate, risks[j].OnSiteDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	return risks
}

// PendingResponses lists failed verifications where our most recent outbound
// message has not been answered with a new document, longest waiting first.
// limit <= 0 means no limit.
func (s *Service) PendingResponses(ctx context.Context, companyID string, limit int) ([]PendingResponse, error) {
	started := s.now()
	snap, err := s.load(ctx, companyID, false)
	defer func() { s.metrics.ObserveView("pending_responses", time.Since(started), err) }()
	if err != nil {
		return nil, err
	}
	return s.pendingResponsesFrom(snap, limit, nil), nil
}

// anyCommType matches every communication type.
var anyCommType []domain.CommunicationType

func (s *Service) pendingResponsesFrom(snap *snapshot, limit int, types []domain.CommunicationType) []PendingResponse {
	now := s.now()
	pending := []PendingResponse{}
	for _, v := range snap.verifications {
		if v.Status != domain.VerificationFail {
			continue
		}
		doc, ok := snap.docsByID[v.DocumentID]
		if !ok {
			continue
		}
		key := pairKey{v.ProjectID, doc.SubcontractorID}
		last, ok := latestOutbound(snap.commsByPair[key], v.ID, types)
		if !ok {
			continue
		}
		if respondedSince(snap.docsByPair[key], last.SentAt) {
			continue
		}
		pending = append(pending, PendingResponse{
			VerificationID:  v.ID,
			DocumentID:      v.DocumentID,
			ProjectID:       v.ProjectID,
			SubcontractorID: doc.SubcontractorID,
			Subcontractor:   snap.subcontractors[doc.SubcontractorID],
			Deficiencies:    v.Deficiencies,
			LastContactAt:   last.SentAt,
			LastContactType: last.Type,
			DaysWaiting:     int(now.Sub(last.SentAt).Hours() / 24),
		})
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].DaysWaiting != pending[j].DaysWaiting {
			return pending[i].DaysWaiting > pending[j].DaysWaiting
		}
		return pending[i].VerificationID < pending[j].VerificationID
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// latestOutbound picks the most recent sent/delivered/opened communication,
// preferring rows tagged with the verification id over pair-level matches.
// comms must be sorted newest first.
func latestOutbound(comms []domain.Communication, verificationID string, types []domain.CommunicationType) (domain.Communication, bool) {
	match := func(c domain.Communication) bool {
		if !c.Outbound() {
			return false
		}
		if len(types) == 0 {
			return true
		}
		for _, t := range types {
			if c.Type == t {
				return true
			}
		}
		return false
	}
	for _, c := range comms {
		if c.VerificationID == verificationID && match(c) {
			return c, true
		}
	}
	for _, c := range comms {
		if match(c) {
			return c, true
		}
	}
	return domain.Communication{}, false
}

// respondedSince reports whether a new document arrived after the given send
// time. docs must be sorted newest first.
func respondedSince(docs []domain.Document, sentAt time.Time) bool {
	return len(docs) > 0 && docs[0].ReceivedAt.After(sentAt)
}

// PendingFollowUps restricts pending responses to deficiency/follow-up
// threads, drops anything contacted in the last 24 hours or below the waiting
// threshold, and annotates each case with its prior follow-up count.
// maxFollowUps <= 0 means no cap filter.
func (s *Service) PendingFollowUps(ctx context.Context, companyID string, minDaysWaiting, maxFollowUps int) ([]FollowUpCandidate, error) {
	started := s.now()
	snap, err := s.load(ctx, companyID, false)
	defer func() { s.metrics.ObserveView("pending_follow_ups", time.Since(started), err) }()
	if err != nil {
		return nil, err
	}
	return s.pendingFollowUpsFrom(snap, minDaysWaiting, maxFollowUps), nil
}

func (s *Service) pendingFollowUpsFrom(snap *snapshot, minDaysWaiting, maxFollowUps int) []FollowUpCandidate {
	now := s.now()
	base := s.pendingResponsesFrom(snap, 0, []domain.CommunicationType{domain.CommDeficiency, domain.CommFollowUp})

	candidates := []FollowUpCandidate{}
	for _, pr := range base {
		if pr.DaysWaiting < minDaysWaiting {
			continue
		}
		key := pairKey{pr.ProjectID, pr.SubcontractorID}
		if followUpWithin(snap.commsByPair[key], now.Add(-24*time.Hour)) {
			continue
		}
		count := 0
		for _, c := range snap.communications {
			if c.VerificationID == pr.VerificationID && c.Type == domain.CommFollowUp && c.Outbound() {
				count++
			}
		}
		if maxFollowUps > 0 && count >= maxFollowUps {
			continue
		}
		candidates = append(candidates, FollowUpCandidate{PendingResponse: pr, FollowUpCount: count})
	}
	return candidates
}

func followUpWithin(comms []domain.Communication, since time.Time) bool {
	for _, c := range comms {
		if c.Type == domain.CommFollowUp && c.Outbound() && c.SentAt.After(since) {
			return true
		}
	}
	return false
}

// MorningBrief merges every view off one snapshot plus the count of documents
// received in the trailing 24 hours.
func (s *Service) MorningBrief(ctx context.Context, companyID string) (Brief, error) {
	started := s.now()
	snap, err := s.load(ctx, companyID, true)
	defer func() { s.metrics.ObserveView("morning_brief", time.Since(started), err) }()
	if err != nil {
		return Brief{}, err
	}

	now := s.now()
	newDocs := 0
	cutoff := now.Add(-24 * time.Hour)
	for _, d := range snap.documents {
		if d.ReceivedAt.After(cutoff) {
			newDocs++
		}
	}
	return Brief{
		CompanyID:        companyID,
		GeneratedAt:      now,
		Stats:            statsFrom(snap),
		StopWorkRisks:    s.stopWorkFrom(snap, true),
		PendingResponses: s.pendingResponsesFrom(snap, 10, anyCommType),
		NewDocuments:     newDocs,
	}, nil
}
