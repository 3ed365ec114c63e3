package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"coverguard/internal/domain"
)

// In-memory stores back unit tests and local runs. They intentionally favor
// clarity over performance; scans are fine at test scale.

func NewMemoryStores() *Stores {
	return &Stores{
		Companies:      NewInMemoryCompanyStore(),
		Users:          NewInMemoryUserStore(),
		Projects:       NewInMemoryProjectStore(),
		Subcontractors: NewInMemorySubcontractorStore(),
		Assignments:    NewInMemoryAssignmentStore(),
		Documents:      NewInMemoryDocumentStore(),
		Verifications:  NewInMemoryVerificationStore(),
		Communications: NewInMemoryCommunicationStore(),
		Exceptions:     NewInMemoryExceptionStore(),
		Notifications:  NewInMemoryNotificationStore(),
		JobRuns:        NewInMemoryJobRunStore(),
	}
}

type InMemoryCompanyStore struct {
	mu        sync.RWMutex
	companies map[string]domain.Company
}

func NewInMemoryCompanyStore() *InMemoryCompanyStore {
	return &InMemoryCompanyStore{companies: make(map[string]domain.Company)}
}

func (s *InMemoryCompanyStore) Save(_ context.Context, company domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[company.ID] = company
	return nil
}

func (s *InMemoryCompanyStore) FindByID(_ context.Context, id string) (domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if company, ok := s.companies[id]; ok {
		return company, nil
	}
	return domain.Company{}, ErrNotFound
}

func (s *InMemoryCompanyStore) ListActive(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Company
	for _, company := range s.companies {
		if company.Active {
			out = append(out, company)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]domain.User)}
}

func (s *InMemoryUserStore) Save(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return domain.User{}, ErrNotFound
}

func (s *InMemoryUserStore) ListAdmins(_ context.Context, companyID string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, user := range s.users {
		if user.CompanyID == companyID && user.Admin {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type InMemoryProjectStore struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
}

func NewInMemoryProjectStore() *InMemoryProjectStore {
	return &InMemoryProjectStore{projects: make(map[string]domain.Project)}
}

func (s *InMemoryProjectStore) Save(_ context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = project
	return nil
}

func (s *InMemoryProjectStore) FindByID(_ context.Context, id string) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if project, ok := s.projects[id]; ok {
		return project, nil
	}
	return domain.Project{}, ErrNotFound
}

func (s *InMemoryProjectStore) ListActiveByCompany(_ context.Context, companyID string) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Project
	for _, project := range s.projects {
		if project.CompanyID == companyID && project.Active() {
			out = append(out, project)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type InMemorySubcontractorStore struct {
	mu   sync.RWMutex
	subs map[string]domain.Subcontractor
}

func NewInMemorySubcontractorStore() *InMemorySubcontractorStore {
	return &InMemorySubcontractorStore{subs: make(map[string]domain.Subcontractor)}
}

func (s *InMemorySubcontractorStore) Save(_ context.Context, sub domain.Subcontractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// ABN is immutable identity, unique per company.
	for _, existing := range s.subs {
		if existing.ID != sub.ID && existing.CompanyID == sub.CompanyID && existing.ABN == sub.ABN {
			return ErrConflict
		}
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *InMemorySubcontractorStore) FindByID(_ context.Context, id string) (domain.Subcontractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subs[id]; ok {
		return sub, nil
	}
	return domain.Subcontractor{}, ErrNotFound
}

func (s *InMemorySubcontractorStore) FindByIDs(_ context.Context, ids []string) (map[string]domain.Subcontractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Subcontractor, len(ids))
	for _, id := range ids {
		if sub, ok := s.subs[id]; ok {
			out[id] = sub
		}
	}
	return out, nil
}

type InMemoryAssignmentStore struct {
	mu          sync.RWMutex
	assignments map[string]domain.Assignment
}

func NewInMemoryAssignmentStore() *InMemoryAssignmentStore {
	return &InMemoryAssignmentStore{assignments: make(map[string]domain.Assignment)}
}

func (s *InMemoryAssignmentStore) Save(_ context.Context, assignment domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// At most one assignment per (project, subcontractor) pair.
	for _, existing := range s.assignments {
		if existing.ID != assignment.ID &&
			existing.ProjectID == assignment.ProjectID &&
			existing.SubcontractorID == assignment.SubcontractorID {
			return ErrConflict
		}
	}
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *InMemoryAssignmentStore) FindByID(_ context.Context, id string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if assignment, ok := s.assignments[id]; ok {
		return assignment, nil
	}
	return domain.Assignment{}, ErrNotFound
}

func (s *InMemoryAssignmentStore) FindByPair(_ context.Context, projectID, subcontractorID string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, assignment := range s.assignments {
		if assignment.ProjectID == projectID && assignment.SubcontractorID == subcontractorID {
			return assignment, nil
		}
	}
	return domain.Assignment{}, ErrNotFound
}

func (s *InMemoryAssignmentStore) ListByProject(_ context.Context, projectID string) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assignment
	for _, assignment := range s.assignments {
		if assignment.ProjectID == projectID {
			out = append(out, assignment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryAssignmentStore) UpdateStatus(_ context.Context, id string, status domain.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return ErrNotFound
	}
	assignment.Status = status
	s.assignments[id] = assignment
	return nil
}

type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]domain.Document)}
}

func (s *InMemoryDocumentStore) Save(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *InMemoryDocumentStore) FindByID(_ context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[id]; ok {
		return doc, nil
	}
	return domain.Document{}, ErrNotFound
}

func (s *InMemoryDocumentStore) ListByProject(_ context.Context, projectID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, doc := range s.docs {
		if doc.ProjectID == projectID {
			out = append(out, doc)
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *InMemoryDocumentStore) ListByPair(_ context.Context, projectID, subcontractorID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, doc := range s.docs {
		if doc.ProjectID == projectID && doc.SubcontractorID == subcontractorID {
			out = append(out, doc)
		}
	}
	sortDocuments(out)
	return out, nil
}

// sortDocuments orders newest first so "latest document" reads are positional.
func sortDocuments(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ReceivedAt.After(docs[j].ReceivedAt) })
}

type InMemoryVerificationStore struct {
	mu            sync.RWMutex
	verifications map[string]domain.Verification
}

func NewInMemoryVerificationStore() *InMemoryVerificationStore {
	return &InMemoryVerificationStore{verifications: make(map[string]domain.Verification)}
}

func (s *InMemoryVerificationStore) Save(_ context.Context, verification domain.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// One verification per document.
	for _, existing := range s.verifications {
		if existing.ID != verification.ID && existing.DocumentID == verification.DocumentID {
			return ErrConflict
		}
	}
	s.verifications[verification.ID] = verification
	return nil
}

func (s *InMemoryVerificationStore) FindByID(_ context.Context, id string) (domain.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if verification, ok := s.verifications[id]; ok {
		return verification, nil
	}
	return domain.Verification{}, ErrNotFound
}

func (s *InMemoryVerificationStore) FindByDocument(_ context.Context, documentID string) (domain.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, verification := range s.verifications {
		if verification.DocumentID == documentID {
			return verification, nil
		}
	}
	return domain.Verification{}, ErrNotFound
}

func (s *InMemoryVerificationStore) ListByProject(_ context.Context, projectID string) ([]domain.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Verification
	for _, verification := range s.verifications {
		if verification.ProjectID == projectID {
			out = append(out, verification)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryVerificationStore) ListExpiring(_ context.Context, projectIDs []string, from, to time.Time) ([]domain.Verification, error) {
	inScope := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		inScope[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Verification
	for _, verification := range s.verifications {
		if !inScope[verification.ProjectID] {
			continue
		}
		end := verification.Extracted.PolicyEndDate
		if end == nil || end.Before(from) || end.After(to) {
			continue
		}
		out = append(out, verification)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Extracted.PolicyEndDate.Before(*out[j].Extracted.PolicyEndDate)
	})
	return out, nil
}

type InMemoryCommunicationStore struct {
	mu    sync.RWMutex
	comms map[string]domain.Communication
}

func NewInMemoryCommunicationStore() *InMemoryCommunicationStore {
	return &InMemoryCommunicationStore{comms: make(map[string]domain.Communication)}
}

func (s *InMemoryCommunicationStore) Save(_ context.Context, comm domain.Communication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comms[comm.ID] = comm
	return nil
}

func (s *InMemoryCommunicationStore) ListByProject(_ context.Context, projectID string) ([]domain.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Communication
	for _, comm := range s.comms {
		if comm.ProjectID == projectID {
			out = append(out, comm)
		}
	}
	sortCommunications(out)
	return out, nil
}

func (s *InMemoryCommunicationStore) ListByVerification(_ context.Context, verificationID string) ([]domain.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Communication
	for _, comm := range s.comms {
		if comm.VerificationID == verificationID {
			out = append(out, comm)
		}
	}
	sortCommunications(out)
	return out, nil
}

func (s *InMemoryCommunicationStore) SentOnDay(_ context.Context, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, comm := range s.comms {
		if comm.SubcontractorID == subcontractorID && comm.Type == ctype &&
			comm.Status != domain.CommFailed && domain.Day(comm.SentAt) == day {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryCommunicationStore) SentForAssignmentOnDay(_ context.Context, projectID, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, comm := range s.comms {
		if comm.ProjectID == projectID && comm.SubcontractorID == subcontractorID &&
			comm.Type == ctype && comm.Status != domain.CommFailed && domain.Day(comm.SentAt) == day {
			return true, nil
		}
	}
	return false, nil
}

// sortCommunications orders newest first; "most recent outbound" reads are
// positional after filtering.
func sortCommunications(comms []domain.Communication) {
	sort.Slice(comms, func(i, j int) bool { return comms[i].SentAt.After(comms[j].SentAt) })
}

type InMemoryExceptionStore struct {
	mu         sync.RWMutex
	exceptions map[string]domain.Exception
}

func NewInMemoryExceptionStore() *InMemoryExceptionStore {
	return &InMemoryExceptionStore{exceptions: make(map[string]domain.Exception)}
}

func (s *InMemoryExceptionStore) Save(_ context.Context, exception domain.Exception) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions[exception.ID] = exception
	return nil
}

func (s *InMemoryExceptionStore) FindByID(_ context.Context, id string) (domain.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if exception, ok := s.exceptions[id]; ok {
		return exception, nil
	}
	return domain.Exception{}, ErrNotFound
}

func (s *InMemoryExceptionStore) ListByAssignment(_ context.Context, assignmentID string) ([]domain.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Exception
	for _, exception := range s.exceptions {
		if exception.AssignmentID == assignmentID {
			out = append(out, exception)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryExceptionStore) ListActiveExpired(_ context.Context, now time.Time) ([]domain.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Exception
	for _, exception := range s.exceptions {
		if exception.ExpiredBy(now) {
			out = append(out, exception)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryExceptionStore) CountActive(_ context.Context, assignmentIDs []string) (map[string]int, error) {
	inScope := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		inScope[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, exception := range s.exceptions {
		if exception.Status == domain.ExceptionActive && inScope[exception.AssignmentID] {
			out[exception.AssignmentID]++
		}
	}
	return out, nil
}

func (s *InMemoryExceptionStore) UpdateStatus(_ context.Context, id string, status domain.ExceptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exception, ok := s.exceptions[id]
	if !ok {
		return ErrNotFound
	}
	exception.Status = status
	s.exceptions[id] = exception
	return nil
}

type InMemoryNotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]domain.Notification
}

func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{notifications: make(map[string]domain.Notification)}
}

func (s *InMemoryNotificationStore) Save(_ context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[notification.ID] = notification
	return nil
}

func (s *InMemoryNotificationStore) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, notification := range s.notifications {
		if notification.UserID == userID {
			out = append(out, notification)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type InMemoryJobRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.JobRun
}

func NewInMemoryJobRunStore() *InMemoryJobRunStore {
	return &InMemoryJobRunStore{runs: make(map[string]domain.JobRun)}
}

func (s *InMemoryJobRunStore) Create(_ context.Context, run domain.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return ErrConflict
	}
	s.runs[run.ID] = run
	return nil
}

func (s *InMemoryJobRunStore) Update(_ context.Context, run domain.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return ErrNotFound
	}
	s.runs[run.ID] = run
	return nil
}

func (s *InMemoryJobRunStore) FindByID(_ context.Context, id string) (domain.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if run, ok := s.runs[id]; ok {
		return run, nil
	}
	return domain.JobRun{}, ErrNotFound
}
