package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"coverguard/internal/domain"
)

type MemoryStoresSuite struct {
	suite.Suite
	stores *Stores
}

func TestMemoryStoresSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoresSuite))
}

func (s *MemoryStoresSuite) SetupTest() {
	s.stores = NewMemoryStores()
}

func (s *MemoryStoresSuite) TestCompanyStore() {
	ctx := context.Background()
	s.Require().NoError(s.stores.Companies.Save(ctx, domain.Company{ID: "c2", Name: "B", Active: true}))
	s.Require().NoError(s.stores.Companies.Save(ctx, domain.Company{ID: "c1", Name: "A", Active: true}))
	s.Require().NoError(s.stores.Companies.Save(ctx, domain.Company{ID: "c3", Name: "C", Active: false}))

	s.Run("lists active companies ordered by id", func() {
		active, err := s.stores.Companies.ListActive(ctx)
		s.Require().NoError(err)
		s.Require().Len(active, 2)
		s.Equal("c1", active[0].ID)
		s.Equal("c2", active[1].ID)
	})

	s.Run("missing company is ErrNotFound", func() {
		_, err := s.stores.Companies.FindByID(ctx, "nope")
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *MemoryStoresSuite) TestSubcontractorABNUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.stores.Subcontractors.Save(ctx, domain.Subcontractor{
		ID: "s1", CompanyID: "c1", Name: "Apex", ABN: "51000000001",
	}))

	s.Run("same ABN in the same company conflicts", func() {
		err := s.stores.Subcontractors.Save(ctx, domain.Subcontractor{
			ID: "s2", CompanyID: "c1", Name: "Apex Again", ABN: "51000000001",
		})
		s.ErrorIs(err, ErrConflict)
	})

	s.Run("same ABN in another company is fine", func() {
		s.NoError(s.stores.Subcontractors.Save(ctx, domain.Subcontractor{
			ID: "s3", CompanyID: "c2", Name: "Apex Elsewhere", ABN: "51000000001",
		}))
	})

	s.Run("updating the same record is fine", func() {
		s.NoError(s.stores.Subcontractors.Save(ctx, domain.Subcontractor{
			ID: "s1", CompanyID: "c1", Name: "Apex Renamed", ABN: "51000000001",
		}))
	})
}

func (s *MemoryStoresSuite) TestSubcontractorBatchLookup() {
	ctx := context.Background()
	s.Require().NoError(s.stores.Subcontractors.Save(ctx, domain.Subcontractor{ID: "s1", CompanyID: "c1", Name: "A", ABN: "1"}))
	s.Require().NoError(s.stores.Subcontractors.Save(ctx, domain.Subcontractor{ID: "s2", CompanyID: "c1", Name: "B", ABN: "2"}))

	found, err := s.stores.Subcontractors.FindByIDs(ctx, []string{"s1", "s2", "missing"})
	s.Require().NoError(err)
	s.Len(found, 2)
	s.Equal("A", found["s1"].Name)
	_, ok := found["missing"]
	s.False(ok)
}

func (s *MemoryStoresSuite) TestAssignmentPairUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.stores.Assignments.Save(ctx, domain.Assignment{
		ID: "a1", ProjectID: "p1", SubcontractorID: "s1", Status: domain.AssignmentPending,
	}))

	err := s.stores.Assignments.Save(ctx, domain.Assignment{
		ID: "a2", ProjectID: "p1", SubcontractorID: "s1", Status: domain.AssignmentPending,
	})
	s.ErrorIs(err, ErrConflict)

	found, err := s.stores.Assignments.FindByPair(ctx, "p1", "s1")
	s.Require().NoError(err)
	s.Equal("a1", found.ID)

	s.Require().NoError(s.stores.Assignments.UpdateStatus(ctx, "a1", domain.AssignmentCompliant))
	found, err = s.stores.Assignments.FindByID(ctx, "a1")
	s.Require().NoError(err)
	s.Equal(domain.AssignmentCompliant, found.Status)

	s.ErrorIs(s.stores.Assignments.UpdateStatus(ctx, "missing", domain.AssignmentCompliant), ErrNotFound)
}

func (s *MemoryStoresSuite) TestOneVerificationPerDocument() {
	ctx := context.Background()
	s.Require().NoError(s.stores.Verifications.Save(ctx, domain.Verification{
		ID: "v1", DocumentID: "d1", ProjectID: "p1", Status: domain.VerificationReview,
	}))

	err := s.stores.Verifications.Save(ctx, domain.Verification{
		ID: "v2", DocumentID: "d1", ProjectID: "p1", Status: domain.VerificationReview,
	})
	s.ErrorIs(err, ErrConflict)

	found, err := s.stores.Verifications.FindByDocument(ctx, "d1")
	s.Require().NoError(err)
	s.Equal("v1", found.ID)
}

func (s *MemoryStoresSuite) TestVerificationExpiryWindow() {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seed := func(id string, projectID string, end *time.Time) {
		s.Require().NoError(s.stores.Verifications.Save(ctx, domain.Verification{
			ID: id, DocumentID: "d-" + id, ProjectID: projectID, Status: domain.VerificationPass,
			Extracted: domain.ExtractedData{PolicyEndDate: end},
		}))
	}
	in := now.Add(10 * 24 * time.Hour)
	tooLate := now.Add(45 * 24 * time.Hour)
	lapsed := now.Add(-2 * 24 * time.Hour)
	seed("v-in", "p1", &in)
	seed("v-late", "p1", &tooLate)
	seed("v-lapsed", "p1", &lapsed)
	seed("v-nodate", "p1", nil)
	seed("v-other", "p2", &in)

	expiring, err := s.stores.Verifications.ListExpiring(ctx, []string{"p1"},
		now.Add(-7*24*time.Hour), now.Add(30*24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(expiring, 2)
	ids := []string{expiring[0].ID, expiring[1].ID}
	s.Contains(ids, "v-in")
	s.Contains(ids, "v-lapsed")
}

func (s *MemoryStoresSuite) TestCommunicationOrderingAndDailyKeys() {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	save := func(id string, at time.Time, ctype domain.CommunicationType, status domain.CommunicationStatus) {
		s.Require().NoError(s.stores.Communications.Save(ctx, domain.Communication{
			ID: id, SubcontractorID: "s1", ProjectID: "p1",
			Type: ctype, Channel: domain.ChannelEmail, Status: status, SentAt: at,
		}))
	}
	save("m-old", base.Add(-48*time.Hour), domain.CommDeficiency, domain.CommSent)
	save("m-new", base, domain.CommExpirationReminder, domain.CommSent)
	save("m-failed", base.Add(time.Hour), domain.CommCriticalAlert, domain.CommFailed)

	s.Run("project listing is newest first", func() {
		comms, err := s.stores.Communications.ListByProject(ctx, "p1")
		s.Require().NoError(err)
		s.Require().Len(comms, 3)
		s.Equal("m-failed", comms[0].ID)
		s.Equal("m-new", comms[1].ID)
		s.Equal("m-old", comms[2].ID)
	})

	s.Run("daily key matches only outbound sends of the type", func() {
		sent, err := s.stores.Communications.SentOnDay(ctx, "s1", domain.CommExpirationReminder, domain.Day(base))
		s.Require().NoError(err)
		s.True(sent)

		// Failed sends never count for idempotency.
		sent, err = s.stores.Communications.SentOnDay(ctx, "s1", domain.CommCriticalAlert, domain.Day(base))
		s.Require().NoError(err)
		s.False(sent)

		sent, err = s.stores.Communications.SentOnDay(ctx, "s1", domain.CommExpirationReminder, domain.Day(base.Add(24*time.Hour)))
		s.Require().NoError(err)
		s.False(sent)
	})

	s.Run("assignment scoped key requires the pair to match", func() {
		sent, err := s.stores.Communications.SentForAssignmentOnDay(ctx, "p1", "s1", domain.CommExpirationReminder, domain.Day(base))
		s.Require().NoError(err)
		s.True(sent)

		sent, err = s.stores.Communications.SentForAssignmentOnDay(ctx, "p2", "s1", domain.CommExpirationReminder, domain.Day(base))
		s.Require().NoError(err)
		s.False(sent)
	})
}

func (s *MemoryStoresSuite) TestExceptionQueries() {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	save := func(id, assignmentID string, status domain.ExceptionStatus, expires *time.Time) {
		s.Require().NoError(s.stores.Exceptions.Save(ctx, domain.Exception{
			ID: id, AssignmentID: assignmentID, Reason: "r", CreatedBy: "u1",
			Status: status, ExpiresAt: expires, CreatedAt: now,
		}))
	}
	save("e1", "a1", domain.ExceptionActive, &past)
	save("e2", "a1", domain.ExceptionActive, &future)
	save("e3", "a1", domain.ExceptionActive, nil)
	save("e4", "a2", domain.ExceptionResolved, &past)

	expired, err := s.stores.Exceptions.ListActiveExpired(ctx, now)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal("e1", expired[0].ID)

	counts, err := s.stores.Exceptions.CountActive(ctx, []string{"a1", "a2"})
	s.Require().NoError(err)
	s.Equal(3, counts["a1"])
	s.Zero(counts["a2"])
}

func (s *MemoryStoresSuite) TestJobRunLifecycle() {
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	run := domain.JobRun{ID: "r1", JobName: "morning_brief", StartedAt: started, Status: domain.JobRunning}
	s.Require().NoError(s.stores.JobRuns.Create(ctx, run))
	s.ErrorIs(s.stores.JobRuns.Create(ctx, run), ErrConflict)

	finished := started.Add(time.Second)
	run.FinishedAt = &finished
	run.Status = domain.JobSuccess
	run.Processed = 3
	s.Require().NoError(s.stores.JobRuns.Update(ctx, run))

	found, err := s.stores.JobRuns.FindByID(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(domain.JobSuccess, found.Status)
	s.Equal(3, found.Processed)
}
