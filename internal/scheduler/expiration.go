package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coverguard/internal/domain"
	"coverguard/internal/idempotency"
	"coverguard/internal/notify"
)

// The expiry window reaches back a week so recently-lapsed policies keep
// getting reminded, and forward thirty days.
const (
	expiryLookBack  = 7 * 24 * time.Hour
	expiryLookAhead = 30 * 24 * time.Hour
)

// expirySeverity bands the remaining policy lifetime for the reminder
// template.
func expirySeverity(endDate, now time.Time) string {
	if endDate.Before(now) {
		return "expired"
	}
	days := int(endDate.Sub(now).Hours() / 24)
	switch {
	case days <= 7:
		return "urgent"
	case days <= 14:
		return "soon"
	default:
		return "upcoming"
	}
}

// RunExpirationCheck reminds subcontractors whose policies lapse inside the
// window. At most one reminder per subcontractor per calendar day.
func (r *Runner) RunExpirationCheck(ctx context.Context) (Result, error) {
	return r.run(ctx, JobExpirationCheck, func(ctx context.Context, st *runState) error {
		return r.forEachCompany(ctx, st, func(ctx context.Context, company domain.Company) error {
			now := r.now()
			projects, err := r.projects.ListActiveByCompany(ctx, company.ID)
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			if len(projects) == 0 {
				return nil
			}
			projectIDs := make([]string, 0, len(projects))
			for _, p := range projects {
				projectIDs = append(projectIDs, p.ID)
			}

			verifications, err := r.verifications.ListExpiring(ctx, projectIDs, now.Add(-expiryLookBack), now.Add(expiryLookAhead))
			if err != nil {
				return fmt.Errorf("list expiring verifications: %w", err)
			}
			for _, v := range verifications {
				sent, err := r.sendExpirationReminder(ctx, v, now)
				if err != nil {
					st.errorf("verification %s: %v", v.ID, err)
					continue
				}
				if sent {
					st.processed++
				}
			}
			return nil
		})
	})
}

func (r *Runner) sendExpirationReminder(ctx context.Context, v domain.Verification, now time.Time) (bool, error) {
	if v.Extracted.PolicyEndDate == nil {
		return false, nil
	}
	doc, err := r.documents.FindByID(ctx, v.DocumentID)
	if err != nil {
		return false, fmt.Errorf("load document: %w", err)
	}
	sub, err := r.subcontractors.FindByID(ctx, doc.SubcontractorID)
	if err != nil {
		return false, fmt.Errorf("load subcontractor: %w", err)
	}

	day := domain.Day(now)
	already, err := r.communications.SentOnDay(ctx, sub.ID, domain.CommExpirationReminder, day)
	if err != nil {
		return false, fmt.Errorf("check reminder history: %w", err)
	}
	if already {
		return false, nil
	}
	if !r.acquire(ctx, idempotency.Key(string(notify.KindExpirationReminder), sub.ID, now)) {
		return false, nil
	}

	recipient := sub.BestEmail()
	if recipient == "" {
		return false, fmt.Errorf("subcontractor %s has no contact email", sub.ID)
	}

	end := *v.Extracted.PolicyEndDate
	if err := r.send(ctx, notify.Message{
		Recipient: recipient,
		Channel:   domain.ChannelEmail,
		Kind:      notify.KindExpirationReminder,
		Payload: map[string]any{
			"subcontractor": sub.Name,
			"policyNumber":  v.Extracted.PolicyNumber,
			"insurer":       v.Extracted.Insurer,
			"expiresOn":     end.Format("2006-01-02"),
			"severity":      expirySeverity(end, now),
		},
	}); err != nil {
		return false, err
	}

	comm := domain.Communication{
		ID:              uuid.NewString(),
		SubcontractorID: sub.ID,
		ProjectID:       doc.ProjectID,
		VerificationID:  v.ID,
		Type:            domain.CommExpirationReminder,
		Channel:         domain.ChannelEmail,
		Recipient:       recipient,
		Status:          domain.CommSent,
		SentAt:          now,
	}
	if err := r.communications.Save(ctx, comm); err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	return true, nil
}
