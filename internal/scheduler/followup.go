package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coverguard/internal/aggregate"
	"coverguard/internal/audit"
	"coverguard/internal/domain"
	"coverguard/internal/idempotency"
	"coverguard/internal/notify"
)

const (
	minFollowUpDays   = 3
	maxFollowUpStage  = 3
	escalateAfterDays = 10
)

// followUpStage maps days of silence to the ladder stage, and whether the
// wait is long enough to escalate to the builder's admins.
func followUpStage(daysWaiting int) (stage int, escalate bool) {
	switch {
	case daysWaiting >= escalateAfterDays:
		return 3, true
	case daysWaiting >= 7:
		return 3, false
	case daysWaiting >= 5:
		return 2, false
	default:
		return 1, false
	}
}

// RunFollowUps walks the follow-up ladder for verifications still awaiting a
// replacement document. A stage that was already reached is never re-sent;
// waits past the escalation threshold additionally alert company admins.
func (r *Runner) RunFollowUps(ctx context.Context) (FollowUpResult, error) {
	var escalated int
	res, err := r.run(ctx, JobFollowUps, func(ctx context.Context, st *runState) error {
		err := r.forEachCompany(ctx, st, func(ctx context.Context, company domain.Company) error {
			candidates, err := r.views.PendingFollowUps(ctx, company.ID, minFollowUpDays, maxFollowUpStage)
			if err != nil {
				return fmt.Errorf("list follow-up candidates: %w", err)
			}
			for _, c := range candidates {
				stage, escalate := followUpStage(c.DaysWaiting)
				if c.FollowUpCount >= stage {
					continue
				}
				if err := r.sendFollowUp(ctx, company, c, stage, escalate, st); err != nil {
					st.errorf("verification %s: %v", c.VerificationID, err)
					continue
				}
				st.processed++
			}
			return nil
		})
		escalated = st.escalated
		st.setMeta("escalated", st.escalated)
		return err
	})
	return FollowUpResult{Result: res, Escalated: escalated}, err
}

func (r *Runner) sendFollowUp(ctx context.Context, company domain.Company, c aggregate.FollowUpCandidate, stage int, escalate bool, st *runState) error {
	now := r.now()
	key := idempotency.Key(fmt.Sprintf("follow_up_%d", stage), c.VerificationID, now)
	if !r.acquire(ctx, key) {
		return nil
	}

	recipient := c.Subcontractor.BestEmail()
	if recipient == "" {
		return fmt.Errorf("subcontractor %s has no contact email", c.SubcontractorID)
	}
	err := r.send(ctx, notify.Message{
		Recipient: recipient,
		Channel:   domain.ChannelEmail,
		Kind:      notify.KindFollowUp,
		Payload: map[string]any{
			"subcontractor":  c.Subcontractor.Name,
			"followUpNumber": stage,
			"daysWaiting":    c.DaysWaiting,
			"deficiencies":   c.Deficiencies,
		},
	})
	if err != nil {
		return err
	}

	comm := domain.Communication{
		ID:              uuid.NewString(),
		SubcontractorID: c.SubcontractorID,
		ProjectID:       c.ProjectID,
		VerificationID:  c.VerificationID,
		Type:            domain.CommFollowUp,
		Channel:         domain.ChannelEmail,
		Recipient:       recipient,
		Status:          domain.CommSent,
		SentAt:          now,
		FollowUpNumber:  stage,
		Escalated:       escalate,
	}
	if err := r.communications.Save(ctx, comm); err != nil {
		return fmt.Errorf("record follow-up: %w", err)
	}

	if escalate {
		st.escalated++
		r.escalateToAdmins(ctx, company, c, st)
	}
	return nil
}

// escalateToAdmins raises in-app notifications and emails to the company's
// admins. Escalation failures are recorded but never undo the follow-up that
// was already sent.
func (r *Runner) escalateToAdmins(ctx context.Context, company domain.Company, c aggregate.FollowUpCandidate, st *runState) {
	admins, err := r.users.ListAdmins(ctx, company.ID)
	if err != nil {
		st.errorf("verification %s: list admins for escalation: %v", c.VerificationID, err)
		return
	}
	for _, admin := range admins {
		notification := domain.Notification{
			ID:        uuid.NewString(),
			UserID:    admin.ID,
			CompanyID: company.ID,
			Type:      string(notify.KindEscalation),
			Title:     "Follow-up escalation",
			Message:   fmt.Sprintf("%s has not responded for %d days", c.Subcontractor.Name, c.DaysWaiting),
			CreatedAt: r.now(),
		}
		if err := r.notifications.Save(ctx, notification); err != nil {
			st.errorf("verification %s: escalation notification for %s: %v", c.VerificationID, admin.ID, err)
			continue
		}
		if admin.Email == "" {
			continue
		}
		err := r.send(ctx, notify.Message{
			Recipient: admin.Email,
			Channel:   domain.ChannelEmail,
			Kind:      notify.KindEscalation,
			Payload: map[string]any{
				"subcontractor": c.Subcontractor.Name,
				"daysWaiting":   c.DaysWaiting,
				"project":       c.ProjectID,
			},
		})
		if err != nil {
			st.errorf("verification %s: escalation email for %s: %v", c.VerificationID, admin.ID, err)
		}
	}

	if r.recorder != nil {
		_ = r.recorder.Record(ctx, audit.Event{
			CompanyID: company.ID,
			Actor:     JobFollowUps,
			Subject:   "verification",
			SubjectID: c.VerificationID,
			Action:    "follow_up.escalated",
			Detail:    fmt.Sprintf("no response for %d days", c.DaysWaiting),
		})
	}
}
