package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coverguard/internal/aggregate"
	"coverguard/internal/domain"
	"coverguard/internal/idempotency"
	"coverguard/internal/notify"
)

// RunStopWorkAlerts raises critical alerts for non-compliant subcontractors
// who are due on site. Admins get in-app notifications; the project manager
// gets both an email and an SMS on whatever channels they have. At most one
// alert per assignment per calendar day.
func (r *Runner) RunStopWorkAlerts(ctx context.Context) (StopWorkResult, error) {
	var smsSent int
	res, err := r.run(ctx, JobStopWorkAlerts, func(ctx context.Context, st *runState) error {
		err := r.forEachCompany(ctx, st, func(ctx context.Context, company domain.Company) error {
			risks, err := r.views.StopWorkRisks(ctx, company.ID, true)
			if err != nil {
				return fmt.Errorf("list stop-work risks: %w", err)
			}
			if len(risks) == 0 {
				return nil
			}
			admins, err := r.users.ListAdmins(ctx, company.ID)
			if err != nil {
				return fmt.Errorf("list admins: %w", err)
			}
			for _, risk := range risks {
				sent, err := r.raiseStopWorkAlert(ctx, company, risk, admins, st)
				if err != nil {
					st.errorf("assignment %s: %v", risk.AssignmentID, err)
					continue
				}
				if sent {
					st.processed++
				}
			}
			return nil
		})
		smsSent = st.smsSent
		st.setMeta("smsSent", st.smsSent)
		return err
	})
	return StopWorkResult{Result: res, SMSSent: smsSent}, err
}

func (r *Runner) raiseStopWorkAlert(ctx context.Context, company domain.Company, risk aggregate.StopWorkRisk, admins []domain.User, st *runState) (bool, error) {
	now := r.now()
	day := domain.Day(now)
	already, err := r.communications.SentForAssignmentOnDay(ctx, risk.ProjectID, risk.SubcontractorID, domain.CommCriticalAlert, day)
	if err != nil {
		return false, fmt.Errorf("check alert history: %w", err)
	}
	if already {
		return false, nil
	}
	if !r.acquire(ctx, idempotency.Key(string(notify.KindStopWorkAlert), risk.AssignmentID, now)) {
		return false, nil
	}

	payload := map[string]any{
		"subcontractor": risk.Subcontractor.Name,
		"project":       risk.ProjectName,
		"status":        string(risk.Status),
	}
	if risk.OnSiteDate != nil {
		payload["onSiteDate"] = risk.OnSiteDate.Format("2006-01-02")
	}

	for _, admin := range admins {
		notification := domain.Notification{
			ID:        uuid.NewString(),
			UserID:    admin.ID,
			CompanyID: company.ID,
			Type:      string(notify.KindStopWorkAlert),
			Title:     "Stop-work risk",
			Message:   fmt.Sprintf("%s is due on %s while %s", risk.Subcontractor.Name, risk.ProjectName, risk.Status),
			CreatedAt: now,
		}
		if err := r.notifications.Save(ctx, notification); err != nil {
			st.errorf("assignment %s: notification for %s: %v", risk.AssignmentID, admin.ID, err)
		}
	}

	recipient := r.alertProjectManager(ctx, risk, payload, st)

	comm := domain.Communication{
		ID:              uuid.NewString(),
		SubcontractorID: risk.SubcontractorID,
		ProjectID:       risk.ProjectID,
		Type:            domain.CommCriticalAlert,
		Channel:         domain.ChannelEmail,
		Recipient:       recipient,
		Status:          domain.CommSent,
		SentAt:          now,
	}
	if err := r.communications.Save(ctx, comm); err != nil {
		return false, fmt.Errorf("record alert: %w", err)
	}
	return true, nil
}

// alertProjectManager sends the manager an email and an SMS on whichever
// channels they have. Manager lookup or send failures degrade to recorded
// errors; the admin notifications already went out.
func (r *Runner) alertProjectManager(ctx context.Context, risk aggregate.StopWorkRisk, payload map[string]any, st *runState) string {
	project, err := r.projects.FindByID(ctx, risk.ProjectID)
	if err != nil {
		st.errorf("assignment %s: load project: %v", risk.AssignmentID, err)
		return ""
	}
	if project.ManagerID == "" {
		return ""
	}
	manager, err := r.users.FindByID(ctx, project.ManagerID)
	if err != nil {
		st.errorf("assignment %s: load manager: %v", risk.AssignmentID, err)
		return ""
	}
	if manager.Email != "" {
		err := r.send(ctx, notify.Message{
			Recipient: manager.Email,
			Channel:   domain.ChannelEmail,
			Kind:      notify.KindStopWorkAlert,
			Payload:   payload,
		})
		if err != nil {
			st.errorf("assignment %s: manager email: %v", risk.AssignmentID, err)
		}
	}
	if manager.Phone != "" {
		err := r.send(ctx, notify.Message{
			Recipient: manager.Phone,
			Channel:   domain.ChannelSMS,
			Kind:      notify.KindStopWorkAlert,
			Payload:   payload,
		})
		if err != nil {
			st.errorf("assignment %s: manager sms: %v", risk.AssignmentID, err)
		} else {
			st.smsSent++
		}
	}
	return manager.Email
}
