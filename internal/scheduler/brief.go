package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coverguard/internal/domain"
	"coverguard/internal/notify"
)

// RunMorningBrief emails every company admin a digest of the current
// compliance picture. The brief is computed once per company and fanned out,
// so every admin sees the same numbers.
func (r *Runner) RunMorningBrief(ctx context.Context) (Result, error) {
	return r.run(ctx, JobMorningBrief, func(ctx context.Context, st *runState) error {
		companies := 0
		err := r.forEachCompany(ctx, st, func(ctx context.Context, company domain.Company) error {
			brief, err := r.views.MorningBrief(ctx, company.ID)
			if err != nil {
				return fmt.Errorf("build brief: %w", err)
			}
			admins, err := r.users.ListAdmins(ctx, company.ID)
			if err != nil {
				return fmt.Errorf("list admins: %w", err)
			}
			if len(admins) == 0 {
				return fmt.Errorf("no admin recipients")
			}

			companies++
			rate := "n/a"
			if brief.Stats.ComplianceRate != nil {
				rate = fmt.Sprintf("%.1f%%", *brief.Stats.ComplianceRate)
			}
			for _, admin := range admins {
				if admin.Email == "" {
					st.errorf("admin %s: no email address", admin.ID)
					continue
				}
				err := r.send(ctx, notify.Message{
					Recipient: admin.Email,
					Channel:   domain.ChannelEmail,
					Kind:      notify.KindMorningBrief,
					Payload: map[string]any{
						"company":          company.Name,
						"complianceRate":   rate,
						"stopWorkRisks":    len(brief.StopWorkRisks),
						"pendingResponses": len(brief.PendingResponses),
						"newDocuments":     brief.NewDocuments,
					},
				})
				if err != nil {
					st.errorf("admin %s: %v", admin.ID, err)
					continue
				}
				notification := domain.Notification{
					ID:        uuid.NewString(),
					UserID:    admin.ID,
					CompanyID: company.ID,
					Type:      string(notify.KindMorningBrief),
					Title:     "Morning compliance brief",
					Message:   fmt.Sprintf("Compliance %s, %d stop-work risks, %d pending responses", rate, len(brief.StopWorkRisks), len(brief.PendingResponses)),
					CreatedAt: r.now(),
				}
				if err := r.notifications.Save(ctx, notification); err != nil {
					st.errorf("admin %s: record notification: %v", admin.ID, err)
					continue
				}
				st.processed++
			}
			return nil
		})
		st.setMeta("companies", companies)
		return err
	})
}
