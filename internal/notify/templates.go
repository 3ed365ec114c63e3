package notify

import (
	"fmt"
	"strings"
)

// Render produces the subject and body for a message. Templates stay plain
// text by intent; presentation belongs to the web layer, not this core.
func Render(msg Message) (subject, body string) {
	p := msg.Payload
	switch msg.Kind {
	case KindExpirationReminder:
		subject = fmt.Sprintf("Insurance expiry %s: %v", p["severity"], p["subcontractor"])
		body = fmt.Sprintf(
			"The Certificate of Currency for %v (policy %v) %s on %v. Please submit an updated certificate.",
			p["subcontractor"], p["policyNumber"], expiryPhrase(p["severity"]), p["expiresOn"],
		)
	case KindMorningBrief:
		subject = fmt.Sprintf("Morning compliance brief: %v at risk, %v awaiting response", p["stopWorkRisks"], p["pendingResponses"])
		body = fmt.Sprintf(
			"Compliance rate: %v. Stop-work risks: %v. Awaiting responses: %v. New documents in the last 24h: %v.",
			p["complianceRate"], p["stopWorkRisks"], p["pendingResponses"], p["newDocuments"],
		)
	case KindDeficiency:
		subject = fmt.Sprintf("Insurance certificate rejected: %v", p["subcontractor"])
		body = fmt.Sprintf(
			"The submitted Certificate of Currency for %v did not pass verification.\nDeficiencies:\n%s\nPlease submit a corrected certificate.",
			p["subcontractor"], bulletList(p["deficiencies"]),
		)
	case KindFollowUp:
		subject = fmt.Sprintf("Reminder %v: insurance certificate still outstanding", p["followUpNumber"])
		body = fmt.Sprintf(
			"We are still waiting on a corrected Certificate of Currency for %v (%v days now).",
			p["subcontractor"], p["daysWaiting"],
		)
	case KindEscalation:
		subject = fmt.Sprintf("Escalation: %v unresponsive for %v days", p["subcontractor"], p["daysWaiting"])
		body = fmt.Sprintf(
			"%v on project %v has not responded to deficiency notices for %v days. Manual intervention needed.",
			p["subcontractor"], p["project"], p["daysWaiting"],
		)
	case KindStopWorkAlert:
		subject = fmt.Sprintf("Stop-work risk: %v on %v", p["subcontractor"], p["project"])
		body = fmt.Sprintf(
			"%v is scheduled on-site at %v without valid insurance cover (status: %v).",
			p["subcontractor"], p["project"], p["status"],
		)
	case KindExceptionExpired:
		subject = fmt.Sprintf("Compliance exception expired: %v", p["subcontractor"])
		body = fmt.Sprintf(
			"The exception you raised for %v (%v) has expired; compliance status has been recalculated.",
			p["subcontractor"], p["reason"],
		)
	default:
		subject = "Coverguard notification"
		body = fmt.Sprintf("%v", p["message"])
	}
	return subject, body
}

func expiryPhrase(severity any) string {
	if severity == "expired" {
		return "expired"
	}
	return "expires"
}

func bulletList(v any) string {
	items, ok := v.([]string)
	if !ok || len(items) == 0 {
		return "- unspecified\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
