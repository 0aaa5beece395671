// internal/workers/leads/auto-assign-lead/notify.go
package autoassignlead

import (
	"context"
	"fmt"
	"strings"
)

// Publisher is satisfied by *aws.SNSClient.
type Publisher interface {
	PublishEvent(ctx context.Context, topicARN, eventType string, payload interface{}) (string, error)
}

// Mailer is satisfied by *aws.SESClient.
type Mailer interface {
	SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

func triageEmail(ev DecisionEvent) (subject, body string) {
	subject = fmt.Sprintf("Lead %s needs manual assignment", ev.LeadID)

	var b strings.Builder
	fmt.Fprintf(&b, "Lead %s (vehicle %s) was not auto-assigned.\n\n", ev.LeadID, ev.VehicleID)
	if ev.EligibleCount > 0 {
		fmt.Fprintf(&b, "Best candidate scored %d, below the auto-assignment threshold.\n", ev.Score)
	} else {
		b.WriteString("No salesperson had capacity for this lead.\n")
	}
	fmt.Fprintf(&b, "Decided at %s.\n", ev.DecidedAt.Format("2006-01-02 15:04 MST"))
	return subject, b.String()
}
