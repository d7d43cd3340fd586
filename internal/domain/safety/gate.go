package safety

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Outcome is the gate's delivery decision for one message.
type Outcome string

const (
	OutcomeSafe    Outcome = "safe"    // deliver as-is
	OutcomeFlagged Outcome = "flagged" // deliver, record the flag
	OutcomeBlocked Outcome = "blocked" // persist for audit, never deliver
)

// blockThreshold separates flag-and-deliver from block. Verdicts at or above
// it are withheld from the recipient.
const blockThreshold = 0.8

// Decision carries the outcome plus the classifier's reasoning.
type Decision struct {
	Outcome Outcome
	Score   float64
	Reason  string
}

// Gate wraps a classifier and maps its verdicts to delivery decisions.
type Gate struct {
	classifier Classifier
}

// NewGate creates a safety gate over the given classifier
func NewGate(classifier Classifier) *Gate {
	return &Gate{classifier: classifier}
}

// Review classifies text and decides delivery. A classifier error fails
// closed: the message is flagged rather than silently delivered unreviewed.
func (g *Gate) Review(ctx context.Context, text string, sender string) Decision {
	verdict, err := g.classifier.Classify(ctx, text, sender)
	if err != nil {
		log.Warn().Err(err).Msg("Content classifier unavailable, flagging")
		return Decision{Outcome: OutcomeFlagged, Reason: "classifier_unavailable"}
	}

	if verdict.IsSafe {
		return Decision{Outcome: OutcomeSafe, Score: verdict.Score}
	}

	reason := "unspecified"
	if len(verdict.Reasons) > 0 {
		reason = verdict.Reasons[0]
	}

	if verdict.Score >= blockThreshold {
		return Decision{Outcome: OutcomeBlocked, Score: verdict.Score, Reason: reason}
	}
	return Decision{Outcome: OutcomeFlagged, Score: verdict.Score, Reason: reason}
}

// ReasonText maps reason categories to the human-readable explanation
// returned to senders of blocked content.
func ReasonText(reason string) string {
	switch reason {
	case ReasonURL:
		return "Links are not allowed in chat"
	case ReasonPhone:
		return "Phone numbers are not allowed in chat"
	case ReasonCharFlood:
		return "Character flooding detected"
	case ReasonWordFlood:
		return "Repeated word flooding detected"
	default:
		return "Message violates community guidelines"
	}
}
