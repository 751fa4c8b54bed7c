package rules

import (
	"strings"

	"github.com/smregler-server/internal/domain"
)

// EnvelopeRuleData is the input of the chain that reads the transport header.
type EnvelopeRuleData = domain.RuleData[*domain.Envelope]

// EnvelopeChainName names the chain returned by NewEnvelopeChain.
const EnvelopeChainName = "fellesformatValidationChain"

// NewEnvelopeChain returns the rules over the header that wraps the certificate.
func NewEnvelopeChain() *Chain[EnvelopeRuleData] {
	return MustNewChain(EnvelopeChainName,
		Rule[EnvelopeRuleData]{
			Name:        "SENDER_ORGANISATION_NUMBER_MISSING",
			ID:          id(1031),
			Description: "The message is rejected when the sender's organisation number is missing.",
			Status:      domain.INVALID,
			Predicate: func(in EnvelopeRuleData) bool {
				return in.Info != nil && strings.TrimSpace(in.Info.SenderOrganisationNumber) == ""
			},
		},
		Rule[EnvelopeRuleData]{
			Name:        "MESSAGE_ID_MISSING",
			ID:          id(1032),
			Description: "The message is rejected when it has no message id.",
			Status:      domain.INVALID,
			Predicate: func(in EnvelopeRuleData) bool {
				return in.Info != nil && strings.TrimSpace(in.Info.MsgID) == ""
			},
		},
		Rule[EnvelopeRuleData]{
			Name:        "GENERATED_DATE_AFTER_RECEIVED_DATE",
			Description: "A message generated after it was received needs manual processing.",
			Status:      domain.MANUAL_PROCESSING,
			Predicate: func(in EnvelopeRuleData) bool {
				if in.Info == nil || in.Info.GeneratedDate == nil {
					return false
				}
				return in.Info.GeneratedDate.After(in.Metadata.ReceivedDate.Add(receivedDateTolerance))
			},
		},
	)
}
