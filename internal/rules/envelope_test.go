package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smregler-server/internal/domain"
)

func TestEnvelopeChain(t *testing.T) {
	chain := NewEnvelopeChain()
	metadata := domain.RuleMetadata{SignatureDate: signedAt, ReceivedDate: signedAt}

	envelope := func(mutate func(*domain.Envelope)) EnvelopeRuleData {
		e := &domain.Envelope{
			MsgID:                    "8a0c1c6e-6e58-4b5e-9f4d-2f5d8e7c0b11",
			EdiLoggID:                "1901101200abcd",
			SenderOrganisationNumber: "974600951",
			GeneratedDate:            ptr(signedAt.Add(-time.Hour)),
		}
		if mutate != nil {
			mutate(e)
		}
		return EnvelopeRuleData{Info: e, Metadata: metadata}
	}

	tests := []struct {
		name     string
		data     EnvelopeRuleData
		expected []string
	}{
		{
			name:     "Complete_Envelope",
			data:     envelope(nil),
			expected: []string{},
		},
		{
			name:     "No_Envelope",
			data:     EnvelopeRuleData{Metadata: metadata},
			expected: []string{},
		},
		{
			name:     "Blank_Organisation_Number",
			data:     envelope(func(e *domain.Envelope) { e.SenderOrganisationNumber = "  " }),
			expected: []string{"SENDER_ORGANISATION_NUMBER_MISSING"},
		},
		{
			name:     "Missing_Message_ID",
			data:     envelope(func(e *domain.Envelope) { e.MsgID = "" }),
			expected: []string{"MESSAGE_ID_MISSING"},
		},
		{
			name:     "No_Generated_Date",
			data:     envelope(func(e *domain.Envelope) { e.GeneratedDate = nil }),
			expected: []string{},
		},
		{
			name:     "Generated_Two_Hours_After_Received",
			data:     envelope(func(e *domain.Envelope) { e.GeneratedDate = ptr(signedAt.Add(2 * time.Hour)) }),
			expected: []string{},
		},
		{
			name:     "Generated_Three_Hours_After_Received",
			data:     envelope(func(e *domain.Envelope) { e.GeneratedDate = ptr(signedAt.Add(3 * time.Hour)) }),
			expected: []string{"GENERATED_DATE_AFTER_RECEIVED_DATE"},
		},
		{
			name: "Everything_Missing",
			data: envelope(func(e *domain.Envelope) {
				e.MsgID = ""
				e.SenderOrganisationNumber = ""
			}),
			expected: []string{"SENDER_ORGANISATION_NUMBER_MISSING", "MESSAGE_ID_MISSING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(chain.ExecuteFlow(tt.data)))
		})
	}
}

func TestEnvelopeChainCatalog(t *testing.T) {
	chain := NewEnvelopeChain()

	assert.Equal(t, EnvelopeChainName, chain.Name())
	infos := chain.Infos()
	assert.Equal(t, 1031, *infos[0].RuleID)
	assert.Equal(t, 1032, *infos[1].RuleID)
	assert.Nil(t, infos[2].RuleID)
	assert.Equal(t, domain.MANUAL_PROCESSING, infos[2].Status)
}
