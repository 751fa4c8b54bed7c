package rules

import (
	"time"

	"github.com/smregler-server/internal/domain"
)

// HealthRuleData is the input of the chains that read the clinical body.
type HealthRuleData = domain.RuleData[*domain.HealthInformation]

// PeriodLogicChainName names the chain returned by NewPeriodLogicChain.
const PeriodLogicChainName = "periodLogicRuleChain"

const (
	pendingEmployerPaidDays = 16
	minGradedPercentage     = 20
	maxGradedPercentage     = 99
	receivedDateTolerance   = 2 * time.Hour
)

func processedDate(info *domain.HealthInformation) *time.Time {
	if info == nil || info.PatientContact == nil {
		return nil
	}
	return info.PatientContact.ProcessedDate
}

func contactDate(info *domain.HealthInformation) *domain.Date {
	if info == nil || info.PatientContact == nil {
		return nil
	}
	return info.PatientContact.ContactDate
}

// NewPeriodLogicChain returns the rules over the periods and dates of a certificate.
func NewPeriodLogicChain() *Chain[HealthRuleData] {
	return MustNewChain(PeriodLogicChainName,
		Rule[HealthRuleData]{
			Name:        "SIGNATURE_DATE_AFTER_RECEIVED_DATE",
			ID:          id(1110),
			Description: "The processed date (field 12.1) is after the date the certificate was signed.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				processed := processedDate(in.Info)
				if processed == nil {
					return false
				}
				return processed.After(in.Metadata.SignatureDate)
			},
		},
		Rule[HealthRuleData]{
			Name:        "NO_PERIOD_PROVIDED",
			ID:          id(1200),
			Description: "The certificate is rejected when no period is given.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				return len(in.Info.Periods()) == 0
			},
		},
		Rule[HealthRuleData]{
			Name:        "TO_DATE_BEFORE_FROM_DATE",
			ID:          id(1201),
			Description: "The certificate is rejected when a period ends before it starts.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.From.After(p.To) {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "OVERLAPPING_PERIODS",
			ID:          id(1202),
			Description: "The certificate is rejected when one or more periods overlap.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				return Overlapping(in.Info.Periods())
			},
		},
		Rule[HealthRuleData]{
			Name:        "GAP_BETWEEN_PERIODS",
			ID:          id(1203),
			Description: "The certificate is rejected when there are uncovered workdays between periods.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				return HasGap(in.Info.Periods())
			},
		},
		Rule[HealthRuleData]{
			Name:        "BACKDATED_MORE_THEN_8_DAYS_AND_UNDER_1_YEAR_BACKDATED",
			ID:          id(1204),
			Description: "A period starts on the case start date and the first contact is more than 8 days but less than a year after it.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				contact := contactDate(in.Info)
				if contact == nil || in.Info.CaseStartDate == nil {
					return false
				}
				for _, p := range in.Info.Periods() {
					if !p.From.Equal(*in.Info.CaseStartDate) {
						continue
					}
					if contact.After(p.From.AddDays(7)) && !contact.After(AddYearsToDate(p.From, 1).AddDays(-1)) {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "BACKDATED_MORE_THEN_3_YEARS",
			ID:          id(1206),
			Description: "The certificate is backdated more than 3 years.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				processed := processedDate(in.Info)
				if processed == nil {
					return false
				}
				return AddYears(in.Metadata.SignatureDate, -3).After(*processed)
			},
		},
		Rule[HealthRuleData]{
			Name:        "BACKDATED_WITH_REASON",
			ID:          id(1207),
			Description: "The certificate is backdated up to 3 years and a reason for the backdating is given.",
			Status:      domain.MANUAL_PROCESSING,
			Predicate: func(in HealthRuleData) bool {
				processed := processedDate(in.Info)
				if processed == nil {
					return false
				}
				return AddYears(in.Metadata.SignatureDate, -3).Before(*processed) &&
					in.Info.PatientContact.LateContactJustification != ""
			},
		},
		Rule[HealthRuleData]{
			Name:        "PRE_DATED",
			ID:          id(1209),
			Description: "The certificate is rejected when it starts more than 30 days after the signature date.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				periods := in.Info.Periods()
				if len(periods) == 0 {
					return false
				}
				signed := in.Metadata.SignatureDate
				first := SortedFromDates(periods)[0]
				return first.AtStartOfDayIn(signed.Location()).After(signed.AddDate(0, 0, 30))
			},
		},
		Rule[HealthRuleData]{
			Name:        "END_DATE",
			ID:          id(1211),
			Description: "The certificate is rejected when it ends more than one year after the processed date.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				periods := in.Info.Periods()
				processed := processedDate(in.Info)
				if len(periods) == 0 || processed == nil {
					return false
				}
				ends := SortedToDates(periods)
				return ends[len(ends)-1].AtStartOfDayIn(processed.Location()).After(AddYears(*processed, 1))
			},
		},
		Rule[HealthRuleData]{
			Name:        "RECEIVED_DATE_BEFORE_PROCESSED_DATE",
			ID:          id(1123),
			Description: "The certificate is rejected when the processed date is after the date it was received.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				processed := processedDate(in.Info)
				if processed == nil {
					return false
				}
				return processed.After(in.Metadata.ReceivedDate.Add(receivedDateTolerance))
			},
		},
		Rule[HealthRuleData]{
			Name:        "PENDING_SICK_LEAVE_COMBINED",
			ID:          id(1240),
			Description: "A pending sick leave cannot be combined with other periods.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				periods := in.Info.Periods()
				if len(periods) < 2 {
					return false
				}
				for _, p := range periods {
					if p.Pending != nil {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "MISSING_INSPILL_TIL_ARBEIDSGIVER",
			ID:          id(1241),
			Description: "A pending sick leave is rejected when the notice to the employer about adaptation (field 4.1.3) is missing.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.Pending != nil && p.Pending.NoticeToEmployer == nil {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "PENDING_PERIOD_OUTSIDE_OF_EMPLOYER_PAID",
			ID:          id(1242),
			Description: "A pending sick leave is rejected when it lasts beyond the 16 calendar days of the employer period.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.Pending != nil && DaysBetween(p.From, p.To)+1 > pendingEmployerPaidDays {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "TOO_MANY_TREATMENT_DAYS",
			ID:          id(1250),
			Description: "The certificate is rejected when it gives more than one treatment day per started week of the period.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.TreatmentDays != nil && p.TreatmentDays.DaysPerWeek > StartedWeeksBetween(p.From, p.To) {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "PARTIAL_SICK_LEAVE_PERCENTAGE_TO_LOW",
			ID:          id(1251),
			Description: "A graded sick leave is rejected when the percentage is below 20%.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.Graded != nil && p.Graded.Percentage < minGradedPercentage {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "PARTIAL_SICK_LEAVE_TOO_HIGH_PERCENTAGE",
			ID:          id(1252),
			Description: "A graded sick leave is rejected when the percentage is above 99%.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				for _, p := range in.Info.Periods() {
					if p.Graded != nil && p.Graded.Percentage > maxGradedPercentage {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "BACKDATING_SYKMELDING_EXTENSION",
			Description: "The start of an extension may be at most one month from the signature date.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				periods := in.Info.Periods()
				if len(periods) == 0 {
					return false
				}
				signed := in.Metadata.SignatureDate
				first := SortedFromDates(periods)[0]
				return AddMonths(first.AtStartOfDayIn(signed.Location()), -1).After(signed)
			},
		},
	)
}
