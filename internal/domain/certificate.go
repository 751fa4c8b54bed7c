package domain

import (
	"time"
)

// Diagnosis code system OIDs used in certificates.
const (
	ICPC2SystemOID = "2.16.578.1.12.4.1.1.7170"
	ICD10SystemOID = "2.16.578.1.12.4.1.1.7110"
)

// HealthInformation is the clinical body of a sick-leave certificate, already parsed
// from the inbound document. The rule engine only reads it.
type HealthInformation struct {
	CaseStartDate  *Date           `json:"case_start_date,omitempty"`
	Activity       *Activity       `json:"activity,omitempty"`
	PatientContact *PatientContact `json:"patient_contact,omitempty"`
	MainDiagnosis  *DiagnosisRef   `json:"main_diagnosis,omitempty"`
	BiDiagnoses    []DiagnosisRef  `json:"bi_diagnoses,omitempty"`
}

// Periods returns the declared activity periods, or nil when none were given.
func (h *HealthInformation) Periods() []Period {
	if h == nil || h.Activity == nil {
		return nil
	}
	return h.Activity.Periods
}

// Activity holds the declared periods of work incapacity.
type Activity struct {
	Periods []Period `json:"periods"`
}

// Period is a contiguous date range of declared incapacity. At most one of the
// sub-variants is normally set.
type Period struct {
	From          Date              `json:"from"`
	To            Date              `json:"to"`
	Pending       *PendingSickLeave `json:"pending,omitempty"`
	Graded        *GradedSickLeave  `json:"graded,omitempty"`
	TreatmentDays *TreatmentDays    `json:"treatment_days,omitempty"`
}

// PendingSickLeave marks a period where the employer is asked to adapt the work
// before leave is granted ("avventende sykmelding").
type PendingSickLeave struct {
	// NoticeToEmployer is the clinician's input to the employer about adaptation.
	NoticeToEmployer *string `json:"notice_to_employer,omitempty"`
}

// GradedSickLeave is a partial leave with a percentage of incapacity.
type GradedSickLeave struct {
	Percentage int `json:"percentage"`
}

// TreatmentDays is a period granted as a number of treatment days per week.
type TreatmentDays struct {
	DaysPerWeek int `json:"days_per_week"`
}

// PatientContact describes when the clinician saw the patient.
type PatientContact struct {
	ContactDate *Date `json:"contact_date,omitempty"`
	// ProcessedDate is the "behandlet" timestamp: when the certificate was written.
	ProcessedDate *time.Time `json:"processed_date,omitempty"`
	// LateContactJustification explains backdating when contact happened late.
	LateContactJustification string `json:"late_contact_justification,omitempty"`
}

// DiagnosisRef is a diagnosis as written on the certificate: a code system OID and a code.
type DiagnosisRef struct {
	System string `json:"system"`
	Code   string `json:"code"`
	Text   string `json:"text,omitempty"`
}

// Envelope is the transport header around the certificate.
type Envelope struct {
	MsgID                    string     `json:"msg_id"`
	EdiLoggID                string     `json:"edi_logg_id,omitempty"`
	SenderOrganisationNumber string     `json:"sender_organisation_number,omitempty"`
	GeneratedDate            *time.Time `json:"generated_date,omitempty"`
}

// RuleMetadata carries request timestamps that rules compare the certificate against.
type RuleMetadata struct {
	SignatureDate time.Time `json:"signature_date"`
	ReceivedDate  time.Time `json:"received_date"`
}

// RuleData pairs one fragment of the document with the request metadata.
type RuleData[T any] struct {
	Info     T
	Metadata RuleMetadata
}
