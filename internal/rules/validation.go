package rules

import (
	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
)

// ValidationChainName names the chain returned by NewValidationChain.
const ValidationChainName = "validationRuleChain"

// NewValidationChain returns the rules over the diagnoses of a certificate. The
// registry is read-only and shared by all evaluations.
func NewValidationChain(registry *diagnosis.Registry) *Chain[HealthRuleData] {
	return MustNewChain(ValidationChainName,
		Rule[HealthRuleData]{
			Name:        "MAIN_DIAGNOSIS_MISSING",
			ID:          id(1130),
			Description: "The certificate is rejected when no main diagnosis is given.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				return in.Info == nil || in.Info.MainDiagnosis == nil
			},
		},
		Rule[HealthRuleData]{
			Name:        "INVALID_CODE_SYSTEM",
			ID:          id(1137),
			Description: "The certificate is rejected when the main diagnosis is coded in neither ICPC-2 nor ICD-10.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				main := mainDiagnosis(in.Info)
				if main == nil {
					return false
				}
				_, known := diagnosis.SystemFromOID(main.System)
				return !known
			},
		},
		Rule[HealthRuleData]{
			Name:        "UNKNOWN_DIAGNOSIS_CODE",
			ID:          id(1132),
			Description: "The certificate is rejected when the ICPC-2 main diagnosis code does not exist.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				main := mainDiagnosis(in.Info)
				if main == nil || main.System != diagnosis.ICPC2.OID() {
					return false
				}
				_, found := registry.Lookup(diagnosis.ICPC2, main.Code)
				return !found
			},
		},
		Rule[HealthRuleData]{
			Name:        "UNKNOWN_BIDIAGNOSIS_CODE",
			ID:          id(1143),
			Description: "The certificate is rejected when an ICPC-2 bi-diagnosis code does not exist.",
			Status:      domain.INVALID,
			Predicate: func(in HealthRuleData) bool {
				if in.Info == nil {
					return false
				}
				for _, bi := range in.Info.BiDiagnoses {
					if bi.System != diagnosis.ICPC2.OID() {
						continue
					}
					if _, found := registry.Lookup(diagnosis.ICPC2, bi.Code); !found {
						return true
					}
				}
				return false
			},
		},
		Rule[HealthRuleData]{
			Name:        "NO_ICPC2_EQUIVALENT",
			ID:          id(1138),
			Description: "An ICD-10 main diagnosis without an ICPC-2 equivalent needs manual processing.",
			Status:      domain.MANUAL_PROCESSING,
			Predicate: func(in HealthRuleData) bool {
				main := mainDiagnosis(in.Info)
				if main == nil || main.System != diagnosis.ICD10.OID() {
					return false
				}
				code, found := registry.Lookup(diagnosis.ICD10, main.Code)
				if !found {
					return true
				}
				return len(registry.CrossReference(code)) == 0
			},
		},
	)
}

func mainDiagnosis(info *domain.HealthInformation) *domain.DiagnosisRef {
	if info == nil {
		return nil
	}
	return info.MainDiagnosis
}
