// Package diagnosis holds the cross-reference between the two diagnosis code systems
// used on sick-leave certificates: ICPC-2 (primary care) and ICD-10 (disease
// classification). The registry is built once at startup and is read-only afterwards,
// so it can be shared by concurrent validations without locking.
package diagnosis

import (
	"strings"

	"github.com/smregler-server/internal/domain"
)

// System identifies a diagnosis code system.
type System string

const (
	ICPC2 System = "ICPC2"
	ICD10 System = "ICD10"
)

// OID returns the object identifier that certificates use for the system.
func (s System) OID() string {
	switch s {
	case ICPC2:
		return domain.ICPC2SystemOID
	case ICD10:
		return domain.ICD10SystemOID
	default:
		return ""
	}
}

// Other returns the system that s cross-references.
func (s System) Other() System {
	if s == ICPC2 {
		return ICD10
	}
	return ICPC2
}

// IsValid reports whether s is a known system.
func (s System) IsValid() bool {
	return s == ICPC2 || s == ICD10
}

// SystemFromOID maps a certificate OID to a System.
func SystemFromOID(oid string) (System, bool) {
	switch oid {
	case domain.ICPC2SystemOID:
		return ICPC2, true
	case domain.ICD10SystemOID:
		return ICD10, true
	default:
		return "", false
	}
}

// ParseSystem accepts a system name in any case, with or without the dash
// ("icpc-2", "ICD10"), or a certificate OID.
func ParseSystem(value string) (System, bool) {
	if system, ok := SystemFromOID(value); ok {
		return system, true
	}
	system := System(strings.ToUpper(strings.ReplaceAll(value, "-", "")))
	return system, system.IsValid()
}

// Code is one entry of a code system.
type Code struct {
	System System `json:"system"`
	Value  string `json:"code"`
	Text   string `json:"text"`
}

type entry struct {
	code Code
	refs []Code
}

// Registry maps codes of each system to their equivalents in the other system.
type Registry struct {
	codes map[System]map[string]*entry
}

// Lookup returns the code with the given value in system. A missing code is not an
// error: some codes have no place in the table.
func (r *Registry) Lookup(system System, value string) (Code, bool) {
	e, ok := r.codes[system][value]
	if !ok {
		return Code{}, false
	}
	return e.code, true
}

// LookupOID is Lookup keyed by the certificate OID of the system.
func (r *Registry) LookupOID(oid, value string) (Code, bool) {
	system, ok := SystemFromOID(oid)
	if !ok {
		return Code{}, false
	}
	return r.Lookup(system, value)
}

// CrossReference returns the codes in the other system that code maps to, in table
// order. Unknown codes and codes without equivalents yield an empty slice.
func (r *Registry) CrossReference(code Code) []Code {
	e, ok := r.codes[code.System][code.Value]
	if !ok {
		return []Code{}
	}
	refs := make([]Code, len(e.refs))
	copy(refs, e.refs)
	return refs
}

// Len returns the number of codes registered for system.
func (r *Registry) Len(system System) int {
	return len(r.codes[system])
}
