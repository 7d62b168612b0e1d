// Package model contains domain models passed between layers.
package model

import "strings"

// CoverageStatus is the outcome of a coverage evaluation.
type CoverageStatus string

// Coverage statuses.
const (
	StatusActive   CoverageStatus = "ACTIVE"
	StatusInactive CoverageStatus = "INACTIVE"
)

// WaitingFlag marks a service that falls inside a restriction window.
type WaitingFlag string

// Waiting flags. The empty flag means no window applies.
const (
	FlagNone               WaitingFlag = ""
	FlagWaitingPeriodOrCPT WaitingFlag = "possible waiting period or CPT"
	FlagCPT                WaitingFlag = "possible CPT"
)

// MappingStatus is the outcome of a procedure terminology lookup.
type MappingStatus string

// Mapping statuses.
const (
	MappingMapped    MappingStatus = "mapped"
	MappingUnmapped  MappingStatus = "unmapped"
	MappingEmptyCode MappingStatus = "empty-code"
)

// MandatoryCoverage tells whether a standardized procedure must be covered.
type MandatoryCoverage string

// Mandatory coverage values.
const (
	MandatoryYes MandatoryCoverage = "yes"
	MandatoryNo  MandatoryCoverage = "no"
)

// NotFound is stored in StandardCode and EquivalenceGrade when no mapping applies.
const NotFound = "not found"

// ContractRecord is one beneficiary contract timeline segment from a period registry.
type ContractRecord struct {
	BeneficiaryID    string
	ContractingDate  Date
	CancellationDate Date
	ReactivationDate Date
	Line             int // 1-based data line in the registry file
}

// Coverage holds the derived coverage fields of a ServiceEvent.
type Coverage struct {
	Status      CoverageStatus
	Note        string
	WaitingFlag WaitingFlag
	Rule        string
}

// Mapping holds the derived terminology fields of a ServiceEvent.
type Mapping struct {
	Status            MappingStatus
	StandardCode      string
	EquivalenceGrade  string
	MandatoryCoverage MandatoryCoverage
}

// ServiceEvent is one beneficiary service occurrence read from the events file.
type ServiceEvent struct {
	Index            int // position in the input, used to keep output order
	BeneficiaryID    string
	ServiceStartDate Date
	ProcedureCode    string

	// Header and Values keep the original row for export.
	Header []string
	Values []string

	Coverage Coverage
	Mapping  Mapping
}

// NormalizeID turns a spreadsheet cell into a comparable identifier: surrounding
// spaces are dropped and a float artifact such as "12345.0" becomes "12345".
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" && isDigits(s[:i]) {
		return s[:i]
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
