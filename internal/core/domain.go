// Package core holds the shared FirmOS domain vocabulary: jurisdictions,
// agent domains, service categories, and well-known agent roles.
package core

// Jurisdiction is a supported operating jurisdiction.
type Jurisdiction string

const (
	JurisdictionRW Jurisdiction = "RW" // Rwanda
	JurisdictionMT Jurisdiction = "MT" // Malta
)

// Valid reports whether j is one of the supported jurisdiction codes.
func (j Jurisdiction) Valid() bool {
	return j == JurisdictionRW || j == JurisdictionMT
}

// Domain classifies an agent's jurisdiction scope.
type Domain string

const (
	DomainGlobal Domain = "GLOBAL"
	DomainRW     Domain = "RW"
	DomainMT     Domain = "MT"
)

// Jurisdiction maps a regional domain to its jurisdiction.
// Returns ("", false) for the global domain.
func (d Domain) Jurisdiction() (Jurisdiction, bool) {
	switch d {
	case DomainRW:
		return JurisdictionRW, true
	case DomainMT:
		return JurisdictionMT, true
	default:
		return "", false
	}
}

// ServiceCategory is the professional-services line an action belongs to.
type ServiceCategory string

const (
	ServiceAccounting ServiceCategory = "accounting"
	ServiceTax        ServiceCategory = "tax"
	ServiceAudit      ServiceCategory = "audit"
	ServiceNotary     ServiceCategory = "notary"
	ServiceAdvisory   ServiceCategory = "advisory"
)

// Valid reports whether c is a known service category.
func (c ServiceCategory) Valid() bool {
	switch c {
	case ServiceAccounting, ServiceTax, ServiceAudit, ServiceNotary, ServiceAdvisory:
		return true
	}
	return false
}

// Well-known control-plane agents. Marco is the policy governor (the only
// role that may authorize an external release); Diane is the quality
// guardian whose pass is the second half of the dual-control gate.
const (
	AgentPolicyGovernor  = "marco"
	AgentQualityGuardian = "diane"
)

// Severity grades check results and incidents.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)
