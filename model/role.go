package model

// Role is the access role attached to the current admin user. Roles are
// mutually exclusive; a user carries exactly one (or none).
type Role string

// The closed set of recognized roles. Anything else derives no capabilities.
const (
	RoleSuper           Role = "super"
	RoleAdmin           Role = "admin"
	RoleObserver        Role = "observer"
	RoleCustomerService Role = "customerservice"
	RoleAnonymous       Role = "anonymous"
)

// Capabilities is the fixed set of boolean UI permissions derived from a
// role. Capabilities may overlap across roles; for example both super and
// admin satisfy CanWrite.
type Capabilities struct {
	CanAdmin           bool `json:"canAdmin"`
	CanSuper           bool `json:"canSuper"`
	CanObserver        bool `json:"canObserver"`
	CanCustomerService bool `json:"canCustomerService"`
	CanWrite           bool `json:"canWrite"`

	// Section visibility flags for the navigation menu.
	UsersSectionVisible  bool `json:"canUsersSectionVisible"`
	LogsSectionVisible   bool `json:"canLogsSectionVisible"`
	NonCSSectionsVisible bool `json:"canNonCSSectionsVisible"`
	SynthesisVisible     bool `json:"canSynthesisVisible"`
}

// DeriveCapabilities maps a role to its capability set. It is deterministic
// and side-effect free: the same role always yields the same set. An empty or
// unrecognized role yields all-false. SynthesisVisible is pinned to false for
// every role.
func DeriveCapabilities(role Role) Capabilities {
	if role == "" {
		return Capabilities{}
	}

	isSuper := role == RoleSuper
	isAdmin := role == RoleAdmin
	isObserver := role == RoleObserver
	isCS := role == RoleCustomerService

	return Capabilities{
		CanAdmin:           isAdmin || isSuper,
		CanSuper:           isSuper,
		CanObserver:        isObserver,
		CanCustomerService: isCS,
		CanWrite:           isSuper || isAdmin,

		UsersSectionVisible:  isSuper || isAdmin || isObserver || isCS,
		LogsSectionVisible:   isSuper || isAdmin || isObserver || isCS,
		NonCSSectionsVisible: isSuper || isAdmin || isObserver,
		SynthesisVisible:     false,
	}
}

// SectionVisible reports whether a named menu section is visible under the
// capability set. Unknown section names default to the non-customer-service
// rule, matching how business sections were grouped originally.
func (c Capabilities) SectionVisible(section string) bool {
	switch section {
	case "", SectionGeneral:
		return true
	case SectionUsers:
		return c.UsersSectionVisible
	case SectionLogs:
		return c.LogsSectionVisible
	case SectionSynthesis:
		return c.SynthesisVisible
	default:
		return c.NonCSSectionsVisible
	}
}

// Named menu sections referenced by console definitions.
const (
	SectionGeneral   = "general"
	SectionUsers     = "users"
	SectionLogs      = "logs"
	SectionBusiness  = "business"
	SectionSynthesis = "synthesis"
)
