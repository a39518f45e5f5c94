package domain

import "time"

const (
	RoleMember  = "MEMBER"
	RoleCreator = "CREATOR"
)

const (
	PaymentTypeInitial   = "initial"
	PaymentTypeRecurring = "recurring"
)

const (
	CommissionStatusPending  = "pending"
	CommissionStatusPaid     = "paid"
	CommissionStatusReversed = "reversed"
)

const (
	OriginOrganic  = "organic"
	OriginReferred = "referred"
)

// AttributionWindow is how long after a click a signup may still be
// credited to it.
const AttributionWindow = 30 * 24 * time.Hour

// UnknownOriginHash is stored when the raw network origin is missing.
// Click recording never fails on a hashing problem.
const UnknownOriginHash = "unknown"

// PlatformRatePercent is the fixed platform cut on every sale.
const PlatformRatePercent = 20.0

// MaxSaleCents is a hard validation ceiling on inbound sale amounts, in minor units.
const MaxSaleCents = 1_000_000

// Custom rate bounds (percent). A creator-set override outside these is rejected.
const (
	MinCustomRatePercent = 10.0
	MaxCustomRatePercent = 30.0
)
