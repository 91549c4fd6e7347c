package domain

import "time"

// Key builders for every record type in the KV store. Each detector
// and service owns exactly one namespace; keys are never assembled ad
// hoc at call sites, so namespaces cannot collide.

func AssessmentKey(id string) string { return "fraud:assessment:" + id }

func VelocityIdentityKey(identityID string) string { return "fraud:velocity:identity:" + identityID }
func VelocityIPKey(ip string) string               { return "fraud:velocity:ip:" + ip }
func VelocityAmountKey(identityID string) string   { return "fraud:velocity:amount:" + identityID }

func DeviceHistoryKey(identityID string) string   { return "fraud:devices:" + identityID }
func LocationHistoryKey(identityID string) string { return "fraud:locations:" + identityID }
func ProfileKey(identityID string) string         { return "fraud:profile:" + identityID }

func BlockIdentityKey(identityID string) string { return "fraud:block:identity:" + identityID }
func BlockIPKey(ip string) string               { return "fraud:block:ip:" + ip }

func EmailReputationKey(email string) string { return "fraud:reputation:email:" + email }
func IPReputationKey(ip string) string       { return "fraud:reputation:ip:" + ip }

func CardFailuresKey(identityID string) string { return "fraud:card:failures:" + identityID }
func TestCardKey(identityID string) string     { return "fraud:card:testcard:" + identityID }

func SecurityEventKey(id string) string { return "security:event:" + id }

// Enumeration patterns for admin/analytics pulls.
const (
	AssessmentKeyPattern    = "fraud:assessment:*"
	BlockKeyPattern         = "fraud:block:*"
	SecurityEventKeyPattern = "security:event:*"
)

// Retention policy per record type.
const (
	AssessmentTTL      = time.Hour
	VelocityWindow     = time.Hour
	DeviceHistoryTTL   = 7 * 24 * time.Hour
	LocationHistoryTTL = 30 * 24 * time.Hour
	ProfileTTL         = 30 * 24 * time.Hour
	SecurityEventTTL   = 7 * 24 * time.Hour
	DefaultBlockTTL    = 24 * time.Hour
)
