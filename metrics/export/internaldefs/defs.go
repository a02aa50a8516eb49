package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricLoginSuccess, Name: "goguard_login_success_total", Help: "Successful login attempts."},
	{ID: goGuard.MetricLoginFailure, Name: "goguard_login_failure_total", Help: "Login attempts rejected as invalid credentials."},
	{ID: goGuard.MetricLoginLocked, Name: "goguard_login_locked_total", Help: "Login attempts rejected because the username was locked."},
	{ID: goGuard.MetricLoginValidationRejected, Name: "goguard_login_validation_rejected_total", Help: "Login attempts with missing fields."},
	{ID: goGuard.MetricLoginUpstreamFailure, Name: "goguard_login_upstream_failure_total", Help: "Login attempts failed by an upstream dependency."},
	{ID: goGuard.MetricAccountLocked, Name: "goguard_account_locked_total", Help: "Failures that started a lockout."},
	{ID: goGuard.MetricAccountUnlocked, Name: "goguard_account_unlocked_total", Help: "Administrative unlocks."},
	{ID: goGuard.MetricPasswordChangeSuccess, Name: "goguard_password_change_success_total", Help: "Successful password changes."},
	{ID: goGuard.MetricPasswordChangeInvalidCurrent, Name: "goguard_password_change_invalid_current_total", Help: "Password changes with a wrong current password."},
	{ID: goGuard.MetricPasswordChangeMismatch, Name: "goguard_password_change_mismatch_total", Help: "Password changes whose confirmation did not match."},
	{ID: goGuard.MetricPasswordChangeWeak, Name: "goguard_password_change_weak_total", Help: "Password changes rejected by the strength gate."},
	{ID: goGuard.MetricPasswordChangeReuse, Name: "goguard_password_change_reuse_total", Help: "Password changes rejected for reusing the current password."},
	{ID: goGuard.MetricPasswordRehashed, Name: "goguard_password_rehashed_total", Help: "Stored credentials upgraded to current hash parameters."},
	{ID: goGuard.MetricRegistrationSuccess, Name: "goguard_registration_success_total", Help: "Created accounts."},
	{ID: goGuard.MetricRegistrationRejected, Name: "goguard_registration_rejected_total", Help: "Registrations rejected by validation."},
	{ID: goGuard.MetricRegistrationDuplicate, Name: "goguard_registration_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goGuard.MetricSessionCreated, Name: "goguard_session_created_total", Help: "Persisted sessions created."},
	{ID: goGuard.MetricSessionRefreshed, Name: "goguard_session_refreshed_total", Help: "Session refreshes."},
	{ID: goGuard.MetricSessionResumed, Name: "goguard_session_resumed_total", Help: "Sessions resumed from a token."},
	{ID: goGuard.MetricSessionRevoked, Name: "goguard_session_revoked_total", Help: "Persisted sessions revoked."},
	{ID: goGuard.MetricLogout, Name: "goguard_logout_total", Help: "Logouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricVerifyLatency, Name: "goguard_verify_latency_seconds", Help: "Credential verification latency."},
}

// AuditDroppedName is the counter fed by Engine.AuditDropped.
const (
	AuditDroppedName = "goguard_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = 8

// HistogramBounds are the upper bounds, in seconds, of the engine's
// verification latency buckets.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
