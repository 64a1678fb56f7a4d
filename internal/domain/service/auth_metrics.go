package service

// Outcome labels recorded by AuthMetrics. Refresh failure reasons never reach the caller;
// they exist for incident response only.
const (
	RefreshFailureNotFound    = "not_found"
	RefreshFailureRevoked     = "revoked"
	RefreshFailureExpired     = "expired"
	RefreshFailureUserMissing = "user_missing"
	RefreshFailureRaceLost    = "race_lost"

	LoginFailureVerification = "verification"
	LoginFailureProvider     = "provider"
)

// AuthMetrics records authentication outcomes.
type AuthMetrics interface {
	RecordLogin(provider string, newUser bool)
	RecordLoginFailure(reason string)
	RecordRefresh()
	RecordRefreshFailure(reason string)
	RecordRevocations(scope string, count int)
	RecordRegistrationRace()
	RecordEventPublish(succeeded bool)
}
