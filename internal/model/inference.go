package model

import "time"

// AccessPolicy is a named quota template shared by reference across
// inference models and user access bindings. Policies are immutable
// after creation in normal operation.
type AccessPolicy struct {
	ID              uint64 // access_policies.id
	Name            string // access_policies.name
	DailyAPICalls   int    // access_policies.daily_api_calls
	MonthlyAPICalls int    // access_policies.monthly_api_calls
}

// InferenceModel is a registered predictor together with its lifecycle
// metadata and the access policy governing calls against it. Rows are
// created by seeding and are read-mostly afterwards.
type InferenceModel struct {
	ID               uint64     // inference_models.id
	Name             string     // inference_models.name
	Problem          string     // inference_models.problem (e.g. "classification")
	Category         string     // inference_models.category
	Version          string     // inference_models.version
	DeploymentStatus string     // inference_models.deployment_status
	InProduction     bool       // inference_models.in_production
	FirstDeployed    *time.Time // inference_models.first_deployed (nullable)
	LastUpdated      *time.Time // inference_models.last_updated (nullable)
	SourceURL        string     // inference_models.source_url
	AccessPolicyID   uint64     // inference_models.access_policy_id
}

// UserAccess binds one user to one governed model under a policy and
// carries the live usage counters. DailyCalls and MonthlyCalls count
// requests within the current UTC day and month respectively; both are
// reset on period rollover relative to LastAccessed. All mutation goes
// through the check-and-record operation, which serializes updates per
// (user, model) pair with a row lock.
type UserAccess struct {
	UserID         uint64    // user_access.user_id
	ModelID        uint64    // user_access.model_id
	AccessPolicyID uint64    // user_access.access_policy_id
	DailyCalls     int       // user_access.daily_calls
	MonthlyCalls   int       // user_access.monthly_calls
	AccessGranted  bool      // user_access.access_granted
	LastAccessed   time.Time // user_access.last_accessed
}

// ServiceCall is one ledger row per inference request. A row with a
// non-nil CompletedAt is terminal; otherwise the call is pending. TaskID
// is set only for dispatched (asynchronous) calls and correlates the
// row with its worker completion.
type ServiceCall struct {
	ID          uint64     // service_calls.id
	ModelID     uint64     // service_calls.model_id
	UserID      uint64     // service_calls.user_id
	RequestedAt time.Time  // service_calls.requested_at
	CompletedAt *time.Time // service_calls.completed_at (nullable)
	TaskID      *string    // service_calls.task_id (nullable)
	Success     bool       // service_calls.success
}
