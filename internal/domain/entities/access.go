package entities

// Feature names a gated capability.
type Feature string

const (
	FeatureWorktrees     Feature = "worktrees"
	FeatureGraph         Feature = "graph"
	FeatureVisualHistory Feature = "visual-history"
	FeatureLaunchpad     Feature = "launchpad"
)

// Allowance is the tri-state outcome of an access check.
type Allowance string

const (
	AllowanceAllowed Allowance = "allowed"
	AllowanceDenied  Allowance = "denied"
	// AllowanceMixed means some repositories allow the feature and others do not.
	AllowanceMixed Allowance = "mixed"
)

// AccessResult is the answer of an access check.
type AccessResult struct {
	Feature    Feature
	Allowed    Allowance
	Visibility Visibility
	Plan       string
}

// IsAllowed is true only for AllowanceAllowed.
func (a AccessResult) IsAllowed() bool {
	return a.Allowed == AllowanceAllowed
}

// Subscription is the user's current plan.
type Subscription struct {
	Plan string `yaml:"plan"`
	Paid bool   `yaml:"paid"`
}

// CacheLayer names a cache that ResetCaches can clear.
type CacheLayer string

const (
	CacheVisibility  CacheLayer = "visibility"
	CacheAccess      CacheLayer = "access"
	CacheBestRemotes CacheLayer = "remotes"
	// CacheProviders asks every provider to drop its own caches.
	CacheProviders CacheLayer = "providers"
)

// AllCacheLayers lists every layer, in reset order.
func AllCacheLayers() []CacheLayer {
	return []CacheLayer{CacheProviders, CacheVisibility, CacheAccess, CacheBestRemotes}
}
