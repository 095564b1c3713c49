package model

// Provider identifies an external issue tracker.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderLinear Provider = "linear"
)

// ParseProvider maps a configured tracker name to a Provider. Unknown or
// empty values fall back to GitHub so sessions created before multi-tracker
// support keep working.
func ParseProvider(s string) Provider {
	switch Provider(s) {
	case ProviderLinear:
		return ProviderLinear
	default:
		return ProviderGitHub
	}
}
