package model

// OAuthInfo is the profile subset a provider returns alongside the uid.
type OAuthInfo struct {
	Name  string
	Email string
}

// OAuthAssertion is a verified identity from an external provider.
// UID is unique per Provider, not globally.
type OAuthAssertion struct {
	Provider string
	UID      string
	Info     OAuthInfo
}
