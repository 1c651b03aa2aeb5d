package model

// Authority is a capability tag granted to a user and embedded verbatim into
// access-token claims. The set of tags is closed: anything outside it is
// rejected at parse time rather than carried along as an opaque string.
type Authority string

const (
	AuthorityUser  Authority = "ROLE_USER"
	AuthorityAdmin Authority = "ROLE_ADMIN"
)

// ParseAuthority maps a claim string back to a known tag. The second return
// value reports whether the string names a tag this service understands.
func ParseAuthority(s string) (Authority, bool) {
	switch Authority(s) {
	case AuthorityUser:
		return AuthorityUser, true
	case AuthorityAdmin:
		return AuthorityAdmin, true
	}
	return "", false
}

// AuthorityClaims converts a tag set to the claim strings stored in a token.
func AuthorityClaims(authorities []Authority) []string {
	out := make([]string, len(authorities))
	for i, a := range authorities {
		out[i] = string(a)
	}
	return out
}

// HasAuthority reports whether the set contains the given tag.
func HasAuthority(set []Authority, want Authority) bool {
	for _, a := range set {
		if a == want {
			return true
		}
	}
	return false
}
