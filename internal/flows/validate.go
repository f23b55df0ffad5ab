package flows

import (
	"github.com/mwielgat/authgate/token"
)

// ValidateDeps captures access token validation dependencies.
type ValidateDeps struct {
	VerifyAccess func(string) (*token.AccessClaims, bool)
}

// RunValidate checks an access token and returns its claims on success.
// No failure cause is reported: the token either passes or it does not.
func RunValidate(tokenStr string, deps ValidateDeps) (*token.AccessClaims, bool) {
	if deps.VerifyAccess == nil || tokenStr == "" {
		return nil, false
	}
	return deps.VerifyAccess(tokenStr)
}
