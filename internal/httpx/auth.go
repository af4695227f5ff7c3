package httpx

import "strings"

// ExtractBearer returns the token of an "Authorization: Bearer <token>" value.
func ExtractBearer(authz string) (string, bool) {
	const prefix = "bearer "
	if len(authz) <= len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(authz[len(prefix):])
	return tok, tok != ""
}
