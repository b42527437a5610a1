package venueauth

import "net/http"

// APIKeySigner attaches a bearer-style API key header, the scheme the
// continuous-order-book venue's Gamma/CLOB APIs use for authenticated
// endpoints (public market listings need no auth at all).
type APIKeySigner struct {
	key string
}

func NewAPIKeySigner(key string) *APIKeySigner {
	return &APIKeySigner{key: key}
}

func (s *APIKeySigner) Enabled() bool { return s != nil && s.key != "" }

// Key returns the raw API key for callers (e.g. resty request builders)
// that need to set the header themselves rather than via SignRequest.
func (s *APIKeySigner) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

func (s *APIKeySigner) SignRequest(req *http.Request) {
	if s == nil || s.key == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
}
