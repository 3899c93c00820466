package httpapi

import "net/http"

// Auth decorates outgoing requests with credentials
type Auth interface {
	Apply(req *http.Request)
}

// NoAuth sends requests unauthenticated
type NoAuth struct{}

func (NoAuth) Apply(*http.Request) {}

// BearerToken sends "Authorization: Bearer <token>"
type BearerToken struct {
	Token string
}

func (a BearerToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// QueryToken sends the token as a query parameter, the way the Zenodo API
// expects access_token
type QueryToken struct {
	Param string
	Token string
}

func (a QueryToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	param := a.Param
	if param == "" {
		param = "access_token"
	}
	q := req.URL.Query()
	q.Set(param, a.Token)
	req.URL.RawQuery = q.Encode()
}
