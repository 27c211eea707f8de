package clouddatastore

import (
	"net/http"

	"golang.org/x/oauth2"
)

// ClientSettings collects what FromContext needs to dial Cloud Datastore.
type ClientSettings struct {
	ProjectID string
	Namespace string

	Scopes          []string
	TokenSource     oauth2.TokenSource
	CredentialsFile string // if set, Token Source is ignored.
	HTTPClient      *http.Client
}

type ClientOption interface {
	Apply(*ClientSettings)
}

func WithProjectID(projectID string) ClientOption {
	return withProjectID{projectID}
}

type withProjectID struct{ s string }

func (w withProjectID) Apply(o *ClientSettings) {
	o.ProjectID = w.s
}

// WithNamespace stores every collection under the given namespace.
func WithNamespace(namespace string) ClientOption {
	return withNamespace{namespace}
}

type withNamespace struct{ s string }

func (w withNamespace) Apply(o *ClientSettings) {
	o.Namespace = w.s
}

// WithTokenSource returns a ClientOption that specifies an OAuth2 token
// source to be used as the basis for authentication.
func WithTokenSource(s oauth2.TokenSource) ClientOption {
	return withTokenSource{s}
}

type withTokenSource struct{ ts oauth2.TokenSource }

func (w withTokenSource) Apply(o *ClientSettings) {
	o.TokenSource = w.ts
}

type withCredFile string

func (w withCredFile) Apply(o *ClientSettings) {
	o.CredentialsFile = string(w)
}

// WithCredentialsFile returns a ClientOption that authenticates
// API calls with the given service account or refresh token JSON
// credentials file.
func WithCredentialsFile(filename string) ClientOption {
	return withCredFile(filename)
}

// WithScopes returns a ClientOption that overrides the default OAuth2 scopes.
func WithScopes(scope ...string) ClientOption {
	return withScopes(scope)
}

type withScopes []string

func (w withScopes) Apply(o *ClientSettings) {
	s := make([]string, len(w))
	copy(s, w)
	o.Scopes = s
}

// WithHTTPClient returns a ClientOption that specifies the HTTP client to use
// as the basis of communications. When used, it takes precedent over all
// other supplied options.
func WithHTTPClient(client *http.Client) ClientOption {
	return withHTTPClient{client}
}

type withHTTPClient struct{ client *http.Client }

func (w withHTTPClient) Apply(o *ClientSettings) {
	o.HTTPClient = w.client
}
