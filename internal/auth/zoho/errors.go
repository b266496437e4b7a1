package zoho

import "fmt"

// NetworkError indicates a transport-level failure (connection refused,
// timeout) while calling the authorization server. It is potentially
// transient and safe to retry on the next demand.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("zoho auth: %s request failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// EndpointError indicates the authorization server answered with a
// non-success HTTP status. It may signal a revoked or invalid grant and is
// treated as fatal to the current credential.
type EndpointError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("zoho auth: %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// PersistenceError indicates the durable token write failed. The in-memory
// token remains usable for the current process, but a restart will require
// re-authorization.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("zoho auth: failed to save tokens to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ReauthorizationRequiredError indicates there is no valid path to a usable
// access token without human consent. AuthorizationURL carries a fresh
// consent URL so the operator can restart the flow.
type ReauthorizationRequiredError struct {
	AuthorizationURL string
	Reason           error
}

func (e *ReauthorizationRequiredError) Error() string {
	if e.Reason == nil {
		return "zoho auth: re-authorization required"
	}
	return fmt.Sprintf("zoho auth: re-authorization required: %v", e.Reason)
}

func (e *ReauthorizationRequiredError) Unwrap() error { return e.Reason }
