package syncclient

import "fmt"

// RemoteError is the single failure envelope for every remote call: any
// non-success response or transport failure ends up here. Transport failures
// carry Status 0. Match with errors.As.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote call failed: %s", e.Message)
	}
	return fmt.Sprintf("remote call failed: status %d: %s", e.Status, e.Message)
}

// Unauthorized reports a 401/403-class rejection.
func (e *RemoteError) Unauthorized() bool {
	return e.Status == 401 || e.Status == 403
}
