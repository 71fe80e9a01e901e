package auction

import "fmt"

// RemoteFetchError is returned when the auction API answers with a non-200
// status or cannot be reached at all (StatusCode == 0).
type RemoteFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote fetch %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("remote fetch %s: %v", e.URL, e.Err)
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}
