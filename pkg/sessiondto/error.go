package sessiondto

// DomainError is a user-visible rejection of a local intent. Code is a
// message catalog key.
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "session error"
}

func (e DomainError) Unwrap() error { return e.Err }
