package email

// TemporaryError marks a failure worth retrying (timeouts, SMTP 4xx).
type TemporaryError struct{ msg string }

func (e TemporaryError) Error() string   { return e.msg }
func (e TemporaryError) Temporary() bool { return true }
func (e TemporaryError) Permanent() bool { return false }

// PermanentError marks a failure that will not succeed on retry.
type PermanentError struct{ msg string }

func (e PermanentError) Error() string   { return e.msg }
func (e PermanentError) Permanent() bool { return true }

func Temporary(msg string) error { return TemporaryError{msg: msg} }

func Permanent(msg string) error { return PermanentError{msg: msg} }
