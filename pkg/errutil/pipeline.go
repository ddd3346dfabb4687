package errutil

// Error kinds raised by the claim pipeline. A business rejection is not an
// error and has no constructor here; it is a status write.

// Transient marks a failed call to an external system (metrics source,
// ledger, queue backend). The job is retried with backoff.
func Transient(msg string, err error, options ...Option) error {
	return New(StatusServiceUnavailable, msg, append(options, WithErr(err))...)
}

// AlreadyProcessed marks a side effect that the external system reports as
// already applied. Callers treat it as success.
func AlreadyProcessed(msg string, err error, options ...Option) error {
	return New(StatusConflict, msg, append(options, WithErr(err))...)
}

// Malformed marks a job payload that failed validation at dequeue.
func Malformed(msg string, err error, options ...Option) error {
	return New(StatusValidationFailed, msg, append(options, WithErr(err))...)
}

// Exhausted marks a job that used up its retry budget.
func Exhausted(msg string, err error, options ...Option) error {
	return New(StatusExhausted, msg, append(options, WithErr(err))...)
}

func IsNotFound(err error) bool {
	return StatusOf(err) == StatusNotFound
}

func IsTransient(err error) bool {
	return err != nil && StatusOf(err).Retryable()
}

func IsAlreadyProcessed(err error) bool {
	return StatusOf(err) == StatusConflict
}

func IsMalformed(err error) bool {
	s := StatusOf(err)
	return s == StatusValidationFailed || s == StatusBadRequest
}
