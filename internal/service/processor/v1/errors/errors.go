package errors

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	ServiceValidationError struct {
		Msg string
	}
	ServiceNotEnoughFunds struct {
		Msg string
	}
	ServiceIllegalCardNumber struct {
		Msg string
	}
	ServiceIllegalStatusTransition struct {
		Msg string
	}
	// ServiceSideEffectPendingError reports that the primary mutation committed
	// but its derived notification write failed and was queued for retry.
	ServiceSideEffectPendingError struct {
		Msg string
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ServiceValidationError) Error() string {
	return e.Msg
}

func (e *ServiceNotEnoughFunds) Error() string {
	return e.Msg
}

func (e *ServiceIllegalCardNumber) Error() string {
	return e.Msg
}

func (e *ServiceIllegalStatusTransition) Error() string {
	return e.Msg
}

func (e *ServiceSideEffectPendingError) Error() string {
	return e.Msg
}
