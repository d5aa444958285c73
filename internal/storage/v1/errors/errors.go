package errors

import (
	"fmt"
)

type (
	StatementPSQLError struct {
		Err error
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	AlreadyExistsError struct {
		Err error
		ID  string
	}
	NotFoundError struct {
		Err error
	}
	ExecutionKVError struct {
		Err error
	}
	MarshalingKVError struct {
		Err error
	}
	ContextTimeoutExceededError struct {
		Err error
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: already exists", e.ID)
}

func (e *NotFoundError) Error() string {
	if e.Err == nil {
		return "not found"
	}
	return fmt.Sprintf("%s: not found", e.Err.Error())
}

func (e *ExecutionKVError) Error() string {
	return fmt.Sprintf("%s: could not execute against document store", e.Err.Error())
}

func (e *MarshalingKVError) Error() string {
	return fmt.Sprintf("%s: could not (un)marshal document", e.Err.Error())
}

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}
