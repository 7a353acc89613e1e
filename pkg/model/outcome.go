package model

// Outcome is the reduced result of a render: either an artifact or a
// failure, never both.
type Outcome struct {
	Artifact string
	Failure  *Error
}

// Success wraps a rendered artifact.
func Success(artifact string) Outcome {
	return Outcome{Artifact: artifact}
}

// Failure wraps err, classifying it when it is not already an *Error.
func Failure(err error) Outcome {
	if err == nil {
		return Outcome{Failure: Errorf(KindUnknown, "", "failure without cause")}
	}
	if typed, ok := err.(*Error); ok {
		return Outcome{Failure: typed}
	}
	return Outcome{Failure: NewError(KindOf(err), "", "", err)}
}

// Succeeded reports whether the outcome carries an artifact.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}
