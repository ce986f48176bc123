package prediction

import "errors"

var (
	ErrNoFile              = errors.New("no image file provided")
	ErrEmptyFile           = errors.New("uploaded file is empty")
	ErrUnsupportedType     = errors.New("unsupported media type")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrInvalidAnalysisType = errors.New("invalid analysis type")
	ErrPatientNotFound     = errors.New("patient data not found")
)

const fallbackFailureMessage = "Prediction failed"

// ClassifierFailedError is returned when the classifier ran to completion but
// reported success=false.
type ClassifierFailedError struct {
	Message string
}

func (e *ClassifierFailedError) Error() string {
	if e.Message == "" {
		return fallbackFailureMessage
	}
	return e.Message
}
