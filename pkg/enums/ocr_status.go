package enums

import "fmt"

// OCRStatus tracks the extraction pipeline state for an invoice document.
type OCRStatus string

const (
	OCRStatusQueued     OCRStatus = "queued"
	OCRStatusProcessing OCRStatus = "processing"
	OCRStatusDone       OCRStatus = "done"
	OCRStatusFailed     OCRStatus = "failed"
)

var validOCRStatuses = []OCRStatus{
	OCRStatusQueued,
	OCRStatusProcessing,
	OCRStatusDone,
	OCRStatusFailed,
}

// String implements fmt.Stringer.
func (s OCRStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OCRStatus.
func (s OCRStatus) IsValid() bool {
	for _, candidate := range validOCRStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOCRStatus converts raw input into an OCRStatus.
func ParseOCRStatus(value string) (OCRStatus, error) {
	for _, candidate := range validOCRStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ocr status %q", value)
}
