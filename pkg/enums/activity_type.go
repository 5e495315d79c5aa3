package enums

import "fmt"

// ActivityType classifies an immutable audit record.
type ActivityType string

const (
	ActivityTypeUpload      ActivityType = "upload"
	ActivityTypeOCRComplete ActivityType = "ocr_complete"
	ActivityTypeApproved    ActivityType = "approved"
	ActivityTypeRejected    ActivityType = "rejected"
	ActivityTypeAssigned    ActivityType = "assigned"
	ActivityTypeComment     ActivityType = "comment"
	ActivityTypeRuleTrigger ActivityType = "rule_trigger"
)

var validActivityTypes = []ActivityType{
	ActivityTypeUpload,
	ActivityTypeOCRComplete,
	ActivityTypeApproved,
	ActivityTypeRejected,
	ActivityTypeAssigned,
	ActivityTypeComment,
	ActivityTypeRuleTrigger,
}

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityType.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
