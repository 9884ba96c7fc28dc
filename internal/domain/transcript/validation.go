package transcript

import "strings"

// ValidateKey validates the natural key.
func ValidateKey(key NaturalKey) error {
	if strings.TrimSpace(key.MeetingID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(key.InstanceID) == "" {
		return ErrInvalidInput
	}
	if key.RecordingStart.IsZero() || key.RecordingEnd.IsZero() {
		return ErrInvalidInput
	}
	if key.RecordingEnd.Before(key.RecordingStart) {
		return ErrInvalidInput
	}
	return nil
}

// ValidateCreateInput validates fields required to persist a record.
// Only relevant meetings are ever stored.
func ValidateCreateInput(req CreateRequest) error {
	if err := ValidateKey(req.Key); err != nil {
		return err
	}
	if !req.IsRelevant {
		return ErrInvalidInput
	}
	if req.MeetingType != "" && !req.MeetingType.Valid() {
		return ErrInvalidInput
	}
	return nil
}
