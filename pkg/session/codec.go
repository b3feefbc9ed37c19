package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"paydesk/pkg/models"
)

// StorageKey names the single durable entry holding the session.
const StorageKey = "paydesk-session"

// FormatVersion is written into every persisted envelope.
const FormatVersion = 1

// ErrMalformed is returned by Decode for data that cannot be a session.
var ErrMalformed = errors.New("session: malformed persisted data")

type envelope struct {
	State   *models.Session `json:"state"`
	Version int             `json:"version"`
}

// Encode serializes s into the persisted envelope.
func Encode(s models.Session) ([]byte, error) {
	data, err := json.Marshal(envelope{State: &s, Version: FormatVersion})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Decode parses a persisted envelope. Data whose authentication flag and
// token disagree is rejected as malformed.
func Decode(data []byte) (models.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.State == nil {
		return models.Session{}, fmt.Errorf("%w: missing state", ErrMalformed)
	}
	if env.Version != FormatVersion {
		return models.Session{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
	}
	s := *env.State
	if s.IsAuthenticated != (s.Token != "") {
		return models.Session{}, fmt.Errorf("%w: authentication flag does not match token", ErrMalformed)
	}
	return s, nil
}
