package domain

import "time"

// EnvelopeVersion is the current envelope format version.
const EnvelopeVersion = 1

// Envelope is the unit persisted to every backend.
//
// Timestamps are Unix milliseconds. ExpiresAt == 0 means no expiration.
type Envelope struct {
	Version   int
	Namespace string
	CreatedAt int64
	ExpiresAt int64
	Encrypted bool

	// Data is the JSON-encoded value, or the encoded Sealed structure when
	// Encrypted is set.
	Data string
}

// NewEnvelope creates a version-current envelope stamped with now.
func NewEnvelope(namespace, data string, now time.Time) *Envelope {
	return &Envelope{
		Version:   EnvelopeVersion,
		Namespace: namespace,
		CreatedAt: now.UnixMilli(),
		Data:      data,
	}
}

// HasExpiry reports whether the envelope carries an expiration.
func (e *Envelope) HasExpiry() bool {
	return e.ExpiresAt != 0
}

// Expiry returns the expiration time, or the zero time if none.
func (e *Envelope) Expiry() time.Time {
	if e.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.ExpiresAt)
}

// IsExpired reports whether the envelope is expired at now.
// An entry is expired from the instant now reaches ExpiresAt.
func (e *Envelope) IsExpired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixMilli() >= e.ExpiresAt
}

// Validate checks the structural invariants of an envelope.
func (e *Envelope) Validate() error {
	if e.Version != EnvelopeVersion {
		return ErrSerialization.Detailf("unsupported envelope version %d", e.Version)
	}
	if e.CreatedAt <= 0 {
		return ErrSerialization.WithDetails("missing creation timestamp")
	}
	if e.ExpiresAt != 0 && e.ExpiresAt <= e.CreatedAt {
		return ErrSerialization.Detailf("expiry %d not after creation %d", e.ExpiresAt, e.CreatedAt)
	}
	return nil
}

// Sealed is the output of authenticated encryption.
//
// Byte fields marshal to base64 in JSON.
type Sealed struct {
	IV         []byte `json:"iv"`
	Salt       []byte `json:"salt"`
	Ciphertext []byte `json:"ct"`
}

// Validate checks that every component is present.
func (s *Sealed) Validate() error {
	switch {
	case len(s.IV) == 0:
		return ErrSerialization.WithDetails("sealed value without iv")
	case len(s.Salt) == 0:
		return ErrSerialization.WithDetails("sealed value without salt")
	case len(s.Ciphertext) == 0:
		return ErrSerialization.WithDetails("sealed value without ciphertext")
	}
	return nil
}
