// Package codec converts envelopes to and from the string form stored in
// every backend.
//
// Wire shape:
//
//	{"v":1,"ns":"app","ts":1700000000000,"exp":1700000060000,"enc":false,"data":"..."}
//
// "exp" is omitted when the entry has no expiry. When "enc" is true, "data"
// is base64 of the JSON-encoded sealed structure {"iv","salt","ct"}.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

type wireEnvelope struct {
	Version   int     `json:"v"`
	Namespace string  `json:"ns"`
	CreatedAt int64   `json:"ts"`
	ExpiresAt int64   `json:"exp,omitempty"`
	Encrypted bool    `json:"enc"`
	Data      *string `json:"data"`
}

// Encode serializes env after validating it.
func Encode(env *domain.Envelope) (string, error) {
	if env == nil {
		return "", domain.ErrSerialization.WithDetails("nil envelope")
	}
	if err := env.Validate(); err != nil {
		return "", err
	}

	data := env.Data
	raw, err := json.Marshal(wireEnvelope{
		Version:   env.Version,
		Namespace: env.Namespace,
		CreatedAt: env.CreatedAt,
		ExpiresAt: env.ExpiresAt,
		Encrypted: env.Encrypted,
		Data:      &data,
	})
	if err != nil {
		return "", domain.ErrSerialization.WithCause(err)
	}
	return string(raw), nil
}

// Decode parses and validates a stored string.
func Decode(raw string) (*domain.Envelope, error) {
	var w wireEnvelope
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&w); err != nil {
		return nil, domain.ErrSerialization.WithDetails("malformed envelope").WithCause(err)
	}
	if dec.More() {
		return nil, domain.ErrSerialization.WithDetails("trailing data after envelope")
	}
	if w.Data == nil {
		return nil, domain.ErrSerialization.WithDetails("envelope without data")
	}
	if w.Namespace == "" {
		return nil, domain.ErrSerialization.WithDetails("envelope without namespace")
	}

	env := &domain.Envelope{
		Version:   w.Version,
		Namespace: w.Namespace,
		CreatedAt: w.CreatedAt,
		ExpiresAt: w.ExpiresAt,
		Encrypted: w.Encrypted,
		Data:      *w.Data,
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// EncodeValue renders v as JSON text.
func EncodeValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", domain.ErrSerialization.WithDetails("value is not serializable").WithCause(err)
	}
	return string(raw), nil
}

// DecodeValue parses JSON text into out, which must be a non-nil pointer.
func DecodeValue(data string, out any) error {
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return domain.ErrSerialization.WithDetails("decode value").WithCause(err)
	}
	return nil
}

// EncodeSealed renders s in its envelope data form.
func EncodeSealed(s *domain.Sealed) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return "", domain.ErrSerialization.WithCause(err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeSealed parses the data field of an encrypted envelope.
func DecodeSealed(data string) (*domain.Sealed, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, domain.ErrSerialization.WithDetails("sealed data is not base64").WithCause(err)
	}
	var s domain.Sealed
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, domain.ErrSerialization.WithDetails("malformed sealed data").WithCause(err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
