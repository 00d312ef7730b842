package session

import (
	"time"

	"github.com/jrsteele09/go-gopay-client/apierror"
)

// Marshal encodes state and seals it when sealer is non-nil.
func Marshal(state State, savedAt time.Time, sealer *Sealer) ([]byte, error) {
	data, err := Encode(state, savedAt)
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		return data, nil
	}
	return sealer.Seal(data)
}

// Unmarshal reverses Marshal. Plain snapshots are accepted even when a sealer
// is configured; sealed ones require it.
func Unmarshal(blob []byte, sealer *Sealer) (State, error) {
	if IsSealed(blob) {
		if sealer == nil {
			return State{}, &apierror.DeserializationError{Reason: "snapshot is sealed but no seal key is configured"}
		}
		plain, err := sealer.Open(blob)
		if err != nil {
			return State{}, err
		}
		blob = plain
	}
	return Decode(blob)
}
