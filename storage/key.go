package storage

import (
	"chat-api/errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxTicks is 9999-12-31T23:59:59.999Z in epoch milliseconds.
// Keys are computed against it, so it must never change once data exists.
const MaxTicks int64 = 253402300799999

// KeyWidth is the number of digits of every storage key.
const KeyWidth = 19

// EncodeKey turns a creation timestamp into an inverted-time storage key.
// The key is MaxTicks - createdAtMillis written as a 19-digit zero-padded decimal,
// so that ascending bytewise order of keys is descending chronological order.
func EncodeKey(createdAtMillis int64) (string, error) {
	if createdAtMillis < 0 || createdAtMillis > MaxTicks {
		return "", fmt.Errorf("%w: timestamp %d outside [0, %d]", errors.ErrInvalidArgument, createdAtMillis, MaxTicks)
	}
	return fmt.Sprintf("%0*d", KeyWidth, MaxTicks-createdAtMillis), nil
}

// DecodeKey returns the creation timestamp a key was derived from.
// Only tooling needs it: the repository treats keys as opaque.
func DecodeKey(key string) (int64, error) {
	if len(key) != KeyWidth || strings.Trim(key, "0123456789") != "" {
		return 0, fmt.Errorf("%w: key %q is not %d digits", errors.ErrInvalidArgument, key, KeyWidth)
	}
	inverted, err := strconv.ParseInt(key, 10, 64)
	if err != nil || inverted < 0 || inverted > MaxTicks {
		return 0, fmt.Errorf("%w: malformed key %q", errors.ErrInvalidArgument, key)
	}
	return MaxTicks - inverted, nil
}
