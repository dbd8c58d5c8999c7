package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds bounds the namespace, the seeds and the bump together.
	MaxSeeds = 16
	// MaxSeedLen bounds every individual seed, the namespace included.
	MaxSeedLen = 32

	derivationMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds = errors.New("too many seeds")
	ErrSeedTooLong  = errors.New("seed too long")
	ErrOnCurve      = errors.New("derived address is a valid ed25519 point")
	ErrNoViableBump = errors.New("no viable bump")
	ErrInvalidBump  = errors.New("bump does not match canonical derivation")
)

// CreateWithBump computes the address for one explicit bump value. It fails
// with ErrOnCurve when the hash lands on the ed25519 curve, since such an
// address could have a private key.
func CreateWithBump(program Address, namespace string, bump uint8, seeds ...[]byte) (Address, error) {
	if err := checkSeeds(namespace, seeds); err != nil {
		return Zero, err
	}

	h := sha256.New()
	h.Write([]byte(namespace))
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write([]byte(derivationMarker))

	var a Address
	copy(a[:], h.Sum(nil))
	if OnCurve(a) {
		return Zero, ErrOnCurve
	}
	return a, nil
}

// Derive returns the canonical address and bump for namespace and seeds under
// program: the first off-curve candidate searching bumps from 255 down to 0.
func Derive(program Address, namespace string, seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		a, err := CreateWithBump(program, namespace, uint8(bump), seeds...)
		if err == nil {
			return a, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

// Verify reports whether (a, bump) is exactly the canonical derivation.
// Any non-canonical bump is rejected even if it yields an off-curve address.
func Verify(program, a Address, bump uint8, namespace string, seeds ...[]byte) error {
	expected, expectedBump, err := Derive(program, namespace, seeds...)
	if err != nil {
		return err
	}
	if expected != a {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidAddress, expected, a)
	}
	if expectedBump != bump {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidBump, expectedBump, bump)
	}
	return nil
}

// OnCurve reports whether a decodes as a compressed ed25519 point.
func OnCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}

func checkSeeds(namespace string, seeds [][]byte) error {
	// +2 for the namespace and the bump
	if len(seeds)+2 > MaxSeeds {
		return fmt.Errorf("%w: %d seeds, max %d", ErrTooManySeeds, len(seeds), MaxSeeds-2)
	}
	if len(namespace) > MaxSeedLen {
		return fmt.Errorf("%w: namespace is %d bytes, max %d", ErrSeedTooLong, len(namespace), MaxSeedLen)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return fmt.Errorf("%w: seed %d is %d bytes, max %d", ErrSeedTooLong, i, len(seed), MaxSeedLen)
		}
	}
	return nil
}
