package reconcile

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// TargetValidator checks target addresses of the records. The contract
// accepts any non-empty address, so invalid ones are only reported.
type TargetValidator interface {
	ValidateTarget(addr string) error
}

// PassThrough accepts any target address.
type PassThrough struct{}

// ValidateTarget implements TargetValidator.
func (PassThrough) ValidateTarget(string) error { return nil }

// Base58Target accepts base58 encoded addresses.
type Base58Target struct {
	// Expected length of the decoded address, any if zero.
	Length int
}

// ValidateTarget implements TargetValidator.
func (v Base58Target) ValidateTarget(addr string) error {
	if addr == "" {
		return errors.New("empty address")
	}

	b, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}

	if v.Length != 0 && len(b) != v.Length {
		return fmt.Errorf("wrong decoded length %d, expected %d", len(b), v.Length)
	}

	return nil
}

// InvalidTarget is a record with invalid target address.
type InvalidTarget struct {
	Record Record
	Err    error
}

// CheckTargets returns records with target addresses rejected by the
// validator.
func CheckTargets(v TargetValidator, recs []Record) []InvalidTarget {
	var res []InvalidTarget
	for i := range recs {
		if err := v.ValidateTarget(recs[i].TargetAddress); err != nil {
			res = append(res, InvalidTarget{Record: recs[i], Err: err})
		}
	}
	return res
}
