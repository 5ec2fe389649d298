// Package shared holds small cross-cutting domain values used by more than
// one aggregate.
package shared

import (
	"crypto/rand"
	"fmt"
)

// reference alphabet excludes easily-confused characters (0/O, 1/I/L)
const refAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const refLength = 12

// NewReference generates a human-readable reference such as "TRF-8KQ2M...".
// References are random; global uniqueness is enforced by a database
// constraint that fails loudly on the (negligible) chance of collision.
func NewReference(prefix string) string {
	buf := make([]byte, refLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		panic(fmt.Sprintf("reference generation: %v", err))
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return prefix + "-" + string(buf)
}

const accountNumberLength = 10

// NewAccountNumber generates a random 10-digit account number. Uniqueness is
// enforced by the accounts table constraint.
func NewAccountNumber() string {
	buf := make([]byte, accountNumberLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("account number generation: %v", err))
	}
	for i, b := range buf {
		buf[i] = '0' + b%10
	}
	return string(buf)
}
