package service

import (
	"crypto/rand"
	"errors"
)

const (
	// pnrAlphabet leaves out 0/O and 1/I so locators read back unambiguously.
	pnrAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	PNRLength      = 6
	MaxPNRAttempts = 5
)

// ErrPNRExhausted is wrapped in a PersistenceError when every generated PNR
// collided with an existing booking.
var ErrPNRExhausted = errors.New("could not allocate a unique pnr")

// GeneratePNR returns a random six character record locator.
func GeneratePNR() (string, error) {
	buf := make([]byte, PNRLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// len(pnrAlphabet) is 32, so masking keeps the distribution uniform
	for i, b := range buf {
		buf[i] = pnrAlphabet[b&31]
	}
	return string(buf), nil
}
