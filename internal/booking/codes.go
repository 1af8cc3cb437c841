package booking

import (
	"crypto/rand"
	"math/big"
)

const meetingIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
const meetingIDLength = 7

// NewMeetingID returns the public room code, 7 base36 characters.
func NewMeetingID() string {
	buf := make([]byte, meetingIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(meetingIDAlphabet))))
		if err != nil {
			panic(err) // crypto/rand failure is unrecoverable
		}
		buf[i] = meetingIDAlphabet[n.Int64()]
	}
	return string(buf)
}

// NewMeetingPin returns a 6-digit PIN in [100000, 999999].
func NewMeetingPin() int {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic(err)
	}
	return int(n.Int64()) + 100000
}
