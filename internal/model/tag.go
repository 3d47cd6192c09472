package model

import (
	"errors"
	"regexp"
	"time"
)

type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"tag"`
}

// PhoneCode is a 3-digit operator prefix. Used to assemble full phone
// numbers and to filter listings, not to resolve audiences.
type PhoneCode struct {
	ID   int64  `json:"id"`
	Code string `json:"phone_code"`
}

var phoneCodeRe = regexp.MustCompile(`^[0-9]{3}$`)

func (p PhoneCode) Validate() error {
	if !phoneCodeRe.MatchString(p.Code) {
		return errors.New("phone_code must be exactly 3 digits")
	}
	return nil
}

// Timezone is a named IANA timezone. The name is validated against the
// system timezone database at write time.
type Timezone struct {
	ID   int64  `json:"id"`
	Name string `json:"timezone"`
}

var ErrUnknownTimezone = errors.New("unknown IANA timezone name")

func (t Timezone) Validate() error {
	if t.Name == "" {
		return ErrUnknownTimezone
	}
	if _, err := time.LoadLocation(t.Name); err != nil {
		return ErrUnknownTimezone
	}
	return nil
}
