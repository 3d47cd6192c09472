package model

import (
	"errors"
	"regexp"
	"strconv"
)

// phone is the 7-digit local part; the operator prefix and country code
// live in their own fields and are joined by FullPhone.
var phoneRe = regexp.MustCompile(`^[0-9]{7}$`)

type Customer struct {
	ID          int64      `json:"id"`
	CountryCode int        `json:"country_code"`
	Phone       string     `json:"phone"`
	PhoneCode   *PhoneCode `json:"phone_code,omitempty"`
	Timezone    *Timezone  `json:"timezone,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
}

// FullPhone concatenates country code, operator code and local digits.
func (c *Customer) FullPhone() string {
	code := ""
	if c.PhoneCode != nil {
		code = c.PhoneCode.Code
	}
	return strconv.Itoa(c.CountryCode) + code + c.Phone
}

// TimezoneName returns the IANA name or "" when no timezone is linked.
func (c *Customer) TimezoneName() string {
	if c.Timezone == nil {
		return ""
	}
	return c.Timezone.Name
}

// CustomerCreateRequest is the input for creating a customer.
type CustomerCreateRequest struct {
	CountryCode int
	Phone       string
	PhoneCodeID int64
	TimezoneID  int64
	TagIDs      []int64
}

var ErrInvalidPhone = errors.New("phone must be exactly 7 digits")

func (p CustomerCreateRequest) Validate() error {
	if !phoneRe.MatchString(p.Phone) {
		return ErrInvalidPhone
	}
	if p.PhoneCodeID == 0 {
		return errors.New("phone_code_id is required")
	}
	if p.TimezoneID == 0 {
		return errors.New("timezone_id is required")
	}
	return nil
}
