package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CustomerStatus string

const (
	CustomerStatusActive     CustomerStatus = "ACTIVE"
	CustomerStatusRestricted CustomerStatus = "RESTRICTED"
)

// ParseCustomerStatus rejects anything outside the canonical enumeration.
func ParseCustomerStatus(s string) (CustomerStatus, error) {
	switch CustomerStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case CustomerStatusActive:
		return CustomerStatusActive, nil
	case CustomerStatusRestricted:
		return CustomerStatusRestricted, nil
	}
	return "", Validation("status", "unknown customer status %q", s)
}

type Customer struct {
	ID              int32           `json:"id"`
	Name            string          `json:"name"`
	NationalID      string          `json:"national_id"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	Status          CustomerStatus  `json:"status"`
	OutstandingDebt decimal.Decimal `json:"outstanding_debt"`
	CreatedOn       time.Time       `json:"created_on"`
	UpdatedOn       time.Time       `json:"updated_on"`
}

// NewCustomer validates and normalizes registration input. The returned
// customer starts ACTIVE with no debt.
func NewCustomer(name, nationalID, phone, email string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("name", "name is required")
	}
	nid, err := NormalizeNationalID(nationalID)
	if err != nil {
		return nil, err
	}
	ph, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	addr, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return &Customer{
		Name:            name,
		NationalID:      nid,
		Phone:           ph,
		Email:           addr,
		Status:          CustomerStatusActive,
		OutstandingDebt: decimal.Zero,
	}, nil
}

// NormalizeNationalID validates a RUT ("12.345.678-5", "12345678-5" or
// "123456785") with its modulo-11 check digit and returns it as "12345678-5".
func NormalizeNationalID(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(".", "", " ", "").Replace(s)
	if s == "" {
		return "", Validation("national_id", "national id is required")
	}

	var body, dv string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		body, dv = s[:i], s[i+1:]
	} else {
		body, dv = s[:len(s)-1], s[len(s)-1:]
	}
	if len(body) == 0 || len(body) > 9 || len(dv) != 1 {
		return "", Validation("national_id", "malformed national id %q", raw)
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return "", Validation("national_id", "malformed national id %q", raw)
		}
	}

	if expected := rutCheckDigit(body); expected != dv {
		return "", Validation("national_id", "invalid check digit for %q", raw)
	}
	if body = strings.TrimLeft(body, "0"); body == "" {
		return "", Validation("national_id", "malformed national id %q", raw)
	}
	return body + "-" + dv, nil
}

func rutCheckDigit(body string) string {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return fmt.Sprintf("%d", r)
	}
}

// NormalizePhone accepts an optional leading '+' followed by 8 to 15 digits;
// spaces, dashes and parentheses are dropped.
func NormalizePhone(raw string) (string, error) {
	s := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 8 || len(digits) > 15 {
		return "", Validation("phone", "malformed phone %q", raw)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", Validation("phone", "malformed phone %q", raw)
		}
	}
	return s, nil
}

func NormalizeEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", Validation("email", "malformed email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}
