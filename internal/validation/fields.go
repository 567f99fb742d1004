// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field limits.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 150
	NameMaxLength     = 150
	EmailMaxLength    = 254
	PasswordMinLength = 8

	// MaxAgeDays is the oldest accepted date of birth, counted back from today.
	MaxAgeDays = 36525

	MinHeight = 40
	MaxHeight = 300

	// DateLayout is the only accepted date of birth format.
	DateLayout = "2006-01-02"
)

// PasswordSymbols is the set of characters that satisfy the symbol requirement.
const PasswordSymbols = `!@#$%^&*()-_=+[]{};:,.<>/?\|~`

var (
	// MinWeight and MaxWeight bound weight in kilograms, inclusive.
	MinWeight = decimal.Zero
	MaxWeight = decimal.NewFromInt(500)

	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	// decimalPattern is the accepted text form of weight and height. Exponent
	// notation is rejected: comparing or rounding a decimal with a large
	// exponent allocates 10^|exp|.
	decimalPattern = regexp.MustCompile(`^[+-]?\d{1,32}(\.\d{1,32})?$`)
)

// maxDecimalDigits bounds the coefficient digits and the exponent magnitude of
// a numeric weight or height.
const maxDecimalDigits = 32

// Username validates a username: 3 to 150 characters after trimming.
func Username(v Value) (string, error) {
	s, err := requiredString(v, FieldUsername)
	if err != nil {
		return "", err
	}
	n := utf8.RuneCountInString(s)
	if n < UsernameMinLength {
		return "", outOfRange(FieldUsername, KindTooShort,
			fmt.Sprintf("Username must be at least %d characters long.", UsernameMinLength))
	}
	if n > UsernameMaxLength {
		return "", outOfRange(FieldUsername, KindTooLong,
			fmt.Sprintf("Username must be at most %d characters long.", UsernameMaxLength))
	}
	return s, nil
}

// FirstName validates a first name.
func FirstName(v Value) (string, error) {
	return personName(v, FieldFirstName)
}

// LastName validates a last name.
func LastName(v Value) (string, error) {
	return personName(v, FieldLastName)
}

func personName(v Value, f Field) (string, error) {
	s, err := requiredString(v, f)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(s) > NameMaxLength {
		return "", outOfRange(f, KindTooLong,
			fmt.Sprintf("%s must be at most %d characters long.", f.Label(), NameMaxLength))
	}
	return s, nil
}

// Password validates a new password against the account's first and last
// name. The name validators run first, so a missing or invalid name is
// reported before any password policy failure. The password itself is
// returned untrimmed.
func Password(v, first, last Value) (string, error) {
	pw, err := rawString(v, FieldPassword)
	if err != nil {
		return "", err
	}

	firstName, err := FirstName(first)
	if err != nil {
		return "", err
	}
	lastName, err := LastName(last)
	if err != nil {
		return "", err
	}

	if utf8.RuneCountInString(pw) < PasswordMinLength {
		return "", outOfRange(FieldPassword, KindTooShort,
			fmt.Sprintf("Password must be at least %d characters long.", PasswordMinLength))
	}
	if strings.ContainsFunc(pw, forbiddenPasswordRune) {
		return "", newFailure(FieldPassword, KindForbiddenCharacter,
			"Password must not contain spaces or quote characters.")
	}
	if !complexEnough(pw) {
		return "", newFailure(FieldPassword, KindNotComplex,
			"Password must contain at least one uppercase letter, one lowercase letter, one digit and one symbol.")
	}

	lower := strings.ToLower(pw)
	if strings.Contains(lower, strings.ToLower(firstName)) {
		return "", containsName(FieldFirstName)
	}
	if strings.Contains(lower, strings.ToLower(lastName)) {
		return "", containsName(FieldLastName)
	}
	return pw, nil
}

func containsName(name Field) error {
	return &Failure{
		Kind:    KindContainsName,
		Field:   FieldPassword,
		Code:    name.code() + "_IN_PASSWORD",
		Message: fmt.Sprintf("Password must not contain your %s.", strings.ToLower(name.Label())),
	}
}

func forbiddenPasswordRune(r rune) bool {
	return unicode.IsSpace(r) || r == '"' || r == '\'' || r == '`'
}

func complexEnough(pw string) bool {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// Email validates an address and returns it lowercased.
func Email(v Value) (string, error) {
	s, err := requiredString(v, FieldEmail)
	if err != nil {
		return "", err
	}
	if len(s) > EmailMaxLength {
		return "", outOfRange(FieldEmail, KindTooLong,
			fmt.Sprintf("Email must be at most %d characters long.", EmailMaxLength))
	}
	if !emailShaped(s) {
		return "", invalidFormat(FieldEmail, "Enter a valid email address.")
	}
	return strings.ToLower(s), nil
}

// emailShaped accepts a bare addr-spec whose domain has at least one dot.
// Display names and angle brackets are rejected.
func emailShaped(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return !strings.Contains(domain, "..")
}

// DateOfBirth validates a YYYY-MM-DD date relative to today. Today is
// interpreted in UTC.
func DateOfBirth(v Value, today time.Time) (time.Time, error) {
	if !v.IsPresent() {
		return time.Time{}, missing(FieldDateOfBirth)
	}
	s, ok := v.Raw().(string)
	if !ok {
		return time.Time{}, invalidType(FieldDateOfBirth, "a date in YYYY-MM-DD format")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, empty(FieldDateOfBirth)
	}
	dob, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalidFormat(FieldDateOfBirth, "Date of birth must be in YYYY-MM-DD format.")
	}

	y, m, d := today.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if dob.After(day) {
		return time.Time{}, outOfRange(FieldDateOfBirth, KindInFuture, "Date of birth cannot be in the future.")
	}
	if dob.Before(day.AddDate(0, 0, -MaxAgeDays)) {
		return time.Time{}, outOfRange(FieldDateOfBirth, KindTooOld, "Date of birth cannot be more than 100 years ago.")
	}
	return dob, nil
}

// PhoneNumber validates an E.164-like number, optionally prefixed with '+'.
func PhoneNumber(v Value) (string, error) {
	s, err := requiredString(v, FieldPhoneNumber)
	if err != nil {
		return "", err
	}
	if !phonePattern.MatchString(s) {
		return "", invalidFormat(FieldPhoneNumber, "Enter a valid phone number, e.g. +447700900123.")
	}
	return s, nil
}

// Weight validates a weight in kilograms from a number or numeric string.
// The range is checked on the submitted value; the result is rounded to two
// decimal places.
func Weight(v Value) (decimal.Decimal, error) {
	d, err := requiredDecimal(v, FieldWeight, "Weight must be a decimal number.")
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.LessThan(MinWeight) {
		return decimal.Decimal{}, outOfRange(FieldWeight, KindTooSmall, "Weight cannot be negative.")
	}
	if d.GreaterThan(MaxWeight) {
		return decimal.Decimal{}, outOfRange(FieldWeight, KindTooLarge, "Weight cannot be more than 500 kg.")
	}
	return d.Round(2), nil
}

// Height validates a whole-number height in centimetres.
func Height(v Value) (int, error) {
	d, err := requiredDecimal(v, FieldHeight, "Height must be a whole number.")
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, invalidFormat(FieldHeight, "Height must be a whole number.")
	}
	if d.LessThan(decimal.NewFromInt(MinHeight)) {
		return 0, outOfRange(FieldHeight, KindTooSmall,
			fmt.Sprintf("Height must be at least %d cm.", MinHeight))
	}
	if d.GreaterThan(decimal.NewFromInt(MaxHeight)) {
		return 0, outOfRange(FieldHeight, KindTooLarge,
			fmt.Sprintf("Height cannot be more than %d cm.", MaxHeight))
	}
	return int(d.IntPart()), nil
}

// UserID validates an account identifier: a positive integer given as a
// number or numeric string.
func UserID(v Value) (int64, error) {
	const msg = "User ID must be an integer."
	if !v.IsPresent() {
		return 0, missing(FieldUserID)
	}

	var (
		id  int64
		err error
	)
	switch raw := v.Raw().(type) {
	case string:
		s := strings.TrimSpace(raw)
		if s == "" {
			return 0, empty(FieldUserID)
		}
		id, err = strconv.ParseInt(s, 10, 64)
	case json.Number:
		id, err = raw.Int64()
	case float64:
		if raw != math.Trunc(raw) || math.Abs(raw) > math.MaxInt64 {
			return 0, invalidFormat(FieldUserID, msg)
		}
		id = int64(raw)
	case int:
		id = int64(raw)
	case int64:
		id = raw
	default:
		return 0, invalidType(FieldUserID, "an integer")
	}
	if err != nil {
		return 0, invalidFormat(FieldUserID, msg)
	}
	if id <= 0 {
		return 0, outOfRange(FieldUserID, KindTooSmall, "User ID must be a positive integer.")
	}
	return id, nil
}

// LoginUsername checks presence, type and emptiness only.
func LoginUsername(v Value) (string, error) {
	return requiredString(v, FieldUsername)
}

// LoginPassword checks presence, type and emptiness only. The password is
// returned untrimmed.
func LoginPassword(v Value) (string, error) {
	return rawString(v, FieldPassword)
}

// requiredString runs presence, type and emptiness checks and returns the
// trimmed string.
func requiredString(v Value, f Field) (string, error) {
	s, err := rawString(v, f)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// rawString is requiredString without trimming the result.
func rawString(v Value, f Field) (string, error) {
	if !v.IsPresent() {
		return "", missing(f)
	}
	s, ok := v.Raw().(string)
	if !ok {
		return "", invalidType(f, "a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", empty(f)
	}
	return s, nil
}

func requiredDecimal(v Value, f Field, formatMsg string) (decimal.Decimal, error) {
	if !v.IsPresent() {
		return decimal.Decimal{}, missing(f)
	}

	var d decimal.Decimal
	switch raw := v.Raw().(type) {
	case string:
		text := strings.TrimSpace(raw)
		if text == "" {
			return decimal.Decimal{}, empty(f)
		}
		return parseDecimal(text, f, formatMsg)
	case json.Number:
		return parseDecimal(raw.String(), f, formatMsg)
	case float64:
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return decimal.Decimal{}, invalidFormat(f, formatMsg)
		}
		d = decimal.NewFromFloat(raw)
	case int:
		d = decimal.NewFromInt(int64(raw))
	case int64:
		d = decimal.NewFromInt(raw)
	case decimal.Decimal:
		d = raw
	default:
		return decimal.Decimal{}, invalidType(f, "a number")
	}

	if !boundedDecimal(d) {
		return decimal.Decimal{}, invalidFormat(f, formatMsg)
	}
	return d, nil
}

// parseDecimal accepts plain decimal text only.
func parseDecimal(text string, f Field, formatMsg string) (decimal.Decimal, error) {
	if !decimalPattern.MatchString(text) {
		return decimal.Decimal{}, invalidFormat(f, formatMsg)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, invalidFormat(f, formatMsg)
	}
	return d, nil
}

func boundedDecimal(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxDecimalDigits && exp <= maxDecimalDigits && d.NumDigits() <= maxDecimalDigits
}
