// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed check. Kinds are stable and safe to switch on.
type Kind int

// Failure kinds.
const (
	KindMissing Kind = iota + 1
	KindInvalidType
	KindEmpty
	KindInvalidFormat
	KindTooShort
	KindTooLong
	KindTooSmall
	KindTooLarge
	KindInFuture
	KindTooOld
	KindNotComplex
	KindContainsName
	KindForbiddenCharacter
	KindTaken
	KindNotFound
	KindIdentifierRequired
	KindInvalidCredentials
	KindNotLoggedIn
	KindMalformedPayload
)

var kindNames = map[Kind]string{
	KindMissing:            "missing",
	KindInvalidType:        "invalid_type",
	KindEmpty:              "empty",
	KindInvalidFormat:      "invalid_format",
	KindTooShort:           "too_short",
	KindTooLong:            "too_long",
	KindTooSmall:           "too_small",
	KindTooLarge:           "too_large",
	KindInFuture:           "in_future",
	KindTooOld:             "too_old",
	KindNotComplex:         "not_complex",
	KindContainsName:       "contains_name",
	KindForbiddenCharacter: "forbidden_character",
	KindTaken:              "taken",
	KindNotFound:           "not_found",
	KindIdentifierRequired: "identifier_required",
	KindInvalidCredentials: "invalid_credentials",
	KindNotLoggedIn:        "not_logged_in",
	KindMalformedPayload:   "malformed_payload",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tier groups kinds by who caused the failure and how transports report it.
type Tier int

// Failure tiers.
const (
	TierValidation Tier = iota + 1
	TierNotFound
	TierAuthentication
	TierMalformed
)

// Tier returns the tier the kind belongs to.
// Range kinds (TooShort through TooOld) and password policy kinds are all
// validation failures; a conflict surfaced as Taken is too.
func (k Kind) Tier() Tier {
	switch k {
	case KindNotFound:
		return TierNotFound
	case KindInvalidCredentials, KindNotLoggedIn:
		return TierAuthentication
	case KindMalformedPayload:
		return TierMalformed
	default:
		return TierValidation
	}
}

// IsRange reports whether the kind is a direction-specific out-of-range kind.
func (k Kind) IsRange() bool {
	switch k {
	case KindTooShort, KindTooLong, KindTooSmall, KindTooLarge, KindInFuture, KindTooOld:
		return true
	default:
		return false
	}
}

// Failure is a client-caused, typed outcome of a validator, contract, or the
// session manager. Code is machine-readable; Message is for humans.
type Failure struct {
	Kind    Kind
	Field   Field
	Code    string
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Tier is shorthand for f.Kind.Tier().
func (f *Failure) Tier() Tier {
	return f.Kind.Tier()
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the failure kind carried by err, or 0 when err is not a Failure.
func KindOf(err error) Kind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return 0
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func newFailure(field Field, kind Kind, msg string) *Failure {
	return &Failure{
		Kind:    kind,
		Field:   field,
		Code:    code(field, kind),
		Message: msg,
	}
}

type codeKey struct {
	field Field
	kind  Kind
}

// Codes that do not follow the generic <KIND>_<FIELD> pattern.
var codeOverrides = map[codeKey]string{
	{FieldPassword, KindTooShort}:       "INVALID_PASSWORD",
	{FieldDateOfBirth, KindInvalidType}: "INVALID_DATE_OF_BIRTH",
	{FieldUserID, KindNotFound}:         "ID_DOES_NOT_EXIST",
}

// code builds the stable machine code, e.g. MISSING_USERNAME or SMALL_HEIGHT.
func code(field Field, kind Kind) string {
	if c, ok := codeOverrides[codeKey{field, kind}]; ok {
		return c
	}
	f := field.code()
	switch kind {
	case KindMissing:
		return "MISSING_" + f
	case KindInvalidType:
		return "INVALID_" + f + "_TYPE"
	case KindEmpty:
		return "EMPTY_" + f
	case KindInvalidFormat:
		return "INVALID_" + f
	case KindTooShort:
		return "SHORT_" + f
	case KindTooLong:
		return "LONG_" + f
	case KindTooSmall:
		return "SMALL_" + f
	case KindTooLarge:
		return "LARGE_" + f
	case KindInFuture:
		return "FUTURE_" + f
	case KindTooOld:
		return "OLD_" + f
	case KindNotComplex:
		return "UNCOMPLEX_" + f
	case KindForbiddenCharacter:
		return "UNACCEPTED_CHARACTERS_IN_" + f
	case KindTaken:
		return "TAKEN_" + f
	case KindNotFound:
		return f + "_DOES_NOT_EXIST"
	case KindIdentifierRequired:
		return "MISSING_IDENTIFIER"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindNotLoggedIn:
		return "NOT_LOGGED_IN"
	case KindMalformedPayload:
		return "MALFORMED_PAYLOAD"
	default:
		return "INVALID_" + f
	}
}

// Field names an input key. The value is the wire key used in payloads.
type Field string

// Known fields.
const (
	FieldUsername    Field = "username"
	FieldPassword    Field = "password"
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldEmail       Field = "email"
	FieldDateOfBirth Field = "date_of_birth"
	FieldPhoneNumber Field = "phone_number"
	FieldWeight      Field = "weight"
	FieldHeight      Field = "height"
	FieldUserID      Field = "id"
	FieldSession     Field = "session"
	FieldPayload     Field = "payload"
)

var fieldLabels = map[Field]string{
	FieldUsername:    "Username",
	FieldPassword:    "Password",
	FieldFirstName:   "First name",
	FieldLastName:    "Last name",
	FieldEmail:       "Email",
	FieldDateOfBirth: "Date of birth",
	FieldPhoneNumber: "Phone number",
	FieldWeight:      "Weight",
	FieldHeight:      "Height",
	FieldUserID:      "User ID",
	FieldSession:     "Session",
	FieldPayload:     "Request body",
}

// Label is the human-readable field name used in messages.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func (f Field) code() string {
	if f == FieldUserID {
		return "USER_ID"
	}
	return strings.ToUpper(string(f))
}

func missing(f Field) error {
	return newFailure(f, KindMissing, f.Label()+" is required.")
}

func invalidType(f Field, want string) error {
	return newFailure(f, KindInvalidType, fmt.Sprintf("%s must be %s.", f.Label(), want))
}

func empty(f Field) error {
	return newFailure(f, KindEmpty, f.Label()+" cannot be empty.")
}

func invalidFormat(f Field, msg string) error {
	return newFailure(f, KindInvalidFormat, msg)
}

func outOfRange(f Field, kind Kind, msg string) error {
	return newFailure(f, kind, msg)
}

// Taken reports that another account already holds the value of f.
func Taken(f Field) error {
	return newFailure(f, KindTaken, f.Label()+" is already taken.")
}

// NotFound reports that a well-formed identifier resolves to no account.
func NotFound(f Field) error {
	return newFailure(f, KindNotFound, fmt.Sprintf("No account exists with that %s.", strings.ToLower(f.Label())))
}

// IdentifierRequired reports that an operation needs an identifying key the
// request did not carry at all.
func IdentifierRequired(f Field) error {
	return newFailure(f, KindIdentifierRequired, fmt.Sprintf("The %q key is required.", string(f)))
}

// InvalidCredentials is deliberately silent about which credential was wrong.
func InvalidCredentials() error {
	return newFailure(FieldSession, KindInvalidCredentials, "Invalid credentials")
}

// NotLoggedIn reports an anonymous session where an authenticated one is needed.
func NotLoggedIn() error {
	return newFailure(FieldSession, KindNotLoggedIn, "User not logged in")
}

// MalformedPayload reports a request body that could not be decoded.
func MalformedPayload(detail string) error {
	msg := "Invalid JSON"
	if detail != "" {
		msg += ": " + detail
	}
	return newFailure(FieldPayload, KindMalformedPayload, msg)
}
