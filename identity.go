package nucleus

import (
	"encoding/json"
	"strconv"
)

// FlexID is a provider identifier that arrives as either a JSON number or a
// JSON string; it always normalizes to a string. Integer decode is attempted
// first, then string; a value of any other type is a decode failure, not a
// missing field.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(strconv.FormatInt(n, 10))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	return DecodeError{Message: "identifier is neither number nor string: " + string(data)}
}

func (f FlexID) String() string { return string(f) }

// FlexInt is a count or duration field that arrives as either a JSON number
// or a numeric JSON string.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return DecodeError{Message: "numeric field is not parseable: " + s, Cause: perr}
		}
		*f = FlexInt(parsed)
		return nil
	}
	return DecodeError{Message: "numeric field is neither number nor string: " + string(data)}
}

// AccountInfo is the provider's master account (PID) record. AccountID is the
// only required field; everything else is passed through when present.
type AccountInfo struct {
	AccountID            FlexID `json:"pidId"`
	ExternalRefType      string `json:"externalRefType,omitempty"`
	ExternalRefValue     string `json:"externalRefValue,omitempty"`
	Email                string `json:"email,omitempty"`
	EmailStatus          string `json:"emailStatus,omitempty"`
	Strength             string `json:"strength,omitempty"`
	DOB                  string `json:"dob,omitempty"`
	Country              string `json:"country,omitempty"`
	Language             string `json:"language,omitempty"`
	Locale               string `json:"locale,omitempty"`
	Status               string `json:"status,omitempty"`
	ReasonCode           string `json:"reasonCode,omitempty"`
	TOSVersion           string `json:"tosVersion,omitempty"`
	ParentalEmail        string `json:"parentalEmail,omitempty"`
	ThirdPartyOptin      string `json:"thirdPartyOptin,omitempty"`
	GlobalOptin          string `json:"globalOptin,omitempty"`
	DateCreated          string `json:"dateCreated,omitempty"`
	DateModified         string `json:"dateModified,omitempty"`
	LastAuthDate         string `json:"lastAuthDate,omitempty"`
	RegistrationSource   string `json:"registrationSource,omitempty"`
	AuthenticationSource string `json:"authenticationSource,omitempty"`
	ShowEmail            string `json:"showEmail,omitempty"`
	DiscoverableEmail    string `json:"discoverableEmail,omitempty"`
	AnonymousPID         bool   `json:"anonymousPid,omitempty"`
	UnderagePID          bool   `json:"underagePid,omitempty"`
}

// PersonaInfo is the per-game persona linked to an account. All three fields
// are populated: PublicUsername falls back through display name, name, the
// entry's own account id field, and finally the account id used for the
// lookup, so it is never empty.
type PersonaInfo struct {
	AccountID      string
	PersonaID      string
	PublicUsername string
}

// Identity is the merge of AccountInfo and PersonaInfo returned by
// FullIdentity. The three required fields come from the two source calls; the
// optional fields pass through from AccountInfo only.
type Identity struct {
	AccountID          string
	PersonaID          string
	PublicUsername     string
	Status             string
	Country            string
	Locale             string
	DateCreated        string
	RegistrationSource string
}
