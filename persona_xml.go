package nucleus

import "encoding/xml"

// The persona endpoint can answer with an XML document of the form
// <users><user><userId>..</userId><personaId>..</personaId><EAID>..</EAID></user></users>.
// Source order of <user> elements is preserved; for the single-persona path
// the first element is authoritative.

type xmlUser struct {
	UserID    string `xml:"userId"`
	PersonaID string `xml:"personaId"`
	EAID      string `xml:"EAID"`
}

type xmlUsers struct {
	XMLName xml.Name  `xml:"users"`
	Users   []xmlUser `xml:"user"`
}

// DecodeUserList parses a multi-user XML document into an ordered list of
// persona records, one per <user> element. A document with zero users is a
// missing-field failure, not an empty success. Used for batch lookups.
func DecodeUserList(body []byte) ([]PersonaInfo, error) {
	var doc xmlUsers
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, DecodeError{Message: "users XML payload", Cause: err}
	}
	if len(doc.Users) == 0 {
		return nil, MissingFieldError{Field: "user"}
	}
	list := make([]PersonaInfo, 0, len(doc.Users))
	for _, u := range doc.Users {
		info, err := u.toPersonaInfo("")
		if err != nil {
			return nil, err
		}
		list = append(list, info)
	}
	return list, nil
}

// firstPersonaFromXML extracts the authoritative first user, applying the
// same missing-field semantics per tag as the JSON path.
func firstPersonaFromXML(body []byte, accountID string) (PersonaInfo, error) {
	var doc xmlUsers
	if err := xml.Unmarshal(body, &doc); err != nil {
		return PersonaInfo{}, DecodeError{Message: "users XML payload", Cause: err}
	}
	if len(doc.Users) == 0 {
		return PersonaInfo{}, MissingFieldError{Field: "user"}
	}
	info, err := doc.Users[0].toPersonaInfo(accountID)
	if err != nil {
		return PersonaInfo{}, err
	}
	return info, nil
}

func (u xmlUser) toPersonaInfo(accountID string) (PersonaInfo, error) {
	if u.PersonaID == "" {
		return PersonaInfo{}, MissingFieldError{Field: "personaId"}
	}
	if u.UserID != "" {
		accountID = u.UserID
	}
	username := u.EAID
	if username == "" {
		username = u.UserID
	}
	if username == "" {
		username = accountID
	}
	return PersonaInfo{
		AccountID:      accountID,
		PersonaID:      u.PersonaID,
		PublicUsername: username,
	}, nil
}
