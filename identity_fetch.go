package nucleus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nucleusid/nucleus-go/routes"
)

const personaBodyLimit = 1 << 20

// IdentityClient assembles the unified identity record from the account and
// persona endpoints.
type IdentityClient struct {
	client *Client
}

// AccountInfo fetches the master account (PID) record for the token's user.
func (i *IdentityClient) AccountInfo(ctx context.Context, token string) (AccountInfo, error) {
	if i == nil || i.client == nil {
		return AccountInfo{}, ConfigError{Reason: "identity client not initialized"}
	}
	req, err := i.client.newRequest(ctx, http.MethodGet, i.client.apiURL(routes.IdentityMe), token)
	if err != nil {
		return AccountInfo{}, err
	}
	resp, err := i.client.send(req)
	if err != nil {
		return AccountInfo{}, err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return AccountInfo{}, statusError(resp)
	}
	var payload struct {
		PID AccountInfo `json:"pid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return AccountInfo{}, DecodeError{Message: "account payload", Cause: err}
	}
	if payload.PID.AccountID == "" {
		return AccountInfo{}, MissingFieldError{Field: "pidId"}
	}
	return payload.PID, nil
}

// PersonaInfo fetches the persona linked to accountID. The first persona in
// the response is authoritative; later entries are discarded.
func (i *IdentityClient) PersonaInfo(ctx context.Context, accountID, token string) (PersonaInfo, error) {
	if i == nil || i.client == nil {
		return PersonaInfo{}, ConfigError{Reason: "identity client not initialized"}
	}
	if accountID == "" {
		return PersonaInfo{}, ConfigError{Reason: "account id required"}
	}
	path := strings.Replace(routes.IdentityPersonas, "{pid}", accountID, 1)
	req, err := i.client.newRequest(ctx, http.MethodGet, i.client.apiURL(path), token)
	if err != nil {
		return PersonaInfo{}, err
	}
	resp, err := i.client.send(req)
	if err != nil {
		return PersonaInfo{}, err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PersonaInfo{}, statusError(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, personaBodyLimit))
	if err != nil {
		return PersonaInfo{}, TransportError{Message: "reading persona payload", Cause: err}
	}
	if isXMLPayload(resp.Header.Get("Content-Type"), body) {
		return firstPersonaFromXML(body, accountID)
	}
	return decodePersonaJSON(body, accountID)
}

// FullIdentity runs the two dependent lookups in order and merges the
// results. Either both calls succeed or no identity is produced.
func (i *IdentityClient) FullIdentity(ctx context.Context, token string) (Identity, error) {
	account, err := i.AccountInfo(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	persona, err := i.PersonaInfo(ctx, account.AccountID.String(), token)
	if err != nil {
		return Identity{}, err
	}
	if persona.AccountID != account.AccountID.String() {
		return Identity{}, DecodeError{Message: "persona response account id mismatch"}
	}
	return Identity{
		AccountID:          account.AccountID.String(),
		PersonaID:          persona.PersonaID,
		PublicUsername:     persona.PublicUsername,
		Status:             account.Status,
		Country:            account.Country,
		Locale:             account.Locale,
		DateCreated:        account.DateCreated,
		RegistrationSource: account.RegistrationSource,
	}, nil
}

// AccountID returns just the master account id. It only needs the first of
// the two lookups.
func (i *IdentityClient) AccountID(ctx context.Context, token string) (string, error) {
	account, err := i.AccountInfo(ctx, token)
	if err != nil {
		return "", err
	}
	return account.AccountID.String(), nil
}

// PersonaID is a projection of FullIdentity.
func (i *IdentityClient) PersonaID(ctx context.Context, token string) (string, error) {
	identity, err := i.FullIdentity(ctx, token)
	if err != nil {
		return "", err
	}
	return identity.PersonaID, nil
}

// PublicUsername is a projection of FullIdentity.
func (i *IdentityClient) PublicUsername(ctx context.Context, token string) (string, error) {
	identity, err := i.FullIdentity(ctx, token)
	if err != nil {
		return "", err
	}
	return identity.PublicUsername, nil
}

// personaEntry is one persona object regardless of which container shape the
// provider used.
type personaEntry struct {
	PersonaID   FlexID `json:"personaId"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
	AccountID   FlexID `json:"pidId"`
}

// decodePersonaJSON reconciles the three container shapes the persona
// endpoint is known to produce, in fixed order: a nested
// {"personas":{"persona":[...]}} envelope, a flat {"personas":[...]} array,
// then a bare persona object.
func decodePersonaJSON(body []byte, accountID string) (PersonaInfo, error) {
	var nested struct {
		Personas struct {
			Persona []personaEntry `json:"persona"`
		} `json:"personas"`
	}
	err := json.Unmarshal(body, &nested)
	if err == nil && len(nested.Personas.Persona) > 0 {
		return nested.Personas.Persona[0].toPersonaInfo(accountID)
	}
	if de, ok := decodeFailure(err); ok {
		return PersonaInfo{}, de
	}
	var flat struct {
		Personas []personaEntry `json:"personas"`
	}
	err = json.Unmarshal(body, &flat)
	if err == nil && len(flat.Personas) > 0 {
		return flat.Personas[0].toPersonaInfo(accountID)
	}
	if de, ok := decodeFailure(err); ok {
		return PersonaInfo{}, de
	}
	var bare personaEntry
	err = json.Unmarshal(body, &bare)
	if err == nil && bare.PersonaID != "" {
		return bare.toPersonaInfo(accountID)
	}
	if de, ok := decodeFailure(err); ok {
		return PersonaInfo{}, de
	}
	return PersonaInfo{}, MissingFieldError{Field: "personaId"}
}

// decodeFailure distinguishes an identifier that was present but unparseable
// (a decode error) from a container shape that simply did not match.
func decodeFailure(err error) (DecodeError, bool) {
	var de DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return DecodeError{}, false
}

func (p personaEntry) toPersonaInfo(accountID string) (PersonaInfo, error) {
	if p.PersonaID == "" {
		return PersonaInfo{}, MissingFieldError{Field: "personaId"}
	}
	// Prefer the payload's own account id so the merge step can cross-check
	// it against the id the request was made for.
	id := accountID
	if p.AccountID != "" {
		id = p.AccountID.String()
	}
	return PersonaInfo{
		AccountID:      id,
		PersonaID:      p.PersonaID.String(),
		PublicUsername: p.username(accountID),
	}, nil
}

// username applies the fallback chain; the accountID parameter is the last
// resort and guarantees a non-empty result.
func (p personaEntry) username(accountID string) string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Name != "":
		return p.Name
	case p.AccountID != "":
		return p.AccountID.String()
	default:
		return accountID
	}
}

func isXMLPayload(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}
