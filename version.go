package nucleus

// Version is the published SDK version.
// 0.4.0: Breaking - Persona lookups return typed MissingFieldError instead of
// generic decode errors; add DecodeUserList for multi-user XML payloads.
// 0.3.0: Add KeyringStore and encrypted FileStore credential backends.
// 0.2.0: Breaking - Authenticator owns the credential slot; Client methods now
// take the bearer token explicitly instead of reading a package-level default.
const Version = "0.4.0"
