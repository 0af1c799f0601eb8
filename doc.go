// Package auth manages account credentials, role bookkeeping and bearer
// access tokens.
//
// Credentials:
//   - CredentialCodec derives the stored credential. BcryptCodec, the
//     default, stores salted bcrypt hashes and compares exactly.
//     WithCaseInsensitiveMatch keeps the legacy case folding contract and
//     WithLegacyCredentials accepts base64 values written by the legacy
//     system (see Base64Codec).
//
// Tokens:
//   - TokenValidationConfig holds the issuer, audience and HMAC key. It is
//     built once at startup and installed process wide with
//     InitTokenValidationConfig.
//   - TokenVerifier checks exp presence, iss, aud, the signature and the
//     [nbf, exp] window with no leeway. Verify collapses every failure to
//     false.
//   - TokenService mints tokens the verifier accepts. ClaimsDecorator may
//     add roles or metadata while protected claims (jti, sub, iss, aud, iat,
//     nbf, exp) remain immutable.
//
// Accounts:
//   - AccountRepository layers the domain rules over an AccountStore. Its
//     boolean methods never panic or return errors; each failure is logged
//     with its kind (see ErrorKind) before being reported as false. The
//     error returning counterparts expose the failure.
//   - ActivitySink receives best-effort audit events for account creation,
//     role assignment, token attachment and rejected credentials or tokens.
//
// The repository subpackage provides a Bun backed AccountStore and the
// embedded SQL migrations.
package auth
