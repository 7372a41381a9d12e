package utils // package utils provides helpers for token creation and verification

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification failures are reported through these sentinel errors so
// callers can map each one to the right response.
var (
    // ErrInvalidSignature means the token signature does not match the
    // signing secret, or the token is otherwise not parseable.
    ErrInvalidSignature = errors.New("invalid token signature")
    // ErrTokenExpired means the embedded expiry lies in the past.
    ErrTokenExpired = errors.New("token expired")
    // ErrMalformedClaims means a required claim (username, subject or
    // role) is absent or of the wrong type.
    ErrMalformedClaims = errors.New("malformed token claims")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string. Exp stores the expiration
// timestamp as a time.Time. Access tokens are short-lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims is the decoded content of a verified access token. A token is a
// point-in-time snapshot: entitlement changes made to the underlying user
// after issuance are not reflected until the user authenticates again.
type Claims struct {
    UserID      uint64
    Username    string
    Role        string
    HasAccessV1 bool
    HasAccessV2 bool
    ExpiresAt   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. It takes the
// signing secret, the user's identity and entitlement flags, and a TTL in
// minutes. The JWT carries the subject (sub), username, role, both
// per-version access flags, expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uint64, username, role string, hasV1, hasV2 bool, ttlMin int) (AccessToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":           userID,
        "username":      username,
        "role":          role,
        "has_access_v1": hasV1,
        "has_access_v2": hasV2,
        "exp":           exp.Unix(),
        "iat":           time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a raw token string. Expiry is
// checked before claim shape so an expired but otherwise well-formed
// token reports ErrTokenExpired. Only HMAC-signed tokens are accepted.
func VerifyAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidSignature
        }
        return []byte(secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return Claims{}, ErrTokenExpired
        }
        return Claims{}, ErrInvalidSignature
    }
    if !tok.Valid {
        return Claims{}, ErrInvalidSignature
    }

    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrMalformedClaims
    }

    var c Claims
    switch sub := mc["sub"].(type) {
    case float64:
        c.UserID = uint64(sub)
    default:
        return Claims{}, ErrMalformedClaims
    }
    if c.Username, ok = mc["username"].(string); !ok || c.Username == "" {
        return Claims{}, ErrMalformedClaims
    }
    if c.Role, ok = mc["role"].(string); !ok || c.Role == "" {
        return Claims{}, ErrMalformedClaims
    }
    // Access flags default to false when absent; older tokens without
    // them remain verifiable but grant nothing.
    c.HasAccessV1, _ = mc["has_access_v1"].(bool)
    c.HasAccessV2, _ = mc["has_access_v2"].(bool)
    if expVal, ok := mc["exp"].(float64); ok {
        c.ExpiresAt = time.Unix(int64(expVal), 0).UTC()
    }
    return c, nil
}
