package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "a@b.c", 15)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), claims.UserID)
    assert.Equal(t, "a@b.c", claims.Email)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    good, err := NewAccessToken("s3cret", 42, "", 15)
    require.NoError(t, err)
    expired, err := NewAccessToken("s3cret", 42, "", -1)
    require.NoError(t, err)

    noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
    noSubRaw, err := noSub.SignedString([]byte("s3cret"))
    require.NoError(t, err)

    noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"})
    noExpRaw, err := noExp.SignedString([]byte("s3cret"))
    require.NoError(t, err)

    cases := map[string]struct{ secret, raw string }{
        "wrong secret": {"other", good.Token},
        "expired":      {"s3cret", expired.Token},
        "garbage":      {"s3cret", "not.a.jwt"},
        "missing sub":  {"s3cret", noSubRaw},
        "missing exp":  {"s3cret", noExpRaw},
    }
    for name, tc := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := ParseAccessToken(tc.secret, tc.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestParseAccessToken_NumericSub(t *testing.T) {
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 9, "exp": time.Now().Add(time.Hour).Unix()})
    raw, err := tok.SignedString([]byte("k"))
    require.NoError(t, err)

    claims, err := ParseAccessToken("k", raw)
    require.NoError(t, err)
    assert.Equal(t, uint64(9), claims.UserID)
}

func TestRefreshToken(t *testing.T) {
    rt, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.Equal(t, HashRefreshRaw("x"), HashRefreshRaw("x"))
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter22", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter22"))
    assert.False(t, VerifyPassword(hash, "hunter23"))
}
