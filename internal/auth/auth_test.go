package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Issue(t *testing.T) {
	tokens := New("secret", time.Hour)

	token, err := tokens.Issue("winter@cloudstory.app")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.True(t, tokens.Validate(token))

	subject, err := tokens.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "winter@cloudstory.app", subject)
}

func TestTokens_Validate_Expired(t *testing.T) {
	tokens := New("secret", time.Hour)

	issued := time.Now()
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Issue("winter@cloudstory.app")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(59 * time.Minute) }
	assert.True(t, tokens.Validate(token))

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.False(t, tokens.Validate(token))

	_, err = tokens.Subject(token)
	assert.Error(t, err)
}

func TestTokens_Validate_WrongKey(t *testing.T) {
	token, err := New("secret", time.Hour).Issue("winter@cloudstory.app")
	require.NoError(t, err)

	assert.False(t, New("other", time.Hour).Validate(token))
}

func TestTokens_Validate_Garbage(t *testing.T) {
	tokens := New("secret", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		assert.False(t, tokens.Validate(token), token)
	}
}

func TestTokens_Subject_Invalid(t *testing.T) {
	tokens := New("secret", time.Hour)

	subject, err := tokens.Subject("garbage")
	require.Error(t, err)
	assert.Empty(t, subject)
}
