package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAuthority(t *testing.T) {
	t.Parallel()

	got, ok := ParseAuthority("ROLE_USER")
	assert.True(t, ok)
	assert.Equal(t, AuthorityUser, got)

	got, ok = ParseAuthority("ROLE_ADMIN")
	assert.True(t, ok)
	assert.Equal(t, AuthorityAdmin, got)

	for _, s := range []string{"", "role_user", "ROLE_ROOT", "ADMIN"} {
		_, ok := ParseAuthority(s)
		assert.False(t, ok, s)
	}
}

func TestHasAuthority(t *testing.T) {
	t.Parallel()

	set := []Authority{AuthorityUser}
	assert.True(t, HasAuthority(set, AuthorityUser))
	assert.False(t, HasAuthority(set, AuthorityAdmin))
	assert.False(t, HasAuthority(nil, AuthorityUser))
}
