package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanManageOps(t *testing.T) {
	assert.False(t, CanManageOps(Principal{}))
	assert.False(t, CanManageOps(Principal{Authenticated: true}))
	assert.False(t, CanManageOps(Principal{Authenticated: true, Groups: []string{GroupMembre}}))
	assert.True(t, CanManageOps(Principal{Authenticated: true, Groups: []string{GroupAdmin}}))
	assert.True(t, CanManageOps(Principal{Authenticated: true, Groups: []string{GroupSuperAdmin}}))
	assert.True(t, CanManageOps(Principal{Authenticated: true, Superuser: true}))
	// unauthenticated callers never pass, whatever the claims say
	assert.False(t, CanManageOps(Principal{Superuser: true, Groups: []string{GroupAdmin}}))
}

func TestCanAccessMemberHome(t *testing.T) {
	assert.False(t, CanAccessMemberHome(Principal{}))
	assert.False(t, CanAccessMemberHome(Principal{Authenticated: true, Groups: []string{"Guest"}}))
	assert.True(t, CanAccessMemberHome(Principal{Authenticated: true, Groups: []string{GroupMembre}}))
	assert.True(t, CanAccessMemberHome(Principal{Authenticated: true, Groups: []string{GroupLegacyMember}}))
	assert.True(t, CanAccessMemberHome(Principal{Authenticated: true, Groups: []string{GroupAdmin}}))
	assert.True(t, CanAccessMemberHome(Principal{Authenticated: true, Superuser: true}))
}

func TestCanModifyUser(t *testing.T) {
	admin := Principal{Authenticated: true, Groups: []string{GroupAdmin}}
	root := Principal{Authenticated: true, Superuser: true}
	member := Principal{Authenticated: true, Groups: []string{GroupMembre}}

	assert.True(t, CanModifyUser(admin, false))
	assert.False(t, CanModifyUser(admin, true))
	assert.True(t, CanModifyUser(root, true))
	assert.False(t, CanModifyUser(member, false))
}

func TestValidGroup(t *testing.T) {
	assert.True(t, ValidGroup(GroupMembre))
	assert.False(t, ValidGroup(GroupLegacyMember))
	assert.False(t, ValidGroup("root"))
}
