package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "appaccess-backend/pkg/errors"
)

// buildOrgFixture creates the canonical membership layout used across the
// query tests:
//
//	alice -> staff -> admins
//	bob   -> staff
//	carol -> admins
//
// admins holds Orders/Modify and the CompanyA client account; staff holds
// Orders/View.
func buildOrgFixture(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(true)
	require.NoError(t, m.AddUser("alice"))
	require.NoError(t, m.AddUser("bob"))
	require.NoError(t, m.AddUser("carol"))
	require.NoError(t, m.AddGroup("staff"))
	require.NoError(t, m.AddGroup("admins"))
	require.NoError(t, m.AddUserToGroupMapping("alice", "staff"))
	require.NoError(t, m.AddUserToGroupMapping("bob", "staff"))
	require.NoError(t, m.AddUserToGroupMapping("carol", "admins"))
	require.NoError(t, m.AddGroupToGroupMapping("staff", "admins"))
	require.NoError(t, m.AddGroupToApplicationComponentAndAccessLevelMapping("staff", "Orders", "View"))
	require.NoError(t, m.AddGroupToApplicationComponentAndAccessLevelMapping("admins", "Orders", "Modify"))
	require.NoError(t, m.AddEntityType("ClientAccount"))
	require.NoError(t, m.AddEntity("ClientAccount", "CompanyA"))
	require.NoError(t, m.AddEntity("ClientAccount", "CompanyB"))
	require.NoError(t, m.AddGroupToEntityMapping("admins", "ClientAccount", "CompanyA"))
	return m
}

func TestAddUser(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.AddUser("alice"))
	assert.True(t, m.ContainsUser("alice"))

	err := m.AddUser("alice")
	assert.True(t, apperrors.IsAlreadyExists(err))

	err = m.AddUser("")
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestAddGroup(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.AddGroup("staff"))
	assert.True(t, m.ContainsGroup("staff"))
	assert.True(t, apperrors.IsAlreadyExists(m.AddGroup("staff")))
}

func TestAddUserToGroupMapping_MissingElements(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.AddUser("alice"))

	err := m.AddUserToGroupMapping("alice", "ghosts")
	require.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Group")

	err = m.AddUserToGroupMapping("nobody", "ghosts")
	require.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "User")
}

func TestAddGroupToGroupMapping_RejectsCycle(t *testing.T) {
	m := NewManager(false)
	for _, g := range []string{"a", "b", "c"} {
		require.NoError(t, m.AddGroup(g))
	}
	require.NoError(t, m.AddGroupToGroupMapping("a", "b"))
	require.NoError(t, m.AddGroupToGroupMapping("b", "c"))

	err := m.AddGroupToGroupMapping("c", "a")
	assert.True(t, apperrors.IsWouldCreateCycle(err))

	err = m.AddGroupToGroupMapping("a", "a")
	assert.True(t, apperrors.IsWouldCreateCycle(err))

	// The failed edges must leave the graph untouched.
	groups, err := m.GetGroupToGroupMappings("c", false)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestTransitiveComponentAccess(t *testing.T) {
	m := buildOrgFixture(t)

	// alice reaches admins through staff, so she holds both access levels.
	has, err := m.HasAccessToApplicationComponent("alice", "Orders", "View")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = m.HasAccessToApplicationComponent("alice", "Orders", "Modify")
	require.NoError(t, err)
	assert.True(t, has)

	// carol is only in admins; staff's View does not flow back to her.
	has, err = m.HasAccessToApplicationComponent("carol", "Orders", "View")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = m.HasAccessToApplicationComponent("carol", "Orders", "Modify")
	require.NoError(t, err)
	assert.True(t, has)

	pairs, err := m.GetApplicationComponentsAccessibleByUser("alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ComponentAndAccessLevel{
		{ApplicationComponent: "Orders", AccessLevel: "View"},
		{ApplicationComponent: "Orders", AccessLevel: "Modify"},
	}, pairs)
}

func TestTransitiveEntityAccess(t *testing.T) {
	m := buildOrgFixture(t)

	has, err := m.HasAccessToEntity("alice", "ClientAccount", "CompanyA")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = m.HasAccessToEntity("bob", "ClientAccount", "CompanyB")
	require.NoError(t, err)
	assert.False(t, has)

	entities, err := m.GetEntitiesOfTypeAccessibleByUser("alice", "ClientAccount")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CompanyA"}, entities)
}

func TestUserToGroupMappings(t *testing.T) {
	m := buildOrgFixture(t)

	direct, err := m.GetUserToGroupMappings("alice", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff"}, direct)

	indirect, err := m.GetUserToGroupMappings("alice", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff", "admins"}, indirect)

	_, err = m.GetUserToGroupMappings("nobody", true)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGroupToUserMappings(t *testing.T) {
	m := buildOrgFixture(t)

	direct, err := m.GetGroupToUserMappings("admins", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol"}, direct)

	indirect, err := m.GetGroupToUserMappings("admins", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, indirect)
}

func TestGroupToGroupMappings(t *testing.T) {
	m := buildOrgFixture(t)
	require.NoError(t, m.AddGroup("root"))
	require.NoError(t, m.AddGroupToGroupMapping("admins", "root"))

	forward, err := m.GetGroupToGroupMappings("staff", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admins", "root"}, forward)

	reverse, err := m.GetGroupToGroupReverseMappings("root", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admins", "staff"}, reverse)
}

func TestReverseComponentMappings(t *testing.T) {
	m := buildOrgFixture(t)

	users, err := m.GetApplicationComponentAndAccessLevelToUserMappings("Orders", "Modify", false)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = m.GetApplicationComponentAndAccessLevelToUserMappings("Orders", "Modify", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, users)

	groups, err := m.GetApplicationComponentAndAccessLevelToGroupMappings("Orders", "Modify", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admins", "staff"}, groups)
}

func TestEntityToUserMappings(t *testing.T) {
	m := buildOrgFixture(t)
	require.NoError(t, m.AddUserToEntityMapping("bob", "ClientAccount", "CompanyB"))

	users, err := m.GetEntityToUserMappings("ClientAccount", "CompanyA", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, users)

	users, err = m.GetEntityToUserMappings("ClientAccount", "CompanyB", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob"}, users)

	_, err = m.GetEntityToUserMappings("ClientAccount", "CompanyC", false)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveUser_CascadesMappings(t *testing.T) {
	m := buildOrgFixture(t)
	require.NoError(t, m.AddUserToApplicationComponentAndAccessLevelMapping("alice", "Reports", "View"))
	require.NoError(t, m.AddUserToEntityMapping("alice", "ClientAccount", "CompanyB"))

	require.NoError(t, m.RemoveUser("alice"))
	assert.False(t, m.ContainsUser("alice"))

	users, err := m.GetGroupToUserMappings("staff", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob"}, users)

	assert.True(t, apperrors.IsNotFound(m.RemoveUser("alice")))
}

func TestRemoveGroup_CascadesEdges(t *testing.T) {
	m := buildOrgFixture(t)

	require.NoError(t, m.RemoveGroup("staff"))
	assert.False(t, m.ContainsGroup("staff"))

	groups, err := m.GetUserToGroupMappings("alice", true)
	require.NoError(t, err)
	assert.Empty(t, groups)

	reverse, err := m.GetGroupToGroupReverseMappings("admins", true)
	require.NoError(t, err)
	assert.Empty(t, reverse)
}

func TestRemoveEntityType_CascadesMappings(t *testing.T) {
	m := buildOrgFixture(t)
	require.NoError(t, m.AddUserToEntityMapping("bob", "ClientAccount", "CompanyB"))

	require.NoError(t, m.RemoveEntityType("ClientAccount"))
	assert.False(t, m.ContainsEntityType("ClientAccount"))

	entities, err := m.GetUserToEntityMappings("bob")
	require.NoError(t, err)
	assert.Empty(t, entities)

	entities, err = m.GetGroupToEntityMappings("admins")
	require.NoError(t, err)
	assert.Empty(t, entities)

	_, err = m.HasAccessToEntity("alice", "ClientAccount", "CompanyA")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveEntity_CascadesMappings(t *testing.T) {
	m := buildOrgFixture(t)

	require.NoError(t, m.RemoveEntity("ClientAccount", "CompanyA"))
	assert.False(t, m.ContainsEntity("ClientAccount", "CompanyA"))
	assert.True(t, m.ContainsEntity("ClientAccount", "CompanyB"))

	entities, err := m.GetGroupToEntityMappings("admins")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestComponentMappingRoundTrip(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.AddUser("alice"))
	require.NoError(t, m.AddUserToApplicationComponentAndAccessLevelMapping("alice", "Orders", "View"))

	err := m.AddUserToApplicationComponentAndAccessLevelMapping("alice", "Orders", "View")
	assert.True(t, apperrors.IsAlreadyExists(err))

	require.NoError(t, m.RemoveUserToApplicationComponentAndAccessLevelMapping("alice", "Orders", "View"))
	err = m.RemoveUserToApplicationComponentAndAccessLevelMapping("alice", "Orders", "View")
	assert.True(t, apperrors.IsNotFound(err))

	pairs, err := m.GetUserToApplicationComponentAndAccessLevelMappings("alice")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestEntityMappingRequiresExistingEntity(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.AddUser("alice"))

	err := m.AddUserToEntityMapping("alice", "ClientAccount", "CompanyA")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, m.AddEntityType("ClientAccount"))
	err = m.AddUserToEntityMapping("alice", "ClientAccount", "CompanyA")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, m.AddEntity("ClientAccount", "CompanyA"))
	require.NoError(t, m.AddUserToEntityMapping("alice", "ClientAccount", "CompanyA"))
}
