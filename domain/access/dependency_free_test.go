package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

type recordingSink struct {
	payloads []events.Payload
}

func (s *recordingSink) PrerequisiteEventAdded(payload events.Payload) {
	s.payloads = append(s.payloads, payload)
}

func TestDependencyFree_DuplicatesAndMissingAreNoOps(t *testing.T) {
	m := NewDependencyFreeManager(NewManager(false), NullEventSink{})

	require.NoError(t, m.AddUser("alice"))
	require.NoError(t, m.AddUser("alice"))
	assert.True(t, m.ContainsUser("alice"))

	require.NoError(t, m.RemoveUser("alice"))
	require.NoError(t, m.RemoveUser("alice"))
	assert.False(t, m.ContainsUser("alice"))

	require.NoError(t, m.RemoveGroup("ghosts"))
	require.NoError(t, m.RemoveEntityType("ClientAccount"))
	require.NoError(t, m.RemoveUserToGroupMapping("alice", "ghosts"))
}

func TestDependencyFree_SynthesizesUserAndGroup(t *testing.T) {
	sink := &recordingSink{}
	m := NewDependencyFreeManager(NewManager(false), sink)

	require.NoError(t, m.AddUserToGroupMapping("alice", "staff"))

	assert.True(t, m.ContainsUser("alice"))
	assert.True(t, m.ContainsGroup("staff"))
	groups, err := m.GetUserToGroupMappings("alice", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff"}, groups)

	assert.Equal(t, []events.Payload{
		events.UserPayload{User: "alice"},
		events.GroupPayload{Group: "staff"},
	}, sink.payloads)
}

func TestDependencyFree_SynthesizesEntityChain(t *testing.T) {
	sink := &recordingSink{}
	m := NewDependencyFreeManager(NewManager(false), sink)

	require.NoError(t, m.AddUserToEntityMapping("alice", "ClientAccount", "CompanyA"))

	assert.True(t, m.ContainsEntityType("ClientAccount"))
	assert.True(t, m.ContainsEntity("ClientAccount", "CompanyA"))
	has, err := m.HasAccessToEntity("alice", "ClientAccount", "CompanyA")
	require.NoError(t, err)
	assert.True(t, has)

	// Prerequisites arrive in dependency order: user, then entity type, then
	// entity, each strictly before the mapping that needed them.
	assert.Equal(t, []events.Payload{
		events.UserPayload{User: "alice"},
		events.EntityTypePayload{EntityType: "ClientAccount"},
		events.EntityPayload{EntityType: "ClientAccount", Entity: "CompanyA"},
	}, sink.payloads)
}

func TestDependencyFree_NoSynthesisWhenPresent(t *testing.T) {
	sink := &recordingSink{}
	m := NewDependencyFreeManager(NewManager(false), sink)

	require.NoError(t, m.AddGroup("staff"))
	require.NoError(t, m.AddGroup("admins"))
	require.NoError(t, m.AddGroupToGroupMapping("staff", "admins"))

	assert.Empty(t, sink.payloads)
}

func TestDependencyFree_CycleStillFails(t *testing.T) {
	m := NewDependencyFreeManager(NewManager(false), NullEventSink{})

	require.NoError(t, m.AddGroupToGroupMapping("a", "b"))
	require.NoError(t, m.AddGroupToGroupMapping("b", "c"))
	assert.True(t, apperrors.IsWouldCreateCycle(m.AddGroupToGroupMapping("c", "a")))
}

func TestDependencyFree_ComponentMappingSynthesizesPrincipal(t *testing.T) {
	sink := &recordingSink{}
	m := NewDependencyFreeManager(NewManager(false), sink)

	require.NoError(t, m.AddGroupToApplicationComponentAndAccessLevelMapping("staff", "Orders", "View"))
	require.NoError(t, m.AddGroupToApplicationComponentAndAccessLevelMapping("staff", "Orders", "View"))

	assert.True(t, m.ContainsGroup("staff"))
	pairs, err := m.GetGroupToApplicationComponentAndAccessLevelMappings("staff")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
	assert.Equal(t, []events.Payload{events.GroupPayload{Group: "staff"}}, sink.payloads)
}
