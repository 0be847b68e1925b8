// Package access implements the in-memory authorization state: the user and
// group graph plus the mappings from users and groups to application
// components and entities, and the permission queries over them.
package access

import (
	"errors"
	"sync"

	"appaccess-backend/domain/concurrency"
	"appaccess-backend/domain/graph"
	apperrors "appaccess-backend/pkg/errors"
)

// ComponentAndAccessLevel pairs an application component with an access level.
type ComponentAndAccessLevel struct {
	ApplicationComponent string `json:"applicationComponent"`
	AccessLevel          string `json:"accessLevel"`
}

// EntityTypeAndEntity pairs an entity with its type.
type EntityTypeAndEntity struct {
	EntityType string `json:"entityType"`
	Entity     string `json:"entity"`
}

// Manager holds the authorization graph and mapping stores. Mutations fail in
// strict mode: adding a duplicate raises AlreadyExists and referring to a
// missing element raises NotFound. The DependencyFreeManager wrapper relaxes
// both for replica use.
//
// A single reader/writer mutex serializes writes against all reads; the
// embedded graph wrapper therefore runs with locking bypassed.
type Manager struct {
	mu sync.RWMutex

	userGroupGraph *concurrency.ConcurrentDirectedGraph[string, string]

	userComponentMap  map[string]map[ComponentAndAccessLevel]struct{}
	groupComponentMap map[string]map[ComponentAndAccessLevel]struct{}

	// entityType -> set of entities
	entities map[string]map[string]struct{}

	// user/group -> entityType -> set of entities
	userEntityMap  map[string]map[string]map[string]struct{}
	groupEntityMap map[string]map[string]map[string]struct{}
}

// NewManager creates an empty access manager. storeBidirectionalMappings
// selects whether the graph keeps reverse edges, trading memory for O(1)
// reverse queries.
func NewManager(storeBidirectionalMappings bool) *Manager {
	g := graph.NewDirectedGraph[string, string](storeBidirectionalMappings)
	return &Manager{
		userGroupGraph:    concurrency.NewConcurrentDirectedGraph(g, true),
		userComponentMap:  make(map[string]map[ComponentAndAccessLevel]struct{}),
		groupComponentMap: make(map[string]map[ComponentAndAccessLevel]struct{}),
		entities:          make(map[string]map[string]struct{}),
		userEntityMap:     make(map[string]map[string]map[string]struct{}),
		groupEntityMap:    make(map[string]map[string]map[string]struct{}),
	}
}

// Users

// AddUser adds a user.
func (m *Manager) AddUser(user string) error {
	if user == "" {
		return apperrors.NewInvalidArgument("user", "user must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.AddLeafVertex(user); err != nil {
		return userError(err, user)
	}
	return nil
}

// ContainsUser reports whether the user exists.
func (m *Manager) ContainsUser(user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userGroupGraph.ContainsLeafVertex(user)
}

// GetUsers returns all users.
func (m *Manager) GetUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userGroupGraph.Graph().LeafVertices()
}

// RemoveUser removes a user together with all its mappings.
func (m *Manager) RemoveUser(user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.RemoveLeafVertex(user); err != nil {
		return userError(err, user)
	}
	delete(m.userComponentMap, user)
	delete(m.userEntityMap, user)
	return nil
}

// Groups

// AddGroup adds a group.
func (m *Manager) AddGroup(group string) error {
	if group == "" {
		return apperrors.NewInvalidArgument("group", "group must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.AddNonLeafVertex(group); err != nil {
		return groupError(err, group)
	}
	return nil
}

// ContainsGroup reports whether the group exists.
func (m *Manager) ContainsGroup(group string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userGroupGraph.ContainsNonLeafVertex(group)
}

// GetGroups returns all groups.
func (m *Manager) GetGroups() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userGroupGraph.Graph().NonLeafVertices()
}

// RemoveGroup removes a group, its incident graph edges and its mappings.
func (m *Manager) RemoveGroup(group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.RemoveNonLeafVertex(group, nil, nil); err != nil {
		return groupError(err, group)
	}
	delete(m.groupComponentMap, group)
	delete(m.groupEntityMap, group)
	return nil
}

// User-to-group mappings

// AddUserToGroupMapping maps a user into a group.
func (m *Manager) AddUserToGroupMapping(user, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.AddLeafToNonLeafEdge(user, group); err != nil {
		return mappingError(err, user, group)
	}
	return nil
}

// RemoveUserToGroupMapping removes a user from a group.
func (m *Manager) RemoveUserToGroupMapping(user, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.RemoveLeafToNonLeafEdge(user, group); err != nil {
		return mappingError(err, user, group)
	}
	return nil
}

// AddGroupToGroupMapping maps a group into another group. Fails with
// WouldCreateCycle if the edge would close a cycle.
func (m *Manager) AddGroupToGroupMapping(fromGroup, toGroup string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.AddNonLeafToNonLeafEdge(fromGroup, toGroup); err != nil {
		return mappingError(err, fromGroup, toGroup)
	}
	return nil
}

// RemoveGroupToGroupMapping removes a group from another group.
func (m *Manager) RemoveGroupToGroupMapping(fromGroup, toGroup string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.userGroupGraph.RemoveNonLeafToNonLeafEdge(fromGroup, toGroup); err != nil {
		return mappingError(err, fromGroup, toGroup)
	}
	return nil
}

// Component access mappings

// AddUserToApplicationComponentAndAccessLevelMapping grants a user access to
// a component at an access level.
func (m *Manager) AddUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return apperrors.NewNotFound("User", user)
	}
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	if _, ok := m.userComponentMap[user][pair]; ok {
		return apperrors.NewAlreadyExists("UserToApplicationComponentAndAccessLevelMapping", user+"/"+component+"/"+accessLevel)
	}
	if m.userComponentMap[user] == nil {
		m.userComponentMap[user] = make(map[ComponentAndAccessLevel]struct{})
	}
	m.userComponentMap[user][pair] = struct{}{}
	return nil
}

// RemoveUserToApplicationComponentAndAccessLevelMapping revokes a user's
// access to a component at an access level.
func (m *Manager) RemoveUserToApplicationComponentAndAccessLevelMapping(user, component, accessLevel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return apperrors.NewNotFound("User", user)
	}
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	if _, ok := m.userComponentMap[user][pair]; !ok {
		return apperrors.NewNotFound("UserToApplicationComponentAndAccessLevelMapping", user+"/"+component+"/"+accessLevel)
	}
	delete(m.userComponentMap[user], pair)
	return nil
}

// AddGroupToApplicationComponentAndAccessLevelMapping grants a group access
// to a component at an access level.
func (m *Manager) AddGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return apperrors.NewNotFound("Group", group)
	}
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	if _, ok := m.groupComponentMap[group][pair]; ok {
		return apperrors.NewAlreadyExists("GroupToApplicationComponentAndAccessLevelMapping", group+"/"+component+"/"+accessLevel)
	}
	if m.groupComponentMap[group] == nil {
		m.groupComponentMap[group] = make(map[ComponentAndAccessLevel]struct{})
	}
	m.groupComponentMap[group][pair] = struct{}{}
	return nil
}

// RemoveGroupToApplicationComponentAndAccessLevelMapping revokes a group's
// access to a component at an access level.
func (m *Manager) RemoveGroupToApplicationComponentAndAccessLevelMapping(group, component, accessLevel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return apperrors.NewNotFound("Group", group)
	}
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	if _, ok := m.groupComponentMap[group][pair]; !ok {
		return apperrors.NewNotFound("GroupToApplicationComponentAndAccessLevelMapping", group+"/"+component+"/"+accessLevel)
	}
	delete(m.groupComponentMap[group], pair)
	return nil
}

// Entity types and entities

// AddEntityType adds an entity type.
func (m *Manager) AddEntityType(entityType string) error {
	if entityType == "" {
		return apperrors.NewInvalidArgument("entityType", "entityType must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[entityType]; ok {
		return apperrors.NewAlreadyExists("EntityType", entityType)
	}
	m.entities[entityType] = make(map[string]struct{})
	return nil
}

// ContainsEntityType reports whether the entity type exists.
func (m *Manager) ContainsEntityType(entityType string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entities[entityType]
	return ok
}

// GetEntityTypes returns all entity types.
func (m *Manager) GetEntityTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.entities))
	for entityType := range m.entities {
		types = append(types, entityType)
	}
	return types
}

// RemoveEntityType removes an entity type, all its entities and every mapping
// referencing them.
func (m *Manager) RemoveEntityType(entityType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[entityType]; !ok {
		return apperrors.NewNotFound("EntityType", entityType)
	}
	delete(m.entities, entityType)
	for user := range m.userEntityMap {
		delete(m.userEntityMap[user], entityType)
	}
	for group := range m.groupEntityMap {
		delete(m.groupEntityMap[group], entityType)
	}
	return nil
}

// AddEntity adds an entity under an entity type.
func (m *Manager) AddEntity(entityType, entity string) error {
	if entity == "" {
		return apperrors.NewInvalidArgument("entity", "entity must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.entities[entityType]
	if !ok {
		return apperrors.NewNotFound("EntityType", entityType)
	}
	if _, ok := set[entity]; ok {
		return apperrors.NewAlreadyExists("Entity", entityType+"/"+entity)
	}
	set[entity] = struct{}{}
	return nil
}

// ContainsEntity reports whether the entity exists under the entity type.
func (m *Manager) ContainsEntity(entityType, entity string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entities[entityType][entity]
	return ok
}

// GetEntities returns the entities of an entity type.
func (m *Manager) GetEntities(entityType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.entities[entityType]
	if !ok {
		return nil, apperrors.NewNotFound("EntityType", entityType)
	}
	result := make([]string, 0, len(set))
	for entity := range set {
		result = append(result, entity)
	}
	return result, nil
}

// RemoveEntity removes an entity and every mapping referencing it.
func (m *Manager) RemoveEntity(entityType, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.entities[entityType]
	if !ok {
		return apperrors.NewNotFound("EntityType", entityType)
	}
	if _, ok := set[entity]; !ok {
		return apperrors.NewNotFound("Entity", entityType+"/"+entity)
	}
	delete(set, entity)
	for user := range m.userEntityMap {
		delete(m.userEntityMap[user][entityType], entity)
	}
	for group := range m.groupEntityMap {
		delete(m.groupEntityMap[group][entityType], entity)
	}
	return nil
}

// Entity mappings

// AddUserToEntityMapping grants a user access to an entity.
func (m *Manager) AddUserToEntityMapping(user, entityType, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return apperrors.NewNotFound("User", user)
	}
	if err := m.requireEntity(entityType, entity); err != nil {
		return err
	}
	if _, ok := m.userEntityMap[user][entityType][entity]; ok {
		return apperrors.NewAlreadyExists("UserToEntityMapping", user+"/"+entityType+"/"+entity)
	}
	if m.userEntityMap[user] == nil {
		m.userEntityMap[user] = make(map[string]map[string]struct{})
	}
	if m.userEntityMap[user][entityType] == nil {
		m.userEntityMap[user][entityType] = make(map[string]struct{})
	}
	m.userEntityMap[user][entityType][entity] = struct{}{}
	return nil
}

// RemoveUserToEntityMapping revokes a user's access to an entity.
func (m *Manager) RemoveUserToEntityMapping(user, entityType, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return apperrors.NewNotFound("User", user)
	}
	if err := m.requireEntity(entityType, entity); err != nil {
		return err
	}
	if _, ok := m.userEntityMap[user][entityType][entity]; !ok {
		return apperrors.NewNotFound("UserToEntityMapping", user+"/"+entityType+"/"+entity)
	}
	delete(m.userEntityMap[user][entityType], entity)
	return nil
}

// AddGroupToEntityMapping grants a group access to an entity.
func (m *Manager) AddGroupToEntityMapping(group, entityType, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return apperrors.NewNotFound("Group", group)
	}
	if err := m.requireEntity(entityType, entity); err != nil {
		return err
	}
	if _, ok := m.groupEntityMap[group][entityType][entity]; ok {
		return apperrors.NewAlreadyExists("GroupToEntityMapping", group+"/"+entityType+"/"+entity)
	}
	if m.groupEntityMap[group] == nil {
		m.groupEntityMap[group] = make(map[string]map[string]struct{})
	}
	if m.groupEntityMap[group][entityType] == nil {
		m.groupEntityMap[group][entityType] = make(map[string]struct{})
	}
	m.groupEntityMap[group][entityType][entity] = struct{}{}
	return nil
}

// RemoveGroupToEntityMapping revokes a group's access to an entity.
func (m *Manager) RemoveGroupToEntityMapping(group, entityType, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return apperrors.NewNotFound("Group", group)
	}
	if err := m.requireEntity(entityType, entity); err != nil {
		return err
	}
	if _, ok := m.groupEntityMap[group][entityType][entity]; !ok {
		return apperrors.NewNotFound("GroupToEntityMapping", group+"/"+entityType+"/"+entity)
	}
	delete(m.groupEntityMap[group][entityType], entity)
	return nil
}

func (m *Manager) requireEntity(entityType, entity string) error {
	set, ok := m.entities[entityType]
	if !ok {
		return apperrors.NewNotFound("EntityType", entityType)
	}
	if _, ok := set[entity]; !ok {
		return apperrors.NewNotFound("Entity", entityType+"/"+entity)
	}
	return nil
}

// userError renames the graph's leaf-vertex resource to the domain term.
func userError(err error, user string) error {
	switch {
	case apperrors.IsNotFound(err):
		return apperrors.NewNotFound("User", user)
	case apperrors.IsAlreadyExists(err):
		return apperrors.NewAlreadyExists("User", user)
	default:
		return err
	}
}

func groupError(err error, group string) error {
	switch {
	case apperrors.IsNotFound(err):
		return apperrors.NewNotFound("Group", group)
	case apperrors.IsAlreadyExists(err):
		return apperrors.NewAlreadyExists("Group", group)
	default:
		return err
	}
}

// mappingError keeps NotFound/AlreadyExists from the graph but restates the
// resource in domain terms. The graph names its resources in vertex/edge
// vocabulary; callers of the access manager see users, groups and mappings.
func mappingError(err error, from, to string) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return err
	}
	resource, id := "Mapping", from+"/"+to
	for _, attr := range appErr.Attributes {
		if attr.Name != "ResourceType" {
			continue
		}
		switch attr.Value {
		case "LeafVertex":
			resource, id = "User", graphResourceID(appErr, id)
		case "NonLeafVertex":
			resource, id = "Group", graphResourceID(appErr, id)
		case "LeafToNonLeafEdge":
			resource = "UserToGroupMapping"
		case "NonLeafToNonLeafEdge":
			resource = "GroupToGroupMapping"
		}
	}
	switch appErr.Kind {
	case apperrors.KindNotFound:
		return apperrors.NewNotFound(resource, id)
	case apperrors.KindAlreadyExists:
		return apperrors.NewAlreadyExists(resource, id)
	default:
		return err
	}
}

func graphResourceID(appErr *apperrors.Error, fallback string) string {
	for _, attr := range appErr.Attributes {
		if attr.Name == "ResourceId" {
			return attr.Value
		}
	}
	return fallback
}
