package access

import (
	apperrors "appaccess-backend/pkg/errors"
)

// GetUserToGroupMappings returns the groups a user is mapped to. With
// includeIndirect the full transitive closure through group-to-group mappings
// is returned; otherwise only the direct memberships.
func (m *Manager) GetUserToGroupMappings(user string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	if !includeIndirect {
		groups, err := m.userGroupGraph.GetLeafEdges(user)
		if err != nil {
			return nil, err
		}
		return groups, nil
	}
	var groups []string
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		groups = append(groups, group)
		return true
	}); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroupToUserMappings returns the users mapped to a group. With
// includeIndirect, users of every group from which this group is reachable
// are included.
func (m *Manager) GetGroupToUserMappings(group string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	users := map[string]struct{}{}
	collect := func(g string) bool {
		leaves, err := m.userGroupGraph.GetLeafReverseEdges(g)
		if err != nil {
			return false
		}
		for _, user := range leaves {
			users[user] = struct{}{}
		}
		return true
	}
	if includeIndirect {
		if err := m.userGroupGraph.Graph().TraverseFromNonLeafReverse(group, collect); err != nil {
			return nil, err
		}
	} else {
		collect(group)
	}
	return setToSlice(users), nil
}

// GetGroupToGroupMappings returns the groups a group is mapped to, optionally
// including the transitive closure.
func (m *Manager) GetGroupToGroupMappings(group string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	if !includeIndirect {
		return m.userGroupGraph.GetNonLeafEdges(group)
	}
	var groups []string
	if err := m.userGroupGraph.Graph().TraverseFromNonLeaf(group, func(g string) bool {
		if g != group {
			groups = append(groups, g)
		}
		return true
	}); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroupToGroupReverseMappings returns the groups mapped to a group,
// optionally including the reverse transitive closure.
func (m *Manager) GetGroupToGroupReverseMappings(group string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	if !includeIndirect {
		return m.userGroupGraph.GetNonLeafReverseEdges(group)
	}
	var groups []string
	if err := m.userGroupGraph.Graph().TraverseFromNonLeafReverse(group, func(g string) bool {
		if g != group {
			groups = append(groups, g)
		}
		return true
	}); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetUserToApplicationComponentAndAccessLevelMappings returns a user's direct
// component access mappings.
func (m *Manager) GetUserToApplicationComponentAndAccessLevelMappings(user string) ([]ComponentAndAccessLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	return pairSetToSlice(m.userComponentMap[user]), nil
}

// GetGroupToApplicationComponentAndAccessLevelMappings returns a group's
// direct component access mappings.
func (m *Manager) GetGroupToApplicationComponentAndAccessLevelMappings(group string) ([]ComponentAndAccessLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	return pairSetToSlice(m.groupComponentMap[group]), nil
}

// GetApplicationComponentAndAccessLevelToUserMappings returns the users with
// the given component access, directly or, with includeIndirect, through
// group membership.
func (m *Manager) GetApplicationComponentAndAccessLevelToUserMappings(component, accessLevel string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	users := map[string]struct{}{}
	for user, pairs := range m.userComponentMap {
		if _, ok := pairs[pair]; ok {
			users[user] = struct{}{}
		}
	}
	if includeIndirect {
		for group, pairs := range m.groupComponentMap {
			if _, ok := pairs[pair]; !ok {
				continue
			}
			m.collectUsersOfGroupClosure(group, users)
		}
	}
	return setToSlice(users), nil
}

// GetApplicationComponentAndAccessLevelToGroupMappings returns the groups
// with the given component access, directly or, with includeIndirect, groups
// from which such a group is reachable.
func (m *Manager) GetApplicationComponentAndAccessLevelToGroupMappings(component, accessLevel string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	groups := map[string]struct{}{}
	for group, pairs := range m.groupComponentMap {
		if _, ok := pairs[pair]; !ok {
			continue
		}
		groups[group] = struct{}{}
		if includeIndirect {
			_ = m.userGroupGraph.Graph().TraverseFromNonLeafReverse(group, func(g string) bool {
				groups[g] = struct{}{}
				return true
			})
		}
	}
	return setToSlice(groups), nil
}

// GetUserToEntityMappings returns all entities a user is directly mapped to.
func (m *Manager) GetUserToEntityMappings(user string) ([]EntityTypeAndEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	return entityMapToSlice(m.userEntityMap[user]), nil
}

// GetUserToEntityMappingsForType returns the entities of one type a user is
// directly mapped to.
func (m *Manager) GetUserToEntityMappingsForType(user, entityType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	if _, ok := m.entities[entityType]; !ok {
		return nil, apperrors.NewNotFound("EntityType", entityType)
	}
	return setToSlice(m.userEntityMap[user][entityType]), nil
}

// GetGroupToEntityMappings returns all entities a group is directly mapped to.
func (m *Manager) GetGroupToEntityMappings(group string) ([]EntityTypeAndEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	return entityMapToSlice(m.groupEntityMap[group]), nil
}

// GetGroupToEntityMappingsForType returns the entities of one type a group is
// directly mapped to.
func (m *Manager) GetGroupToEntityMappingsForType(group, entityType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	if _, ok := m.entities[entityType]; !ok {
		return nil, apperrors.NewNotFound("EntityType", entityType)
	}
	return setToSlice(m.groupEntityMap[group][entityType]), nil
}

// GetEntityToUserMappings returns the users mapped to an entity, directly or,
// with includeIndirect, through group membership.
func (m *Manager) GetEntityToUserMappings(entityType, entity string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireEntity(entityType, entity); err != nil {
		return nil, err
	}
	users := map[string]struct{}{}
	for user, byType := range m.userEntityMap {
		if _, ok := byType[entityType][entity]; ok {
			users[user] = struct{}{}
		}
	}
	if includeIndirect {
		for group, byType := range m.groupEntityMap {
			if _, ok := byType[entityType][entity]; !ok {
				continue
			}
			m.collectUsersOfGroupClosure(group, users)
		}
	}
	return setToSlice(users), nil
}

// GetEntityToGroupMappings returns the groups mapped to an entity, directly
// or, with includeIndirect, groups from which such a group is reachable.
func (m *Manager) GetEntityToGroupMappings(entityType, entity string, includeIndirect bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireEntity(entityType, entity); err != nil {
		return nil, err
	}
	groups := map[string]struct{}{}
	for group, byType := range m.groupEntityMap {
		if _, ok := byType[entityType][entity]; !ok {
			continue
		}
		groups[group] = struct{}{}
		if includeIndirect {
			_ = m.userGroupGraph.Graph().TraverseFromNonLeafReverse(group, func(g string) bool {
				groups[g] = struct{}{}
				return true
			})
		}
	}
	return setToSlice(groups), nil
}

// HasAccessToApplicationComponent reports whether a user holds the given
// component access directly or through any reachable group.
func (m *Manager) HasAccessToApplicationComponent(user, component, accessLevel string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return false, apperrors.NewNotFound("User", user)
	}
	pair := ComponentAndAccessLevel{ApplicationComponent: component, AccessLevel: accessLevel}
	if _, ok := m.userComponentMap[user][pair]; ok {
		return true, nil
	}
	found := false
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		if _, ok := m.groupComponentMap[group][pair]; ok {
			found = true
			return false
		}
		return true
	}); err != nil {
		return false, err
	}
	return found, nil
}

// HasAccessToEntity reports whether a user holds access to the given entity
// directly or through any reachable group.
func (m *Manager) HasAccessToEntity(user, entityType, entity string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return false, apperrors.NewNotFound("User", user)
	}
	if err := m.requireEntity(entityType, entity); err != nil {
		return false, err
	}
	if _, ok := m.userEntityMap[user][entityType][entity]; ok {
		return true, nil
	}
	found := false
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		if _, ok := m.groupEntityMap[group][entityType][entity]; ok {
			found = true
			return false
		}
		return true
	}); err != nil {
		return false, err
	}
	return found, nil
}

// GetApplicationComponentsAccessibleByUser returns the deduplicated union of
// the user's direct component access and that of every reachable group.
func (m *Manager) GetApplicationComponentsAccessibleByUser(user string) ([]ComponentAndAccessLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	pairs := map[ComponentAndAccessLevel]struct{}{}
	for pair := range m.userComponentMap[user] {
		pairs[pair] = struct{}{}
	}
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		for pair := range m.groupComponentMap[group] {
			pairs[pair] = struct{}{}
		}
		return true
	}); err != nil {
		return nil, err
	}
	result := make([]ComponentAndAccessLevel, 0, len(pairs))
	for pair := range pairs {
		result = append(result, pair)
	}
	return result, nil
}

// GetApplicationComponentsAccessibleByGroup returns the deduplicated union of
// the group's component access and that of every group reachable from it.
func (m *Manager) GetApplicationComponentsAccessibleByGroup(group string) ([]ComponentAndAccessLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	pairs := map[ComponentAndAccessLevel]struct{}{}
	if err := m.userGroupGraph.Graph().TraverseFromNonLeaf(group, func(g string) bool {
		for pair := range m.groupComponentMap[g] {
			pairs[pair] = struct{}{}
		}
		return true
	}); err != nil {
		return nil, err
	}
	result := make([]ComponentAndAccessLevel, 0, len(pairs))
	for pair := range pairs {
		result = append(result, pair)
	}
	return result, nil
}

// GetEntitiesAccessibleByUser returns the deduplicated union of the user's
// direct entity access and that of every reachable group.
func (m *Manager) GetEntitiesAccessibleByUser(user string) ([]EntityTypeAndEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	set := map[EntityTypeAndEntity]struct{}{}
	addAll(set, m.userEntityMap[user])
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		addAll(set, m.groupEntityMap[group])
		return true
	}); err != nil {
		return nil, err
	}
	result := make([]EntityTypeAndEntity, 0, len(set))
	for pair := range set {
		result = append(result, pair)
	}
	return result, nil
}

// GetEntitiesOfTypeAccessibleByUser restricts GetEntitiesAccessibleByUser to
// one entity type.
func (m *Manager) GetEntitiesOfTypeAccessibleByUser(user, entityType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsLeafVertex(user) {
		return nil, apperrors.NewNotFound("User", user)
	}
	if _, ok := m.entities[entityType]; !ok {
		return nil, apperrors.NewNotFound("EntityType", entityType)
	}
	set := map[string]struct{}{}
	for entity := range m.userEntityMap[user][entityType] {
		set[entity] = struct{}{}
	}
	if err := m.userGroupGraph.TraverseFromLeaf(user, func(group string) bool {
		for entity := range m.groupEntityMap[group][entityType] {
			set[entity] = struct{}{}
		}
		return true
	}); err != nil {
		return nil, err
	}
	return setToSlice(set), nil
}

// GetEntitiesAccessibleByGroup returns the deduplicated union of entity
// access over the group closure.
func (m *Manager) GetEntitiesAccessibleByGroup(group string) ([]EntityTypeAndEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.userGroupGraph.ContainsNonLeafVertex(group) {
		return nil, apperrors.NewNotFound("Group", group)
	}
	set := map[EntityTypeAndEntity]struct{}{}
	if err := m.userGroupGraph.Graph().TraverseFromNonLeaf(group, func(g string) bool {
		addAll(set, m.groupEntityMap[g])
		return true
	}); err != nil {
		return nil, err
	}
	result := make([]EntityTypeAndEntity, 0, len(set))
	for pair := range set {
		result = append(result, pair)
	}
	return result, nil
}

// collectUsersOfGroupClosure adds every user that reaches the given group
// through the membership graph, the group's own members included.
func (m *Manager) collectUsersOfGroupClosure(group string, users map[string]struct{}) {
	_ = m.userGroupGraph.Graph().TraverseFromNonLeafReverse(group, func(g string) bool {
		leaves, err := m.userGroupGraph.GetLeafReverseEdges(g)
		if err != nil {
			return false
		}
		for _, user := range leaves {
			users[user] = struct{}{}
		}
		return true
	})
}

func addAll(set map[EntityTypeAndEntity]struct{}, byType map[string]map[string]struct{}) {
	for entityType, entities := range byType {
		for entity := range entities {
			set[EntityTypeAndEntity{EntityType: entityType, Entity: entity}] = struct{}{}
		}
	}
}

func setToSlice(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for item := range set {
		result = append(result, item)
	}
	return result
}

func pairSetToSlice(set map[ComponentAndAccessLevel]struct{}) []ComponentAndAccessLevel {
	result := make([]ComponentAndAccessLevel, 0, len(set))
	for pair := range set {
		result = append(result, pair)
	}
	return result
}

func entityMapToSlice(byType map[string]map[string]struct{}) []EntityTypeAndEntity {
	var result []EntityTypeAndEntity
	for entityType, entities := range byType {
		for entity := range entities {
			result = append(result, EntityTypeAndEntity{EntityType: entityType, Entity: entity})
		}
	}
	if result == nil {
		result = []EntityTypeAndEntity{}
	}
	return result
}
