package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyValidity(t *testing.T) {
	for _, a := range AllAgeGroups() {
		assert.True(t, a.Valid(), a)
		assert.NotEqual(t, string(a), a.Label())
	}
	for _, c := range AllCategories() {
		assert.True(t, c.Valid(), c)
	}
	for _, g := range AllGoals() {
		assert.True(t, g.Valid(), g)
	}

	assert.False(t, AgeGroup("18+").Valid())
	assert.False(t, StoryCategory("anxiety_management").Valid())
	assert.Equal(t, "UNKNOWN_GOAL", TherapeuticGoal("UNKNOWN_GOAL").Label())
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleAdmin.CanReview())
	assert.True(t, RoleTherapist.SeesAll())
	assert.False(t, RoleMember.CanReview())
	assert.False(t, Role("guest").Valid())
}
