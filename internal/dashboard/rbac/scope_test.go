package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// Scope must plug into the store's query surface.
var _ database.RowScope = Scope{}

func TestScopeForSuperuser(t *testing.T) {
	s := ScopeFor(&models.Identity{ID: 1, Superuser: true})

	pred, args := s.Predicate(1)
	assert.Equal(t, "TRUE", pred)
	assert.Empty(t, args)
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "all", s.CacheSuffix())
}

func TestScopeForRegularUser(t *testing.T) {
	s := ScopeFor(&models.Identity{ID: 42, Username: "alice"})

	pred, args := s.Predicate(3)
	assert.Equal(t, "user_id = $3", pred)
	assert.Equal(t, []interface{}{int64(42)}, args)
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "user:42", s.CacheSuffix())
}

func TestScopeForAnonymous(t *testing.T) {
	s := ScopeFor(nil)

	pred, args := s.Predicate(1)
	assert.Equal(t, "FALSE", pred)
	assert.Empty(t, args)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "anon", s.CacheSuffix())
}

func TestPredicateArgOffset(t *testing.T) {
	s := ScopeFor(&models.Identity{ID: 7})

	pred, _ := s.Predicate(5)
	assert.Equal(t, "user_id = $5", pred)
}
