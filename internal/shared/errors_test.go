package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	require.Equal(t, KindConflict, KindOf(Conflictf("already voided")))
	require.Equal(t, KindNotFound, KindOf(NotFoundf("missing")))
	require.Equal(t, KindInternal, KindOf(Internal("db", errors.New("boom"))))
	require.Equal(t, KindInternal, KindOf(errors.New("untyped")))

	wrapped := fmt.Errorf("handler: %w", Conflictf("already voided"))
	require.Equal(t, KindConflict, KindOf(wrapped))
}

func TestUserSafeMessage(t *testing.T) {
	require.Equal(t, "already voided", UserSafeMessage(Conflictf("already voided")))
	require.Equal(t, "an unexpected error occurred, please retry", UserSafeMessage(Internal("db", errors.New("boom"))))
	require.Equal(t, "an unexpected error occurred, please retry", UserSafeMessage(errors.New("raw")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("load item", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "load item")
	require.Contains(t, err.Error(), "connection reset")
}

func TestRoleAtLeast(t *testing.T) {
	require.True(t, RoleAdmin.AtLeast(RoleSupervisor))
	require.True(t, RoleSupervisor.AtLeast(RoleSeller))
	require.True(t, RoleSeller.AtLeast(RoleSeller))
	require.False(t, RoleSeller.AtLeast(RoleSupervisor))
	require.False(t, Role("intern").AtLeast(RoleSeller))
}
