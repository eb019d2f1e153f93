package class_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	editor := testutil.CreateUser(t, env.UserRepo, "Editor", "", user.RoleEditor, "", true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "", user.RoleTeacher, "cls-1", true)

	data := class.ClassData{Name: "  Jovens "}
	require.NoError(t, data.Validate(env.Validate))
	assert.Equal(t, "Jovens", data.Name)
	blank := class.ClassData{Name: "   "}
	assert.Error(t, blank.Validate(env.Validate))

	_, err := env.Classes.Create(ctx, teacher, data)
	assert.Equal(t, core.ErrForbidden, err)

	cls, err := env.Classes.Create(ctx, editor, data)
	require.NoError(t, err)
	_, err = env.Classes.Create(ctx, editor, class.ClassData{Name: "Adultos"})
	require.NoError(t, err)

	classes := env.Classes.QueryAll()
	require.Len(t, classes, 2)
	assert.Equal(t, "Adultos", classes[0].Name)

	renamed, err := env.Classes.Rename(ctx, editor, cls.ID, class.ClassData{Name: "Juvenis"})
	require.NoError(t, err)
	assert.Equal(t, cls.ID, renamed.ID)

	_, err = env.Classes.Rename(ctx, editor, "lol", class.ClassData{Name: "Juvenis"})
	assert.Equal(t, class.ErrNotFound, err)

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, cls.ID, true)
	require.NoError(t, env.Classes.Delete(ctx, editor, cls.ID))
	_, err = env.Classes.GetByID(cls.ID)
	assert.Equal(t, class.ErrNotFound, err)

	// members keep the dangling class id
	usr, err := env.Users.GetByID(student.ID)
	require.NoError(t, err)
	assert.Equal(t, cls.ID, usr.ClassID)
}
