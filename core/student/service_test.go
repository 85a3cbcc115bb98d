package student_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	emailsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/email"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, *student.Service) {
	t.Helper()
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	users := user.NewServiceMock(conf, inmemdb.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf), core.NopLogger{})
	return users, student.NewService(inmemdb.NewStudentRepository(db), users)
}

// fieldsOf lists the fields named by a validation failure.
func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var fields []string
	var vErrs validator.ValidationErrors
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		for _, fe := range vErrs {
			fields = append(fields, fe.Field())
		}
	case errors.As(err, &vErr):
		for _, fe := range vErr.Fields {
			fields = append(fields, fe.Field)
		}
	default:
		t.Fatalf("not a validation error: %v", err)
	}
	return fields
}

func newStudent(name, mail, level, parentID string) student.NewStudent {
	return student.NewStudent{
		Name:            name,
		Email:           mail,
		Level:           level,
		ParentID:        parentID,
		Password:        "s3cret-pwd",
		PasswordConfirm: "s3cret-pwd",
	}
}

func TestService_Create(t *testing.T) {
	users, svc := setup(t)
	ctx := context.Background()
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	par, err := users.Create(ctx, user.NewUser{Name: "Mama", Email: "mama@test.cd", Role: session.RoleParent, Password: "s3cret-pwd"})
	require.NoError(t, err)
	adm, err := users.Create(ctx, user.NewUser{Name: "Boss", Email: "boss@test.cd", Role: session.RoleAdmin, Password: "s3cret-pwd"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		ns        student.NewStudent
		wantField string
	}{
		{name: "unknown parent", ns: newStudent("Amina", "amina@test.cd", "grade-1", "0b7a3c9e-4f1d-4b8a-9c2e-5d6f7a8b9c0d"), wantField: "parent_id"},
		{name: "parent is not a parent", ns: newStudent("Amina", "amina@test.cd", "grade-1", adm.ID), wantField: "parent_id"},
		{name: "email taken", ns: newStudent("Amina", "MAMA@test.cd", "grade-1", ""), wantField: "email"},
		{name: "no level", ns: newStudent("Amina", "amina@test.cd", "  ", ""), wantField: "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ns.Validate(ctx, validate, svc)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.wantField)
		})
	}

	ns := newStudent(" Amina  Kabila ", "Amina@Test.cd", "grade-1", par.ID)
	require.NoError(t, ns.Validate(ctx, validate, svc))
	std, err := svc.Create(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, "amina@test.cd", std.Email)
	assert.Equal(t, "grade-1", std.Level)
	assert.True(t, std.IsActive)

	acc, err := users.GetByID(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RoleStudent, acc.Role, "a student account is always a student")

	ok, err := svc.IsChildOf(ctx, std.ID, par.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsChildOf(ctx, std.ID, adm.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	children, err := svc.ChildrenOf(ctx, par.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, std.ID, children[0].ID)
}

func TestService_FilterUpdateDelete(t *testing.T) {
	users, svc := setup(t)
	ctx := context.Background()

	var ids []string
	for _, ns := range []student.NewStudent{
		newStudent("Chausiku", "c@test.cd", "grade-2", ""),
		newStudent("Amina", "a@test.cd", "grade-1", ""),
		newStudent("Bakari", "b@test.cd", "grade-1", ""),
	} {
		std, err := svc.Create(ctx, ns)
		require.NoError(t, err)
		ids = append(ids, std.ID)
	}

	byName := core.DBOrdering{Field: "name", Ascending: true}
	got, total, err := svc.Filter(ctx, student.QueryFilter{}, core.Page{Number: 2, Size: 2}, byName)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Chausiku", got[0].Name)

	got, total, err = svc.Filter(ctx, student.QueryFilter{Level: "grade-1", Search: "BAK"}, core.Page{}, byName)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ids[2], got[0].ID)

	acc, err := svc.Account(ctx, ids[1])
	require.NoError(t, err)
	level, name := "grade-3", "Amina K."
	std, err := svc.Update(ctx, acc, student.UpdateStudent{Name: &name, Level: &level})
	require.NoError(t, err)
	assert.Equal(t, "Amina K.", std.Name)
	assert.Equal(t, "grade-3", std.Level)
	assert.Equal(t, "a@test.cd", std.Email)

	// an admin account is not a student
	adm, err := users.Create(ctx, user.NewUser{Name: "Boss", Email: "boss@test.cd", Role: session.RoleAdmin, Password: "s3cret-pwd"})
	require.NoError(t, err)
	_, err = svc.Account(ctx, adm.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	assert.Equal(t, student.ErrNotFound, errors.Cause(svc.Delete(ctx, adm.ID)))

	require.NoError(t, svc.Delete(ctx, ids[1]))
	exists, err := svc.Exists(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = users.GetByID(ctx, ids[1])
	assert.True(t, core.IsNotFound(err), "the account goes with the profile")
}
