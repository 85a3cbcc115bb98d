package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	emailsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/email"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	var out bytes.Buffer
	return &commandLine{
		usrSvc:   user.NewServiceMock(conf, usrRepo, emailsvc.NewConsoleServiceMock(conf), core.NopLogger{}),
		usrRepo:  usrRepo,
		sessions: session.NewStore(inmemdb.NewSessionRepository(db), conf.Server.JWTExpirationDelta),
		validate: validate,
		out:      &out,
	}, &out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(tt.args)
			if tt.wantErrStr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrStr)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	runCLITests(t, cli, []cliTest{
		{name: "no email", args: []string{"adduser", "--name", "Root"}, pwd: "s3cret-pass", wantErrStr: `required flag(s) "email" not set`},
		{name: "unknown role", args: []string{"adduser", "--name", "Root", "--email", "root@test.cd", "--role", "teacher"}, pwd: "s3cret-pass", wantErrStr: "invalid role"},
		{name: "empty password", args: []string{"adduser", "--name", "Root", "--email", "root@test.cd"}, wantErrStr: errEmptyPassword.Error()},
		{name: "invalid email", args: []string{"adduser", "--name", "Root", "--email", "root"}, pwd: "s3cret-pass", wantErrStr: "email"},
		{name: "create", args: []string{"adduser", "--name", "Root", "--email", "Root@Test.cd"}, pwd: "s3cret-pass"},
	})

	usr, err := cli.usrSvc.GetByEmail(ctx, "root@test.cd")
	require.NoError(t, err)
	assert.Equal(t, session.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("s3cret-pass"))
	assert.Contains(t, out.String(), "admin user root@test.cd saved")

	// an existing user gets its role and password updated
	usr.IsActive = false
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "update", args: []string{"adduser", "--email", "root@test.cd", "--role", "parent"}, pwd: "n3w-pass"},
	})

	usr, err = cli.usrSvc.GetByEmail(ctx, "root@test.cd")
	require.NoError(t, err)
	assert.Equal(t, session.RoleParent, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("n3w-pass"))
	assert.Equal(t, "Root", usr.Name)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	usr, err := cli.usrSvc.Create(ctx, user.NewUser{
		Name:     "User",
		Username: "awe",
		Email:    "awe@test.cd",
		Role:     session.RoleStudent,
		Password: "old-pass",
	})
	require.NoError(t, err)
	s, err := cli.sessions.Open(ctx, usr.Identity())
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "no username", args: []string{"resetpassword"}, pwd: "lol123", wantErrStr: `required flag(s) "username" not set`},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol123", wantErrStr: user.ErrNotFound.Error()},
		{name: "empty password", args: []string{"resetpassword", "--username", "awe"}, wantErrStr: errEmptyPassword.Error()},
		{name: "reset with username", args: []string{"resetpassword", "--username", "awe"}, pwd: "lol123"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, pwd: "lmao123"},
	})

	refreshed, err := cli.usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao123"))

	_, err = cli.sessions.Reader().GetSession(ctx, s.ID)
	assert.True(t, core.IsNotFound(err), "the session must be closed, err = %v", err)
}

func Test_commandLine_listUsers(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	for _, nu := range []user.NewUser{
		{Name: "Zed", Email: "zed@test.cd", Role: session.RoleParent, Password: "pass123"},
		{Name: "Amy", Email: "amy@test.cd", Role: session.RoleAdmin, Password: "pass123"},
		{Name: "Bob", Email: "bob@test.cd", Role: session.RoleParent, Password: "pass123"},
	} {
		_, err := cli.usrSvc.Create(ctx, nu)
		require.NoError(t, err)
	}

	require.NoError(t, cli.run([]string{"listusers", "--role", "parent"}))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("EMAIL")))
	assert.True(t, bytes.HasPrefix(lines[1], []byte("bob@test.cd")))
	assert.True(t, bytes.HasPrefix(lines[2], []byte("zed@test.cd")))

	err := cli.run([]string{"listusers", "--role", "teacher"})
	assert.Error(t, err)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	origUp, origDown, origVersion := migrateUpFunc, migrateDownFunc, migrateVersionFunc
	t.Cleanup(func() { migrateUpFunc, migrateDownFunc, migrateVersionFunc = origUp, origDown, origVersion })

	var calls []string
	version := int64(7)
	migrateUpFunc = func(*sqlx.DB) error { calls = append(calls, "up"); return nil }
	migrateDownFunc = func(*sqlx.DB) error {
		calls = append(calls, "down")
		version--
		return nil
	}
	migrateVersionFunc = func(*sqlx.DB) (int64, error) { return version, nil }

	runCLITests(t, cli, []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "sideways", "now"}, wantErrStr: "unknown command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "extra args", args: []string{"migrate", "up", "2"}, wantErrStr: "unknown command"},
	})

	assert.Equal(t, []string{"up", "down"}, calls)
	assert.Contains(t, out.String(), "schema version: 7")
	assert.Contains(t, out.String(), "schema version: 6")
}
