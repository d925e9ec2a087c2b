package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
	"github.com/goosen-x/lms/storage/database/inmem"
	"github.com/goosen-x/lms/tests"
)

func setup(t *testing.T) *commandLine {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)

	return &commandLine{
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, nil, nil),
		crsRepo: crsRepo,
		crsSvc:  course.NewService(crsRepo),
		out:     ioutil.Discard,
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	mockPassword(t, "s3cret-pwd")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "anna@lms.ru"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-email", "anna@lms.ru", "-name", "Анна", "-role", "root"}, wantErr: access.ErrUnknownRole},
		{name: "create", args: []string{"adduser", "-email", " Anna@LMS.ru", "-name", "Анна", "-role", "teacher"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "anna@lms.ru"})
	require.NoError(t, err)
	assert.Equal(t, "Анна", usr.Name)
	assert.Equal(t, access.RoleTeacher, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("s3cret-pwd"))

	// existing users are updated & reactivated
	usr.IsActive = false
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	mockPassword(t, "other-pwd")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "anna@lms.ru", "-name", "Анна Смирнова", "-role", "ADMIN"}))

	updated, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "anna@lms.ru"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, "Анна Смирнова", updated.Name)
	assert.Equal(t, access.RoleAdmin, updated.Role)
	assert.True(t, updated.IsActive)
	assert.NoError(t, updated.CheckPassword("other-pwd"))

	mockPassword(t, "")
	assert.Equal(t, errEmptyPassword, cli.run([]string{"admin", "adduser", "-email", "x@lms.ru", "-name", "X"}))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "Мария Иванова", "student@lms.ru", "student123", access.RoleStudent, true)

	tests := []struct {
		cliTest
		pwd string
	}{
		{cliTest: cliTest{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "email but no password", args: []string{"resetpassword", "-email", "student@lms.ru"}, wantErr: errEmptyPassword}},
		{cliTest: cliTest{name: "user not found", args: []string{"resetpassword", "-email", "lol@lms.ru"}, wantErr: user.ErrNotFound}, pwd: "lol"},
		{cliTest: cliTest{name: "reset", args: []string{"resetpassword", "-email", "Student@lms.ru"}}, pwd: "n3w-secret"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}

			refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	// an existing account is kept as is
	existing := testutil.CreateUser(t, cli.usrRepo, "Мария", "student@lms.ru", "keep-me-1", access.RoleStudent, true)

	require.NoError(t, cli.run([]string{"admin", "seed"}))

	admin, err := cli.usrSvc.Authenticate(ctx, "admin@lms.ru", "admin123")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, admin.Role)
	teacher, err := cli.usrSvc.Authenticate(ctx, "teacher@lms.ru", "teacher123")
	require.NoError(t, err)
	assert.Equal(t, access.RoleTeacher, teacher.Role)
	_, err = cli.usrSvc.Authenticate(ctx, "student@lms.ru", "keep-me-1")
	require.NoError(t, err)

	crs, err := cli.crsSvc.GetBySlug(ctx, "web-development-basics")
	require.NoError(t, err)
	assert.Equal(t, course.StatusPublished, crs.Status)
	assert.Equal(t, teacher.ID, crs.TeacherID)

	lessons, err := cli.crsRepo.ListLessons(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.Equal(t, "introduction-to-html", lessons[0].Slug)
	assert.Equal(t, 1, lessons[0].Position)
	assert.NotEmpty(t, lessons[0].Content)

	_, err = cli.crsRepo.GetEnrollment(ctx, crs.ID, existing.ID)
	assert.NoError(t, err)

	// seeding twice changes nothing
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	courses, err := cli.crsSvc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	users, err := cli.usrSvc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func Test_commandLine_seedFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	valid := write("valid.toml", `
[[users]]
name = "Анна Смирнова"
email = "anna@lms.ru"
password = "anna-pwd-1"
role = "teacher"

[[courses]]
title = "Go in depth"
slug = "go-in-depth"
category = "Programming"
teacher = "anna@lms.ru"

  [[courses.lessons]]
  title = "Goroutines"
  slug = "goroutines"
  video_id = "dQw4w9WgXcQ"
`)
	unknownKey := write("unknown.toml", `
[[users]]
name = "X"
email = "x@lms.ru"
nickname = "x"
`)
	badRole := write("badrole.toml", `
[[users]]
name = "X"
email = "x@lms.ru"
password = "x-pwd-123"
role = "ROOT"
`)
	studentTeacher := write("student.toml", `
[[users]]
name = "S"
email = "s@lms.ru"
password = "s-pwd-123"
role = "STUDENT"

[[courses]]
title = "Nope"
slug = "nope"
teacher = "s@lms.ru"
`)

	dupLesson := write("duplesson.toml", `
[[courses]]
title = "SQL"
slug = "sql"
teacher = "anna@lms.ru"

  [[courses.lessons]]
  title = "Select"
  slug = "select"

  [[courses.lessons]]
  title = "Select again"
  slug = "select"
`)

	cli := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seed", "-file", valid}))
	crs, err := cli.crsSvc.GetBySlug(ctx, "go-in-depth")
	require.NoError(t, err)
	assert.Equal(t, course.StatusDraft, crs.Status)
	lessons, err := cli.crsRepo.ListLessons(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "dQw4w9WgXcQ", lessons[0].VideoID)

	err = cli.run([]string{"admin", "seed", "-file", unknownKey})
	assert.EqualError(t, err, `unknown catalog key "users.nickname"`)

	err = cli.run([]string{"admin", "seed", "-file", badRole})
	assert.Equal(t, access.ErrUnknownRole, errors.Cause(err))

	err = cli.run([]string{"admin", "seed", "-file", studentTeacher})
	assert.Error(t, err)

	err = cli.run([]string{"admin", "seed", "-file", dupLesson})
	assert.Equal(t, course.ErrLessonExists, errors.Cause(err))
	_, err = cli.crsSvc.GetBySlug(ctx, "sql")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))

	err = cli.run([]string{"admin", "seed", "-file", filepath.Join(dir, "missing.toml")})
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
