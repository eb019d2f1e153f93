package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)

	// start CLI
	return &commandLine{
		usrSvc:   env.Users,
		classSvc: env.Classes,
		dashSvc:  env.Dashboard,
		validate: env.Validate,
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

// mockPassword makes the password prompt answer pwd.
func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate is gone", args: []string{"migrate", "up"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"resetpassword", "-username", "lol"}, wantErrStr: "flag provided but not defined: -username"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)

	usr := testutil.CreateUser(t, env.UserRepo, "Ana Maria", "old-pwd", user.RoleStudent, "", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "name but no password", args: []string{"resetpassword", "-name", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-name", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-name", "ana maria"}, extra: extra{pwd: "new-pwd"}},
		{name: "reset with padded name", args: []string{"resetpassword", "-name", "  Ana Maria "}, extra: extra{pwd: "newer-pwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwd string
			if extra, ok := tt.extra.(extra); ok {
				pwd = extra.pwd
			}
			mockPassword(t, pwd)

			err := cli.run(args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}
			refreshedUsr, err := env.Users.GetByID(usr.ID)
			require.NoError(t, err)
			if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
				t.Error("failed to update new password")
			}
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_addEditor(t *testing.T) {
	cli, env := setup(t)

	testutil.CreateUser(t, env.UserRepo, "Eva", "eva-pwd", user.RoleEditor, "", true)

	isValidationErr := func(t *testing.T, err error) {
		_, ok := err.(validator.ValidationErrors)
		assert.True(t, ok, "want validator.ValidationErrors, got %T", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"addeditor"}, wantErr: errHelp},
		{name: "no password", args: []string{"addeditor", "-name", "Rui"}, wantErr: errHelp},
		{name: "weak password", args: []string{"addeditor", "-name", "Rui"}, extra: "123", wantErrStr: "-"},
		{name: "bad email", args: []string{"addeditor", "-name", "Rui", "-email", "lol"}, extra: "s3cr3t-Pwd", wantErrStr: "-"},
		{name: "name taken", args: []string{"addeditor", "-name", "eva"}, extra: "s3cr3t-Pwd", wantErrStr: user.ErrNameExists.Error()},
		{name: "created", args: []string{"addeditor", "-name", " Rui ", "-email", "RUI@ebd.com"}, extra: "s3cr3t-Pwd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)

			err := cli.run(args)
			if tt.wantErrStr == "-" {
				isValidationErr(t, err)
				return
			}
			checkErr(t, tt, err)
		})
	}

	var rui user.User
	for _, u := range env.Users.QueryAll() {
		if u.Name == "Rui" {
			rui = u
		}
	}
	require.NotEmpty(t, rui.ID)
	assert.True(t, rui.IsEditor())
	assert.True(t, rui.IsApproved)
	assert.Equal(t, "rui@ebd.com", rui.Email)
	assert.NoError(t, rui.CheckPassword("s3cr3t-Pwd"))
}

func Test_commandLine_exportAttendance(t *testing.T) {
	cli, env := setup(t)

	cls := testutil.CreateClass(t, env.ClassRepo, "Adultos")
	ana := testutil.CreateUser(t, env.UserRepo, "Ana", "pwd123", user.RoleStudent, cls.ID, true)
	bia := testutil.CreateUser(t, env.UserRepo, "Bia", "pwd123", user.RoleStudent, cls.ID, true)
	testutil.CreateUser(t, env.UserRepo, "Beto", "pwd123", user.RoleStudent, cls.ID, false)
	testutil.CreateAttendance(t, env.AttendanceRepo, cls.ID, ana, "2024-03-03", true)
	testutil.CreateAttendance(t, env.AttendanceRepo, cls.ID, ana, "2024-03-10", false)
	testutil.CreateAttendance(t, env.AttendanceRepo, cls.ID, bia, "2024-03-10", true)

	dir := t.TempDir()
	csvOut := filepath.Join(dir, "report.csv")
	xlsxOut := filepath.Join(dir, "report.XLSX")

	tests := []cliTest{
		{name: "no args", args: []string{"exportattendance"}, wantErr: errHelp},
		{name: "no output", args: []string{"exportattendance", "-class", cls.ID}, wantErr: errHelp},
		{name: "unknown format", args: []string{"exportattendance", "-class", cls.ID, "-out", filepath.Join(dir, "report.pdf")}, wantErr: errUnknownFormat},
		{name: "unknown class", args: []string{"exportattendance", "-class", "nope", "-out", csvOut}, wantErr: class.ErrNotFound},
		{
			name: "csv", args: []string{"exportattendance", "-class", cls.ID, "-out", csvOut},
			extra: func(t *testing.T) {
				f, err := os.Open(csvOut)
				require.NoError(t, err)
				defer f.Close()
				rows, err := csv.NewReader(f).ReadAll()
				require.NoError(t, err)
				assert.Equal(t, [][]string{
					{"Nome", "Frequência", "Presenças"},
					{"Ana", "50%", "2024-03-03"},
					{"Bia", "100%", "2024-03-10"},
				}, rows)
			},
		},
		{
			name: "xlsx", args: []string{"exportattendance", "-class", cls.ID, "-out", xlsxOut},
			extra: func(t *testing.T) {
				f, err := excelize.OpenFile(xlsxOut)
				require.NoError(t, err)
				defer f.Close()
				rows, err := f.GetRows("Frequência")
				require.NoError(t, err)
				require.Len(t, rows, 3)
				assert.Equal(t, []string{"Bia", "100%", "2024-03-10"}, rows[2])
			},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkErr(t, tt, err)
			if check, ok := tt.extra.(func(t *testing.T)); ok && err == nil {
				check(t)
			}
		})
	}

	_, err := os.Stat(filepath.Join(dir, "report.pdf"))
	assert.True(t, os.IsNotExist(err))
}
