package attendance_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/testutil"
)

func TestFrequency(t *testing.T) {
	rec := func(present bool) attendance.Attendance { return attendance.Attendance{IsPresent: present} }

	tests := []struct {
		name    string
		records []attendance.Attendance
		want    int
	}{
		{name: "no records", want: 0},
		{name: "3 of 4", records: []attendance.Attendance{rec(true), rec(true), rec(true), rec(false)}, want: 75},
		{name: "1 of 3 rounds down", records: []attendance.Attendance{rec(true), rec(false), rec(false)}, want: 33},
		{name: "2 of 3 rounds up", records: []attendance.Attendance{rec(true), rec(true), rec(false)}, want: 67},
		{name: "all absent", records: []attendance.Attendance{rec(false), rec(false)}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := attendance.Frequency(tt.records); got != tt.want {
				t.Errorf("Frequency() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestService_Toggle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	core.NowFunc = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	defer func() { core.NowFunc = time.Now }()

	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "", user.RoleTeacher, "cls-1", true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "", user.RoleStudent, "cls-1", true)
	pending := testutil.CreateUser(t, env.UserRepo, "Pending", "", user.RoleStudent, "cls-1", false)
	outsider := testutil.CreateUser(t, env.UserRepo, "Outsider", "", user.RoleStudent, "cls-2", true)

	tests := []struct {
		name    string
		toggle  attendance.Toggle
		wantErr error
		wantID  string
	}{
		{name: "unknown student", toggle: attendance.Toggle{UserID: "lol", IsPresent: true}, wantErr: user.ErrNotFound},
		{name: "other class", toggle: attendance.Toggle{UserID: outsider.ID, IsPresent: true}, wantErr: core.ErrForbidden},
		{name: "pending student", toggle: attendance.Toggle{UserID: pending.ID, IsPresent: true}, wantErr: attendance.ErrNotStudent},
		{name: "present today", toggle: attendance.Toggle{UserID: student.ID, IsPresent: true}, wantID: "cls-1_" + student.ID + "_2024-03-10"},
		{name: "absent today overwrites", toggle: attendance.Toggle{UserID: student.ID}, wantID: "cls-1_" + student.ID + "_2024-03-10"},
		{name: "past date", toggle: attendance.Toggle{UserID: student.ID, Date: "2024-03-03", IsPresent: true}, wantID: "cls-1_" + student.ID + "_2024-03-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, err := env.Attendances.Toggle(ctx, teacher, tt.toggle)
			if err != tt.wantErr {
				t.Fatalf("Toggle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if att.ID != tt.wantID {
				t.Errorf("Toggle() id = %s, want %s", att.ID, tt.wantID)
			}
		})
	}

	records := env.Attendances.QueryByClass("cls-1")
	require.Len(t, records, 2)
	assert.Equal(t, 50, env.Attendances.FrequencyOf(student.ID))
	assert.False(t, attendance.IsPresentOn(records, student.ID, "2024-03-10"))
	assert.True(t, attendance.IsPresentOn(records, student.ID, "2024-03-03"))
}

func TestToggle_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		toggle  attendance.Toggle
		wantErr bool
	}{
		{name: "no user", toggle: attendance.Toggle{}, wantErr: true},
		{name: "bad date", toggle: attendance.Toggle{UserID: "u", Date: "10/03/2024"}, wantErr: true},
		{name: "default date", toggle: attendance.Toggle{UserID: " u "}},
		{name: "date", toggle: attendance.Toggle{UserID: "u", Date: "2024-03-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.toggle.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReport(t *testing.T) {
	students := []user.User{
		{ID: "u2", Name: "Zoe", Role: user.RoleStudent, ClassID: "cls-1", IsApproved: true},
		{ID: "u1", Name: "Ana", Role: user.RoleStudent, ClassID: "cls-1", IsApproved: true},
		{ID: "u3", Name: "Pending", Role: user.RoleStudent, ClassID: "cls-1"},
	}
	records := []attendance.Attendance{
		{UserID: "u1", Date: "2024-03-10", IsPresent: true},
		{UserID: "u1", Date: "2024-03-03", IsPresent: true},
		{UserID: "u1", Date: "2024-02-25", IsPresent: true},
		{UserID: "u1", Date: "2024-02-18", IsPresent: false},
		{UserID: "u2", Date: "2024-03-10", IsPresent: false},
	}

	rows := attendance.BuildReport(students, records)
	want := []attendance.ReportRow{
		{Name: "Ana", Frequency: 75, PresentDates: []string{"2024-02-25", "2024-03-03", "2024-03-10"}},
		{Name: "Zoe", Frequency: 0, PresentDates: []string{}},
	}
	assert.Equal(t, want, rows)

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, attendance.WriteCSV(&buf, rows))

		lines, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Nome", "Frequência", "Presenças"},
			{"Ana", "75%", "2024-02-25|2024-03-03|2024-03-10"},
			{"Zoe", "0%", ""},
		}, lines)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, attendance.WriteXLSX(&buf, rows))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		sheet, err := f.GetRows("Frequência")
		require.NoError(t, err)
		require.Len(t, sheet, 3)
		assert.Equal(t, []string{"Ana", "75%", "2024-02-25|2024-03-03|2024-03-10"}, sheet[1])
		assert.Equal(t, "Zoe", sheet[2][0])
	})
}
