package user

import "testing"

func TestUser_CanManage(t *testing.T) {
	editor := User{ID: "e", Role: RoleEditor}
	teacher := User{ID: "t", Role: RoleTeacher, ClassID: "c1", IsApproved: true}
	pendingTeacher := User{ID: "pt", Role: RoleTeacher, ClassID: "c1"}
	student := User{ID: "s", Role: RoleStudent, ClassID: "c1"}
	outsider := User{ID: "o", Role: RoleStudent, ClassID: "c2"}

	tests := []struct {
		name  string
		actor User
		other User
		want  bool
	}{
		{name: "editor manages teacher", actor: editor, other: teacher, want: true},
		{name: "editor manages student", actor: editor, other: student, want: true},
		{name: "editor does not manage editors", actor: editor, other: User{ID: "e2", Role: RoleEditor}},
		{name: "teacher manages own student", actor: teacher, other: student, want: true},
		{name: "teacher does not manage other class", actor: teacher, other: outsider},
		{name: "teacher does not manage teachers", actor: teacher, other: pendingTeacher},
		{name: "pending teacher manages nobody", actor: pendingTeacher, other: student},
		{name: "student manages nobody", actor: student, other: outsider},
		{name: "nobody manages themselves", actor: teacher, other: teacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.CanManage(tt.other); got != tt.want {
				t.Errorf("CanManage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_CanAuthor(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want bool
	}{
		{name: "editor", usr: User{Role: RoleEditor}, want: true},
		{name: "approved teacher", usr: User{Role: RoleTeacher, IsApproved: true}, want: true},
		{name: "pending teacher", usr: User{Role: RoleTeacher}},
		{name: "student", usr: User{Role: RoleStudent, IsApproved: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usr.CanAuthor(); got != tt.want {
				t.Errorf("CanAuthor() = %v, want %v", got, tt.want)
			}
		})
	}
}
