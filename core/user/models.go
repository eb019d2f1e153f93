package user

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ebd/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleEditor  = "editor"
)

var (
	AllRoles          = []string{RoleStudent, RoleTeacher, RoleEditor}
	RegistrationRoles = []string{RoleStudent, RoleTeacher}

	Roles = []Role{
		{Name: "Aluno", Value: RoleStudent},
		{Name: "Professor", Value: RoleTeacher},
		{Name: "Editor", Value: RoleEditor},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email,omitempty"`
	PasswordHash        []byte   `json:"-"`
	Role                string   `json:"role"`
	ClassID             string   `json:"classId,omitempty"`
	IsApproved          bool     `json:"isApproved"`
	ProfilePicture      string   `json:"profilePicture,omitempty"`
	ViewedAnnouncements []string `json:"viewedAnnouncements,omitempty"`
	CreatedAt           int64    `json:"createdAt"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsEditor() bool  { return u.Role == RoleEditor }

// IsActive tells whether the user may act in the portal: editors always, others once approved.
func (u *User) IsActive() bool {
	return u.IsEditor() || u.IsApproved
}

// CanAuthor tells whether the user may place and remove exercises.
func (u *User) CanAuthor() bool {
	return u.IsActive() && (u.IsTeacher() || u.IsEditor())
}

// HasViewed tells whether the announcement has been marked as read by the user.
func (u *User) HasViewed(announcementID string) bool {
	for _, id := range u.ViewedAnnouncements {
		if id == announcementID {
			return true
		}
	}
	return false
}

// CanManage tells whether u may approve, reject or edit other.
// Editors manage every non-editor; teachers manage the students of their own class.
func (u *User) CanManage(other User) bool {
	if !u.IsActive() || other.IsEditor() || u.ID == other.ID {
		return false
	}
	if u.IsEditor() {
		return true
	}
	return u.IsTeacher() && other.IsStudent() && u.ClassID != "" && u.ClassID == other.ClassID
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,regrole"`
	ClassID  string `json:"classId" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.ClassID = core.CleanString(nu.ClassID)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Name)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	ClassID  string `json:"classId"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	classID := core.CleanString(uu.ClassID)
	if classID != "" {
		uu.ClassID = classID
	} else {
		uu.ClassID = origUsr.ClassID
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Name, origUsr)
}

// NewEditor contains information needed to create an editor from the admin CLI.
type NewEditor struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (ne *NewEditor) Validate(validate *validator.Validate, svc *Service) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email, true /* lower */)

	if err := validate.Struct(ne); err != nil {
		return err
	}
	return svc.CheckUniqueness(ne.Name)
}

type ProfilePicture struct {
	Picture string `json:"profilePicture" validate:"required,imagedataurl"`
}

func (pp ProfilePicture) Validate(validate *validator.Validate) error { return validate.Struct(pp) }
