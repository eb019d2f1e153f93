package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
)

const (
	bootstrapEditorName = "Editor Master"
	legacyEditorID      = "editor-root"
	legacyEditorName    = "editor"

	teacherRegistrationTmpl = "teacher_registration"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrNameExists           = errors.New("a user with this name already exists")
	ErrNotPending           = errors.New("user is not awaiting approval")
	ErrPendingApproval      = errors.New("awaiting approval")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrPictureTooLarge      = errors.New("profile picture is too large")
)

func init() {
	core.RegisterEmailTemplate(
		teacherRegistrationTmpl,
		`{{.Data.Name}} requested a teacher account and is awaiting your approval.
Review pending teachers at {{.FrontendBaseURL}}/dashboard`,
		`<p><strong>{{.Data.Name}}</strong> requested a teacher account and is awaiting your approval.</p>
<p><a href="{{.FrontendBaseURL}}/dashboard">Review pending teachers</a></p>`,
	)
}

type (
	Repository interface {
		// QueryAllUsers returns the mirrored users collection.
		QueryAllUsers() []User
		GetUserByID(id string) (User, error)
		// GetUserByName does a case-insensitive match on the trimmed User.Name.
		GetUserByName(name string) (User, error)
		// FetchUser reads a user straight from the remote database.
		FetchUser(ctx context.Context, id string) (User, error)
		SaveUser(ctx context.Context, usr User) error
		SetApproved(ctx context.Context, id string) error
		// AddViewedAnnouncement updates the local mirror before the remote write. Concurrent
		// calls for different announcements all persist.
		AddViewedAnnouncement(ctx context.Context, id, announcementID string) error
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// CheckUniqueness makes sure no user other than excludedUsers is already called name.
func (svc *Service) CheckUniqueness(name string, excludedUsers ...User) error {
	usr, err := svc.repo.GetUserByName(name)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return nil
		}
	}
	return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
}

// Register creates a pending student or teacher.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		ID:        core.NewID("u"),
		Name:      nu.Name,
		Role:      nu.Role,
		ClassID:   nu.ClassID,
		CreatedAt: core.NowMillis(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving user")
	}
	if usr.IsTeacher() {
		svc.notifyTeacherRegistration(usr)
	}
	return usr, nil
}

// CreateEditor creates an approved editor.
func (svc *Service) CreateEditor(ctx context.Context, ne NewEditor) (User, error) {
	usr := User{
		ID:         core.NewID("u"),
		Name:       ne.Name,
		Email:      ne.Email,
		Role:       RoleEditor,
		IsApproved: true,
		CreatedAt:  core.NowMillis(),
	}
	if err := usr.SetPassword(ne.Password); err != nil {
		return User{}, err
	}
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving editor")
	}
	return usr, nil
}

// BootstrapEditor persists the default editor for an external identity with the bootstrap email.
func (svc *Service) BootstrapEditor(ctx context.Context, id, email string) (User, error) {
	usr := User{
		ID:         id,
		Name:       bootstrapEditorName,
		Email:      core.CleanString(email, true /* lower */),
		Role:       RoleEditor,
		IsApproved: true,
		CreatedAt:  core.NowMillis(),
	}
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving bootstrap editor")
	}
	return usr, nil
}

// IsBootstrapEmail tells whether email is the one allowed to become the default editor.
func (svc *Service) IsBootstrapEmail(email string) bool {
	return svc.conf.BootstrapEditorEmail != "" && core.CleanString(email, true /* lower */) == svc.conf.BootstrapEditorEmail
}

// Authenticate checks the legacy name & password credentials.
func (svc *Service) Authenticate(name, pwd string) (User, error) {
	name = core.CleanString(name)
	usr, err := svc.repo.GetUserByName(name)
	if err != nil {
		if err == ErrNotFound {
			if svc.isLegacyEditor(name, pwd) {
				return svc.legacyEditor(), nil
			}
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by name")
	}
	if usr.PasswordHash == nil || usr.CheckPassword(pwd) != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive() {
		return User{}, ErrPendingApproval
	}
	return usr, nil
}

func (svc *Service) isLegacyEditor(name, pwd string) bool {
	return svc.conf.LegacyEditorPassword != "" &&
		strings.ToLower(name) == legacyEditorName &&
		pwd == svc.conf.LegacyEditorPassword
}

func (svc *Service) legacyEditor() User {
	return User{ID: legacyEditorID, Name: legacyEditorName, Role: RoleEditor, IsApproved: true}
}

func (svc *Service) QueryAll() []User {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	if id == legacyEditorID && svc.conf.LegacyEditorPassword != "" {
		return svc.legacyEditor(), nil
	}
	return svc.repo.GetUserByID(id)
}

// Fetch reads the user from the remote database, bypassing the mirror.
func (svc *Service) Fetch(ctx context.Context, id string) (User, error) {
	return svc.repo.FetchUser(ctx, id)
}

// Current returns the mirrored user, or the remote one while the mirror has not caught up
// with a recent write.
func (svc *Service) Current(ctx context.Context, id string) (User, error) {
	usr, err := svc.GetByID(id)
	if errors.Cause(err) != ErrNotFound {
		return usr, err
	}
	return svc.Fetch(ctx, id)
}

func (svc *Service) managed(actor User, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if !actor.CanManage(usr) {
		return User{}, core.ErrForbidden
	}
	return usr, nil
}

func (svc *Service) Approve(ctx context.Context, actor User, id string) error {
	usr, err := svc.managed(actor, id)
	if err != nil {
		return err
	}
	if usr.IsApproved {
		return ErrNotPending
	}
	return svc.repo.SetApproved(ctx, id)
}

// Reject hard deletes a pending registration.
func (svc *Service) Reject(ctx context.Context, actor User, id string) error {
	usr, err := svc.managed(actor, id)
	if err != nil {
		return err
	}
	if usr.IsApproved {
		return ErrNotPending
	}
	return svc.repo.DeleteUser(ctx, id)
}

// Update lets a teacher or an editor edit a managed user's name, password & class.
func (svc *Service) Update(ctx context.Context, actor User, id string, uu UpdateUser) (User, error) {
	usr, err := svc.managed(actor, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.ClassID = uu.ClassID
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving user")
	}
	return usr, nil
}

// SetProfilePicture replaces the actor's own picture.
func (svc *Service) SetProfilePicture(ctx context.Context, actor User, picture string) (User, error) {
	if int64(len(picture)) > svc.conf.MaxUploadBytes {
		return User{}, ErrPictureTooLarge
	}
	usr, err := svc.repo.GetUserByID(actor.ID)
	if err != nil {
		return User{}, err
	}
	usr.ProfilePicture = picture
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving user")
	}
	return usr, nil
}

// MarkAnnouncementRead adds announcementID to the actor's viewed announcements.
// Marking an already viewed announcement is a no-op.
func (svc *Service) MarkAnnouncementRead(ctx context.Context, actor User, announcementID string) (User, error) {
	usr, err := svc.Current(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}
	if usr.HasViewed(announcementID) {
		return usr, nil
	}
	usr.ViewedAnnouncements = append(append([]string(nil), usr.ViewedAnnouncements...), announcementID)
	if err := svc.repo.AddViewedAnnouncement(ctx, usr.ID, announcementID); err != nil {
		return User{}, errors.Wrap(err, "updating viewed announcements")
	}
	return usr, nil
}

// ResetPassword sets a new password for the user called name.
func (svc *Service) ResetPassword(ctx context.Context, name, pwd string) error {
	usr, err := svc.repo.GetUserByName(name)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	return svc.repo.SaveUser(ctx, usr)
}

func (svc *Service) notifyTeacherRegistration(usr User) {
	if svc.mailSvc == nil || svc.conf.BootstrapEditorEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: svc.conf.BootstrapEditorEmail}},
		Subject:      "New teacher registration",
		TemplateName: teacherRegistrationTmpl,
		TemplateData: usr,
	})
}
