package views

import (
	"github.com/a-h/templ"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/group"
	"github.com/dmitrymomot/fittrack/svc/profile"
	"github.com/dmitrymomot/fittrack/svc/units"
)

// Patch targets for Datastar partial updates.
const (
	TargetLoginForm      = "#login-form"
	TargetRegisterForm   = "#register-form"
	TargetStrength       = "#password-strength"
	TargetExerciseTable  = "#exercise-table"
	TargetExerciseForm   = "#exercise-form"
	TargetInvitations    = "#invitations"
	TargetGroupForm      = "#group-form"
	TargetInviteForm     = "#invite-form"
	TargetProfileForm    = "#profile-form"
	TargetToastContainer = "#toast-container"
)

// Layout is the data every full page carries. Guard selects the session
// stream the page subscribes to; the zero value subscribes to none.
type Layout struct {
	Title   string
	Session auth.Session
	Guard   auth.GuardKind
	Active  string
}

// NewLayout is the layout of a page behind the Protected guard.
func NewLayout(title, active string, s auth.Session) Layout {
	return Layout{Title: title, Session: s, Guard: auth.GuardProtected, Active: active}
}

// PublicLayout is the layout of a page behind the Public guard.
func PublicLayout(title string) Layout {
	return Layout{Title: title, Guard: auth.GuardPublic}
}

type LoginParams struct {
	Layout
	Email string
	Error string
}

func LoginPage(p LoginParams) templ.Component { return page("login", p) }
func LoginForm(p LoginParams) templ.Component { return block("login", "login_form", p) }

type RegisterParams struct {
	Layout
	Name     string
	Email    string
	Strength validator.Strength
	Errors   validator.ValidationErrors
	Error    string
	Success  string
}

func RegisterPage(p RegisterParams) templ.Component { return page("register", p) }
func RegisterForm(p RegisterParams) templ.Component { return block("register", "register_form", p) }

// PasswordStrength is the meter under the register password field.
func PasswordStrength(s validator.Strength) templ.Component {
	return block("register", "password_strength", s)
}

type DashboardParams struct {
	Layout
	Stats exercise.Stats
	Error string
}

func DashboardPage(p DashboardParams) templ.Component { return page("dashboard", p) }

type ExercisesParams struct {
	Layout
	Query     exercise.Query
	Exercises []exercise.Exercise
	Total     int
	Error     string
}

func ExercisesPage(p ExercisesParams) templ.Component { return page("exercises", p) }
func ExerciseTable(p ExercisesParams) templ.Component { return block("exercises", "exercise_table", p) }

// ExerciseValues holds the exercise form as typed, so invalid input can be
// shown back unchanged.
type ExerciseValues struct {
	Date       string
	Name       string
	Type       string
	Weight     string
	WeightUnit string
	Sets       string
	Reps       string
	Notes      string
}

type ExerciseFormParams struct {
	Layout
	ID     string
	Values ExerciseValues
	Errors validator.ValidationErrors
	Error  string
}

func (p ExerciseFormParams) IsNew() bool { return p.ID == "" }

func (p ExerciseFormParams) Action() string {
	if p.IsNew() {
		return "/exercises"
	}
	return "/exercises/" + p.ID
}

func (p ExerciseFormParams) Types() []exercise.Type {
	return []exercise.Type{exercise.TypeMachine, exercise.TypeFree}
}

func ExerciseFormPage(p ExerciseFormParams) templ.Component { return page("exercise_form", p) }
func ExerciseForm(p ExerciseFormParams) templ.Component {
	return block("exercise_form", "exercise_form_body", p)
}

type GroupsParams struct {
	Layout
	Groups      []group.Group
	Invitations []group.Invitation
	Error       string
}

func GroupsPage(p GroupsParams) templ.Component     { return page("groups", p) }
func InvitationList(p GroupsParams) templ.Component { return block("groups", "invitation_list", p) }

type GroupFormParams struct {
	Layout
	ID            string
	Name          string
	Goal          string
	CoverImageURL string
	Errors        validator.ValidationErrors
	Error         string
}

func (p GroupFormParams) IsNew() bool { return p.ID == "" }

func (p GroupFormParams) Action() string {
	if p.IsNew() {
		return "/groups"
	}
	return "/groups/" + p.ID
}

func GroupFormPage(p GroupFormParams) templ.Component { return page("group_form", p) }
func GroupForm(p GroupFormParams) templ.Component {
	return block("group_form", "group_form_body", p)
}

type GroupDetailParams struct {
	Layout
	Group         group.Group
	Members       []group.Member
	InviteEmail   string
	InviteError   string
	InviteSuccess string
}

func GroupDetailPage(p GroupDetailParams) templ.Component { return page("group_detail", p) }
func InviteForm(p GroupDetailParams) templ.Component {
	return block("group_detail", "invite_form", p)
}

type ProfileParams struct {
	Layout
	Profile     profile.Profile
	Name        string
	Unit        units.Unit
	Errors      validator.ValidationErrors
	Success     string
	Error       string
	AvatarError string
}

func ProfilePage(p ProfileParams) templ.Component { return page("profile", p) }
func ProfileForm(p ProfileParams) templ.Component { return block("profile", "profile_form", p) }

type errorPageParams struct {
	Layout
	handler.ErrorPageParams
}

// ErrorPage is the full-page error used by handler.NewErrorHandler.
func ErrorPage(p handler.ErrorPageParams) templ.Component {
	return page("error", errorPageParams{Layout: Layout{Title: "Error"}, ErrorPageParams: p})
}

// ErrorToast is the Datastar notification used by handler.NewErrorHandler.
func ErrorToast(p handler.ErrorToastParams) templ.Component {
	return block("error", "toast", p)
}

// Toast is a notification prepended to the toast container.
func Toast(message, kind string) templ.Component {
	return ErrorToast(handler.ErrorToastParams{Message: message, Type: kind})
}
