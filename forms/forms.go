package forms

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-auth-web/authapi"
	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/jrsteele09/go-auth-web/users"
)

// Errors maps a form field name to the message key of its first failure.
type Errors map[string]string

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

func (e Errors) Get(field string) string {
	return e[field]
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func LoginFormFromRequest(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f LoginForm) Validate() Errors {
	return check(f)
}

func (f LoginForm) Data() authapi.LoginData {
	return authapi.LoginData{Email: f.Email, Password: f.Password}
}

type RegisterForm struct {
	Name                 string `form:"name" validate:"required,min=2"`
	Email                string `form:"email" validate:"required,email"`
	Password             string `form:"password" validate:"required,min=8"`
	PasswordConfirmation string `form:"password_confirmation" validate:"required,eqfield=Password"`
	Role                 string `form:"role" validate:"oneof=student instructor"`
}

// RegisterFormFromRequest reads the register form. An absent role means student.
func RegisterFormFromRequest(r *http.Request) RegisterForm {
	f := RegisterForm{
		Name:                 strings.TrimSpace(r.PostFormValue("name")),
		Email:                strings.TrimSpace(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
		Role:                 r.PostFormValue("role"),
	}
	if f.Role == "" {
		f.Role = string(users.RoleStudent)
	}
	return f
}

func (f RegisterForm) Validate() Errors {
	return check(f)
}

func (f RegisterForm) Data() authapi.RegisterData {
	return authapi.RegisterData{
		Name:                 f.Name,
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
		Role:                 users.RoleType(f.Role),
	}
}

// check returns nil when form is valid.
func check(form interface{}) Errors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var validateErr validator.ValidationErrors
	if !apperrors.As(err, &validateErr) {
		return Errors{"": "formInvalid"}
	}

	errs := Errors{}
	for _, fe := range validateErr {
		if errs.Has(fe.Field()) {
			continue
		}
		errs[fe.Field()] = messageKey(fe)
	}
	return errs
}

func messageKey(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		if fe.ActualTag() == "min" {
			return "nameMin"
		}
		return "nameRequired"
	case "email":
		if fe.ActualTag() == "email" {
			return "emailInvalid"
		}
		return "emailRequired"
	case "password":
		if fe.ActualTag() == "min" {
			return "passwordMin"
		}
		return "passwordRequired"
	case "password_confirmation":
		if fe.ActualTag() == "eqfield" {
			return "passwordMismatch"
		}
		return "passwordRequired"
	case "role":
		return "roleInvalid"
	}
	return "formInvalid"
}

// FromAPIError lifts server-side field errors onto the form. The API's
// messages are already human readable and are shown as they are.
func FromAPIError(err error) Errors {
	var apiErr *apperrors.APIError
	if !apperrors.As(err, &apiErr) || len(apiErr.Errors) == 0 {
		return nil
	}
	errs := Errors{}
	for field := range apiErr.Errors {
		errs[field] = apiErr.FieldError(field)
	}
	return errs
}
