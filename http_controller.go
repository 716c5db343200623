package accounts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAccountRoutes mounts the account lifecycle endpoints on the given
// router.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Post(controller.Routes.PreSignup, controller.PreSignup).
		SetName("account.pre-signup")

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("account.signup")

	app.Post(controller.Routes.Signin, controller.Signin).
		SetName("account.signin")

	app.Get(controller.Routes.Signout, controller.Signout).
		SetName("account.signout")

	app.Put(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("account.forgot-password")

	app.Put(controller.Routes.ResetPassword, controller.ResetPassword).
		SetName("account.reset-password")
}

type AccountControllerRoutes struct {
	PreSignup      string
	Signup         string
	Signin         string
	Signout        string
	ForgotPassword string
	ResetPassword  string
}

type AccountController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Tokens       *TokenSuite
	Notifier     Notifier
	Activity     ActivitySink
	Config       Config
	Routes       *AccountControllerRoutes
	Auther       *RouteAuthenticator
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Activity:     noopActivitySink{},
		Routes: &AccountControllerRoutes{
			PreSignup:      "/pre-signup",
			Signup:         "/signup",
			Signin:         "/signin",
			Signout:        "/signout",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenSuite in account controller...")
	}

	if c.Notifier == nil {
		panic("Missing Notifier in account controller...")
	}

	if c.Config == nil {
		panic("Missing Config in account controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in account controller...")
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerTokens(suite *TokenSuite) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Tokens = suite
		return c
	}
}

func WithControllerNotifier(notifier Notifier) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Notifier = notifier
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerConfig(cfg Config) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Config = cfg
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// PreSignupPayload is the first half of the signup: the account is parked in
// the activation token, nothing is stored yet.
type PreSignupPayload struct {
	Name     string `form:"name" json:"name"`
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r PreSignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(5, 100)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 10), is.Alphanumeric),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(ValidatePasswordComplexity())),
	)
}

func (a *AccountController) PreSignup(ctx router.Context) error {
	payload := new(PreSignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("pre-signup parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("pre-signup validate payload: ", "error", err)
		return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= PRE SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	handler := NewSignupRequestHandler(a.Repo, a.Tokens.Activation, a.Notifier, a.Config).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	var email string
	err := handler.Execute(ctx.Context(), SignupRequestMessage{
		Name:     payload.Name,
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *SignupRequestResponse) {
			email = resp.Email
		},
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": fmt.Sprintf("Email has been sent to %s. Follow the instructions to activate your account.", email),
	})
}

// SignupPayload completes the signup with the activation token from the
// emailed link.
type SignupPayload struct {
	Token string `form:"token" json:"token"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AccountController) Signup(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	handler := NewActivateAccountHandler(a.Repo, a.Tokens.Activation, a.Config).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), ActivateAccountMessage{
		Token: payload.Token,
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"message": "Signup success. Please signin.",
	})
}

// SigninPayload carries the signin credentials.
type SigninPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r SigninPayload) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r SigninPayload) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r SigninPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) Signin(ctx router.Context) error {
	payload := new(SigninPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signin parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	result, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *AccountController) Signout(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": "Signout success",
	})
}

// ForgotPasswordPayload requests a reset link.
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	handler := NewPasswordResetRequestHandler(a.Repo, a.Tokens.Reset, a.Notifier, a.Config).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	var email string
	err := handler.Execute(ctx.Context(), PasswordResetRequestMessage{
		Email: payload.Email,
		OnResponse: func(resp *PasswordResetRequestResponse) {
			email = resp.Email
		},
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": fmt.Sprintf("Email has been sent to %s. Follow the instructions to reset your password.", email),
	})
}

// ResetPasswordPayload submits the emailed reset token with the replacement
// password.
type ResetPasswordPayload struct {
	ResetPasswordLink string `form:"reset_password_link" json:"reset_password_link"`
	NewPassword       string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetPasswordLink, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.By(ValidatePasswordComplexity())),
	)
}

func (a *AccountController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	handler := NewPasswordResetSubmitHandler(a.Repo, a.Tokens.Reset).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), PasswordResetSubmitMessage{
		Token:       payload.ResetPasswordLink,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": "Great! Now you can signin with your new password.",
	})
}

func (a *AccountController) handleError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ctx.JSON(richErr.Code, map[string]any{
			"error": richErr.Message,
			"code":  richErr.TextCode,
		})
	}
	return a.ErrorHandler(ctx, err)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, map[string]any{
		"error": "An unexpected server error occurred",
	})
}
