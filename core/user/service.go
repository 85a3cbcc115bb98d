package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("user not found")
	ErrEmailExists         = errors.New("a user with this email already exists")
	ErrUsernameExists      = errors.New("a user with this username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDeactivated  = errors.New("account deactivated")
	ErrOTPNotFound         = core.NewNotFoundError("verification code not found")
	ErrInvalidOTP          = errors.New("invalid verification code")
	ErrOTPExpired          = errors.New("verification code expired")
	ErrOTPTooManyAttempts  = errors.New("too many attempts, request a new code")
	ErrInvalidResetRequest = errors.New("invalid password reset link")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists; empty values are not checked.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, login string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error

		SaveOTP(ctx context.Context, otp OTP) error
		GetOTP(ctx context.Context, userID string) (OTP, error)
		DeleteOTP(ctx context.Context, userID string) error
		PurgeExpiredOTPs(ctx context.Context, now time.Time) (int, error)
	}

	Service struct {
		conf     *core.Config
		repo     Repository
		mailSvc  core.EmailService
		logger   core.Logger
		tokens   *tokenGenerator
		syncMail bool

		NowFunc func() time.Time // mockable
	}
)

var _ session.RoleSource = (*Service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		NowFunc: time.Now,
	}
}

func (svc *Service) now() time.Time {
	return svc.NowFunc().UTC()
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create persists a validated NewUser.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.now()
	usr := User{
		ID:         uuid.New().String(),
		Name:       nu.Name,
		Username:   nu.loginName(),
		Email:      nu.Email,
		Phone:      nu.Phone,
		Role:       nu.Role,
		AvatarURL:  null.NewString(nu.AvatarURL, nu.AvatarURL != ""),
		IsActive:   true,
		IsVerified: nu.Role == session.RoleAdmin,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, login string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(login, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ordering...)
}

// CurrentRole reports the stored role of a user and whether it may still hold a session.
func (svc *Service) CurrentRole(ctx context.Context, id string) (session.Role, bool, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return session.RoleGuest, false, nil
		}
		return session.RoleGuest, false, err
	}
	return usr.Role, usr.IsActive, nil
}

// Update applies a validated UpdateUser. The role is never changed here.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := uu.apply(&usr); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = svc.now()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

// Authenticate checks credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, login, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.setLastLogin(ctx, usr)
}

func (svc *Service) setLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(svc.now())
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

// RequestOTP emails a fresh verification code, replacing any previous one.
// Unknown emails are silently ignored.
func (svc *Service) RequestOTP(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}

	code, err := generateCode(svc.conf.OTP.Length)
	if err != nil {
		return errors.Wrap(err, "generating code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing code")
	}
	now := svc.now()
	otp := OTP{UserID: usr.ID, CodeHash: hash, ExpiresAt: now.Add(svc.conf.OTP.TTL), CreatedAt: now}
	if err = svc.repo.SaveOTP(ctx, otp); err != nil {
		return errors.Wrap(err, "saving code")
	}

	svc.send(func() { svc.sendOTPMail(usr, code) })
	return nil
}

// VerifyOTP checks a code, marks the user verified and records the login.
func (svc *Service) VerifyOTP(ctx context.Context, email, code string) (User, error) {
	fail := func(err error) (User, error) {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}

	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return fail(ErrInvalidOTP)
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	otp, err := svc.repo.GetOTP(ctx, usr.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return fail(ErrInvalidOTP)
		}
		return User{}, errors.Wrap(err, "getting code")
	}
	if otp.Expired(svc.now()) {
		return fail(ErrOTPExpired)
	}
	if otp.Attempts >= svc.conf.OTP.MaxAttempts {
		return fail(ErrOTPTooManyAttempts)
	}
	if err = bcrypt.CompareHashAndPassword(otp.CodeHash, []byte(core.CleanString(code))); err != nil {
		otp.Attempts++
		if err = svc.repo.SaveOTP(ctx, otp); err != nil {
			return User{}, errors.Wrap(err, "saving code")
		}
		return fail(ErrInvalidOTP)
	}

	if err = svc.repo.DeleteOTP(ctx, usr.ID); err != nil {
		return User{}, errors.Wrap(err, "deleting code")
	}
	usr.IsVerified = true
	return svc.setLastLogin(ctx, usr)
}

// PurgeExpiredOTPs removes stale verification codes.
func (svc *Service) PurgeExpiredOTPs(ctx context.Context) (int, error) {
	n, err := svc.repo.PurgeExpiredOTPs(ctx, svc.now())
	return n, errors.Wrap(err, "purging codes")
}

// RequestPasswordReset emails a reset link. Unknown emails are silently ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}
	svc.send(func() { svc.sendPasswordResetMail(usr) })
	return nil
}

// ResetPassword sets a new password from a valid reset link.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	invalid := core.NewValidationError(ErrInvalidResetRequest)

	uid, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalid
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, invalid
		}
		return User{}, errors.Wrap(err, "finding user by id")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return User{}, invalid
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = svc.now()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) send(fn func()) {
	if svc.syncMail {
		fn()
		return
	}
	go fn()
}

func (svc *Service) recipient(usr User) mail.Address {
	return mail.Address{Name: usr.Name, Address: usr.Email}
}

func (svc *Service) sendOTPMail(usr User, code string) {
	msg := &core.EmailMessage{
		To:           []mail.Address{svc.recipient(usr)},
		Subject:      fmt.Sprintf("%s verification code", svc.conf.AppName),
		TemplateName: "otp",
		TemplateData: map[string]interface{}{
			"Name":    usr.Name,
			"Code":    code,
			"Minutes": int(svc.conf.OTP.TTL / time.Minute),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) sendPasswordResetMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{svc.recipient(usr)},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"Token": svc.tokens.makeToken(usr),
			"UID":   EncodeUID(usr),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

// generateCode returns n random decimal digits.
func generateCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	code := make([]byte, n)
	for i := range code {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}
