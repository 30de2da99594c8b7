package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/derekslarson/auth-service/authflow"
	"github.com/derekslarson/auth-service/clients"
	"github.com/derekslarson/auth-service/federation"
	"github.com/derekslarson/auth-service/notification"
	"github.com/derekslarson/auth-service/oauth2model"
	"github.com/derekslarson/auth-service/token"
	"github.com/derekslarson/auth-service/users"
)

const (
	authorizationCodeTTL = 60 * time.Second
	confirmationCodeTTL  = 10 * time.Minute
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Attempts authflow.Repo
	Clients  clients.Repo
	Users    users.Repo
}

// Senders holds the notification channels confirmation codes go out on.
type Senders struct {
	Email notification.Sender
	SMS   notification.Sender
}

// Service drives the end-to-end login/consent/grant state machine. It calls
// the token service only where credentials must be minted or destroyed.
type Service struct {
	repos     Repos
	tokens    *token.Service
	providers federation.Registry
	senders   Senders
	loginURL  string
	nowFunc   func() time.Time
}

type ServiceOption func(*Service)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// NewService initializes a new authorization Service with required dependencies.
func NewService(
	repos Repos,
	tokenService *token.Service,
	providers federation.Registry,
	senders Senders,
	loginURL string,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Attempts == nil {
		return nil, errors.New("[NewService] Attempts repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewService] Clients repo is required")
	}
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if tokenService == nil {
		return nil, errors.New("[NewService] token service is required")
	}
	if senders.Email == nil || senders.SMS == nil {
		return nil, errors.New("[NewService] both notification senders are required")
	}
	if loginURL == "" {
		return nil, errors.New("[NewService] login URL is required")
	}

	s := &Service{
		repos:     repos,
		tokens:    tokenService,
		providers: providers,
		senders:   senders,
		loginURL:  loginURL,
		nowFunc:   time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// BeginFlowInput carries the parameters of an authorization request.
type BeginFlowInput struct {
	ClientID            string
	ResponseType        oauth2model.ResponseType
	RedirectURI         string
	State               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod oauth2model.CodeChallengeMethod
}

// BeginFlowResult is the redirect target for the login UI plus the
// anti-forgery token the browser must echo back on every later step.
type BeginFlowResult struct {
	Location  string
	XSRFToken string
}

// LoginInput identifies the user by exactly one of email or phone; the
// channel the confirmation code goes out on follows from which one is set.
type LoginInput struct {
	Email string
	Phone string
}

// BeginAuthFlow validates the authorization request, persists a new attempt
// keyed by a freshly derived anti-forgery token, and returns where to send
// the browser.
func (s *Service) BeginAuthFlow(ctx context.Context, input BeginFlowInput) (*BeginFlowResult, error) {
	result, err := s.beginAuthFlow(ctx, input)
	if err != nil {
		return nil, s.collapse("BeginAuthFlow", err, oauth2model.KindAccessDenied)
	}
	return result, nil
}

func (s *Service) beginAuthFlow(ctx context.Context, input BeginFlowInput) (*BeginFlowResult, error) {
	client, err := s.repos.Clients.Get(ctx, input.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.BeginAuthFlow] Clients.Get")
	}

	if input.ResponseType != oauth2model.ResponseTypeCode {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "unsupported response_type")
	}
	if input.RedirectURI != client.RedirectURI {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "redirect_uri not registered for client")
	}
	if err := client.ValidateScopes(input.Scope); err != nil {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "scope not allowed for client")
	}
	if input.CodeChallenge != "" &&
		input.CodeChallengeMethod != oauth2model.CodeChallengeMethodS256 &&
		input.CodeChallengeMethod != oauth2model.CodeChallengeMethodPlain {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "unsupported code_challenge_method")
	}

	// The caller-supplied state doubles as the CSRF-signing secret when
	// present, binding the browser's token to the client's own request state.
	secret := input.State
	if secret == "" {
		if secret, err = newFlowSecret(); err != nil {
			return nil, err
		}
	}

	xsrfToken, err := newCSRFToken(secret)
	if err != nil {
		return nil, err
	}

	scope := input.Scope
	if scope == "" {
		scope = strings.Join(client.Scopes, " ")
	}

	if err := s.repos.Attempts.Create(ctx, &authflow.Attempt{
		XSRFToken:           xsrfToken,
		Secret:              secret,
		ClientID:            input.ClientID,
		ResponseType:        input.ResponseType,
		RedirectURI:         input.RedirectURI,
		Scope:               scope,
		State:               input.State,
		CodeChallenge:       input.CodeChallenge,
		CodeChallengeMethod: input.CodeChallengeMethod,
	}); err != nil {
		return nil, errors.Wrap(err, "[Service.BeginAuthFlow] Attempts.Create")
	}

	return &BeginFlowResult{Location: s.loginURL, XSRFToken: xsrfToken}, nil
}

// Login resolves-or-creates the user behind the supplied identifier, binds it
// to the attempt, and dispatches a confirmation code over the matching
// channel. The attempt fetch and the user resolution hit independent records,
// so they run concurrently.
func (s *Service) Login(ctx context.Context, xsrfToken string, input LoginInput) error {
	if err := s.login(ctx, xsrfToken, input); err != nil {
		return s.collapse("Login", err, oauth2model.KindAccessDenied)
	}
	return nil
}

func (s *Service) login(ctx context.Context, xsrfToken string, input LoginInput) error {
	if (input.Email == "") == (input.Phone == "") {
		return oauth2model.NewError(oauth2model.KindInvalidRequest, "exactly one of email or phone is required")
	}

	var (
		attempt *authflow.Attempt
		user    *users.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attempt, err = s.repos.Attempts.Get(gctx, xsrfToken)
		return errors.Wrap(err, "[Service.Login] Attempts.Get")
	})
	g.Go(func() error {
		var err error
		if input.Email != "" {
			user, err = s.repos.Users.ResolveByEmail(gctx, input.Email)
		} else {
			user, err = s.repos.Users.ResolveByPhone(gctx, input.Phone)
		}
		return errors.Wrap(err, "[Service.Login] resolve user")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if !verifyCSRFToken(attempt.Secret, xsrfToken) {
		return oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	code, err := newConfirmationCode()
	if err != nil {
		return err
	}

	attempt.UserID = user.ID
	attempt.SetConfirmationCode(code, s.nowFunc())
	if err := s.repos.Attempts.Update(ctx, attempt); err != nil {
		return errors.Wrap(err, "[Service.Login] Attempts.Update")
	}

	if input.Email != "" {
		return errors.Wrap(s.senders.Email.SendConfirmationCode(ctx, input.Email, code), "[Service.Login] send email")
	}
	return errors.Wrap(s.senders.SMS.SendConfirmationCode(ctx, input.Phone, code), "[Service.Login] send sms")
}

// ConfirmResult carries the freshly minted authorization code.
type ConfirmResult struct {
	AuthorizationCode string
}

// Confirm checks the submitted confirmation code and trades it for a
// single-use authorization code.
func (s *Service) Confirm(ctx context.Context, xsrfToken, confirmationCode string) (*ConfirmResult, error) {
	result, err := s.confirm(ctx, xsrfToken, confirmationCode)
	if err != nil {
		return nil, s.collapse("Confirm", err, oauth2model.KindAccessDenied)
	}
	return result, nil
}

func (s *Service) confirm(ctx context.Context, xsrfToken, confirmationCode string) (*ConfirmResult, error) {
	attempt, err := s.repos.Attempts.Get(ctx, xsrfToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Confirm] Attempts.Get")
	}

	if !verifyCSRFToken(attempt.Secret, xsrfToken) {
		return nil, oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	now := s.nowFunc()
	if attempt.ConfirmationCode == "" || !equalCodes(confirmationCode, attempt.ConfirmationCode) {
		return nil, oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}
	if now.Sub(attempt.ConfirmationCodeCreatedAt) > confirmationCodeTTL {
		return nil, oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	authorizationCode, err := newAuthorizationCode()
	if err != nil {
		return nil, err
	}

	attempt.SetAuthorizationCode(authorizationCode, now)
	if err := s.repos.Attempts.Update(ctx, attempt); err != nil {
		return nil, errors.Wrap(err, "[Service.Confirm] Attempts.Update")
	}

	return &ConfirmResult{AuthorizationCode: authorizationCode}, nil
}

// collapse passes typed OAuth2 errors through and folds anything else into
// fallback, logging the internal detail that must not reach the caller.
func (s *Service) collapse(operation string, err error, fallback oauth2model.ErrorKind) error {
	if oauthErr, ok := oauth2model.AsError(err); ok {
		return oauthErr
	}
	log.Error().Err(err).Str("operation", operation).Msg("auth flow failure")
	return oauth2model.NewError(fallback, "")
}

// buildRedirectLocation appends code (and the original state, if any) to the
// client's redirect URI.
func buildRedirectLocation(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", errors.Wrap(err, "buildRedirectLocation url.Parse")
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
