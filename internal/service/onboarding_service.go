package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/queue"
	"github.com/iliyamo/habit-coach/internal/repository"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// OnboardingService implements SMS verification, sign-in and signup.
type OnboardingService struct {
	Users     UserStore
	Factors   FactorStore
	Codes     CodeStore
	Messenger Messenger
	Log       *logger.Logger

	JWTSecret     string
	AccessTTLMin  int
	OnboardTTLMin int
	BcryptCost    int
	CodeTTL       time.Duration
	CodeAttempts  int

	// NewCode is replaceable in tests.
	NewCode func() (string, error)
}

func (s *OnboardingService) log() *logger.Logger { return nopIfNil(s.Log) }

// SendCode generates a verification code for the mobile number, stores its
// hash and queues the SMS.  It returns the normalised E.164 number.
func (s *OnboardingService) SendCode(ctx context.Context, rawMobile, countryCode string) (string, error) {
	mobile, err := utils.FormatMobile(rawMobile, countryCode)
	if err != nil {
		return "", err
	}
	gen := s.NewCode
	if gen == nil {
		gen = utils.NewVerificationCode
	}
	code, err := gen()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := utils.HashCode(code, s.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	if err := s.Codes.Put(ctx, mobile, hash, s.CodeTTL); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	notify(ctx, s.Messenger, s.log(), mobile,
		fmt.Sprintf("Your haBot verification code is %s", code), queue.KindVerification)
	return mobile, nil
}

// SignInResult carries the token issued after a successful code check.
// Enrolled is false for unknown numbers; their token only allows signup.
type SignInResult struct {
	Token    utils.AccessToken
	Enrolled bool
	User     model.User
	Mobile   string
}

// SignIn checks the submitted code.  A matching code is consumed.  Known
// numbers receive a USER token, new numbers a PENDING onboarding token.
func (s *OnboardingService) SignIn(ctx context.Context, rawMobile, countryCode, code string) (SignInResult, error) {
	mobile, err := utils.FormatMobile(rawMobile, countryCode)
	if err != nil {
		return SignInResult{}, err
	}
	if err := s.checkCode(ctx, mobile, strings.TrimSpace(code)); err != nil {
		return SignInResult{}, err
	}

	user, err := s.Users.GetByMobile(ctx, mobile)
	switch {
	case err == nil:
		tok, err := utils.NewAccessToken(s.JWTSecret, user.ID, s.AccessTTLMin)
		if err != nil {
			return SignInResult{}, err
		}
		return SignInResult{Token: tok, Enrolled: true, User: user, Mobile: mobile}, nil
	case errors.Is(err, repository.ErrNotFound):
		tok, err := utils.NewOnboardingToken(s.JWTSecret, mobile, s.OnboardTTLMin)
		if err != nil {
			return SignInResult{}, err
		}
		return SignInResult{Token: tok, Mobile: mobile}, nil
	default:
		return SignInResult{}, fmt.Errorf("lookup user: %w", err)
	}
}

func (s *OnboardingService) checkCode(ctx context.Context, mobile, code string) error {
	hash, attempts, err := s.Codes.Get(ctx, mobile)
	if err != nil {
		return err
	}
	if s.CodeAttempts > 0 && attempts >= s.CodeAttempts {
		_ = s.Codes.Delete(ctx, mobile)
		return ErrTooManyAttempts
	}
	if !utils.VerifyCode(hash, code) {
		n, err := s.Codes.IncrAttempts(ctx, mobile)
		if err == nil && s.CodeAttempts > 0 && n >= s.CodeAttempts {
			_ = s.Codes.Delete(ctx, mobile)
		}
		return ErrInvalidCode
	}
	return s.Codes.Delete(ctx, mobile)
}

// SignupRequest is the onboarding form submitted with a PENDING token.
type SignupRequest struct {
	Mobile string
	Name   string
	TZ     string
	Scores map[uint64]int
}

// Signup creates the user and the first factor profile atomically, sends
// the welcome message and returns a USER token.
func (s *OnboardingService) Signup(ctx context.Context, req SignupRequest) (model.User, utils.AccessToken, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.User{}, utils.AccessToken{}, ErrInvalidName
	}
	if req.TZ == "" {
		req.TZ = "UTC"
	}
	if _, err := time.LoadLocation(req.TZ); err != nil {
		return model.User{}, utils.AccessToken{}, fmt.Errorf("%w: %s", ErrInvalidTimezone, req.TZ)
	}
	factors, err := s.Factors.List(ctx)
	if err != nil {
		return model.User{}, utils.AccessToken{}, fmt.Errorf("list factors: %w", err)
	}
	if err := validateScores(factors, req.Scores); err != nil {
		return model.User{}, utils.AccessToken{}, err
	}

	id, err := s.Users.CreateWithProfile(ctx, name, req.Mobile, req.TZ, req.Scores)
	if err != nil {
		return model.User{}, utils.AccessToken{}, err
	}
	user := model.User{ID: id, Name: name, Mobile: req.Mobile, TZ: req.TZ}
	tok, err := utils.NewAccessToken(s.JWTSecret, id, s.AccessTTLMin)
	if err != nil {
		return model.User{}, utils.AccessToken{}, err
	}
	s.log().Info("user enrolled", "user_id", id)
	notify(ctx, s.Messenger, s.log(), req.Mobile,
		fmt.Sprintf("Welcome to haBot, %s! Pick a habit from your recommendations and I'll help you stick with it.", name),
		queue.KindWelcome)
	return user, tok, nil
}
