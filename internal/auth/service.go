package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

var (
	// ErrDuplicateAccount indicates an account with the same email already exists.
	ErrDuplicateAccount = errors.New("duplicate account")
	// ErrNoAccount indicates no account exists for the provided email.
	ErrNoAccount = errors.New("account does not exist")
	// ErrNotConfirmed indicates the account has not redeemed its confirmation token.
	ErrNotConfirmed = errors.New("account not confirmed")
	// ErrBadPassword indicates the provided password does not match.
	ErrBadPassword = errors.New("incorrect password")
)

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ErrFunc is a function that handles errors from worker goroutines.
type ErrFunc func(error)

// LinkEmail is the data for the confirmation and password reset emails.
type LinkEmail struct {
	Name string
	URL  string
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// WorkerTimeout is the max duration worker goroutines are allowed
	// to take before they are cancelled.
	WorkerTimeout time.Duration
	// BaseURL is the public base URL of the site, used to build the
	// confirmation and reset links embedded in emails.
	BaseURL *url.URL
}

// Service provides the main rules for authentication and the account
// lifecycle: registration, email confirmation, login and password resets.
type Service struct {
	store      Store
	emailer    Emailer
	wg         *sync.WaitGroup
	errHandler ErrFunc
	cfg        ServiceConfig

	// comparisonHash is used to compare passwords when no account was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		emailer:        emailer,
		wg:             &sync.WaitGroup{},
		errHandler:     errHandler,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Wait waits for all open workers to finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Register creates an unconfirmed account and dispatches a confirmation
// email containing a single-use token.
//
// It returns ErrDuplicateAccount if an account with the same email already
// exists, so the registration form can surface it. The email dispatch
// happens in a worker goroutine: a slow or failing mail transport must not
// block the HTTP response.
func (s *Service) Register(ctx context.Context, reg Registration) error {
	pwdHash, err := reg.Password.Hash()
	if err != nil {
		return err
	}

	token, err := krypto.GenerateToken()
	if err != nil {
		return err
	}

	now := s.NowFunc()
	account := Account{
		ID:           uuid.New(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: pwdHash,
		Confirmed:    false,
		PendingToken: &token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		existing, txErr := tx.FindAccounts(&AccountFilter{
			Emails: []email.Address{reg.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(existing) > 0 {
			return ErrDuplicateAccount
		}

		return tx.CreateAccount(&account)
	})
	if err != nil {
		return err
	}

	s.sendLinkEmail(account, "confirmar-cuenta", s.linkURL("confirmar", token))

	return nil
}

// Confirm redeems a confirmation token. The token is single-use: the account
// is confirmed and the token cleared in one atomic store operation, a second
// redemption attempt reports errorz.ErrNotFound.
func (s *Service) Confirm(ctx context.Context, token krypto.Token) error {
	return s.inTx(ctx, func(tx Tx) error {
		_, err := tx.RedeemConfirmToken(token, s.NowFunc())
		return err
	})
}

// Authenticate checks the provided credentials and returns the account when
// they are valid.
//
// The failure reasons are distinct (ErrNoAccount, ErrNotConfirmed,
// ErrBadPassword) because the login form shows distinct messages, matching
// the site's observed behavior. Timing is still equalized with a comparison
// hash when no account exists.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (Account, error) {
	accounts, err := s.store.FindAccounts(ctx, &AccountFilter{
		Emails: []email.Address{c.Email},
	})
	if err != nil {
		return Account{}, err
	}

	if len(accounts) != 1 {
		// Compare against a throwaway hash so a missing account takes as
		// long as a wrong password.
		_ = c.Password.Match(s.comparisonHash)
		return Account{}, ErrNoAccount
	}

	account := accounts[0]

	if !account.Confirmed {
		return Account{}, ErrNotConfirmed
	}

	if !c.Password.Match(account.PasswordHash) {
		return Account{}, ErrBadPassword
	}

	return account, nil
}

// RequestPasswordReset issues a fresh pending token for the account with the
// provided email address and dispatches a reset email.
//
// It returns errorz.ErrNotFound when no account has the address; the form
// surfaces that as a field error. Issuing a new token invalidates any token
// that was pending before.
func (s *Service) RequestPasswordReset(ctx context.Context, addr email.Address) error {
	token, err := krypto.GenerateToken()
	if err != nil {
		return err
	}

	var account Account
	err = s.inTx(ctx, func(tx Tx) error {
		accounts, txErr := tx.FindAccounts(&AccountFilter{
			Emails: []email.Address{addr},
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) != 1 {
			return fmt.Errorf("no account for reset request: %w", errorz.ErrNotFound)
		}

		account = accounts[0]
		account.PendingToken = &token
		account.UpdatedAt = s.NowFunc()

		return tx.UpdateAccount(&account)
	})
	if err != nil {
		return err
	}

	s.sendLinkEmail(account, "olvide-password", s.linkURL("olvide-password", token))

	return nil
}

// VerifyResetToken checks that a reset token is (still) redeemable. It does
// not consume the token; only ResetPassword does.
func (s *Service) VerifyResetToken(ctx context.Context, token krypto.Token) error {
	accounts, err := s.store.FindAccounts(ctx, &AccountFilter{
		Tokens: []krypto.Token{token},
	})
	if err != nil {
		return err
	}

	if len(accounts) != 1 {
		return fmt.Errorf("unknown reset token: %w", errorz.ErrNotFound)
	}

	return nil
}

// ResetPassword redeems a reset token: the password hash is overwritten
// wholesale and the token cleared in one atomic store operation.
// An unknown or already-consumed token reports errorz.ErrNotFound.
func (s *Service) ResetPassword(ctx context.Context, token krypto.Token, pwd Password) error {
	hash, err := pwd.Hash()
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		_, err := tx.RedeemResetToken(token, hash, s.NowFunc())
		return err
	})
}

// sendLinkEmail dispatches a templated email with an action link in a worker
// goroutine. Failures go to the error handler, never to the caller.
func (s *Service) sendLinkEmail(account Account, template, link string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WorkerTimeout)
		defer cancel()

		err := s.emailer.Send(wCtx, template, account.Email, LinkEmail{
			Name: account.Name,
			URL:  link,
		})
		if err != nil {
			s.errHandler(fmt.Errorf("failed to send %q email: %w", template, err))
		}
	}()
}

func (s *Service) linkURL(action string, token krypto.Token) string {
	u := s.cfg.BaseURL.JoinPath(action, token.String())
	return u.String()
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
