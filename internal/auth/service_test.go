package auth_test

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/auth/db"
	"github.com/raicesdev/bienesraices/internal/db/testdb"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/errorz/testerr"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

func Test_Service_Register(t *testing.T) {
	t.Run("ok, register account", func(t *testing.T) {
		st := newServiceTest(t)

		reg := auth.Registration{
			Name:     "Juan",
			Email:    must(email.ParseAddress("juan@example.com")),
			Password: must(auth.ParsePassword("reallyStrongPassword1")),
		}

		err := st.svc.Register(context.Background(), reg)
		if err != nil {
			t.Fatalf("failed to register: %v", err)
		}

		// Wait for the email worker to finish.
		st.svc.Wait()
		st.errList.assertNoError(t)

		if len(st.emailer.emails) != 1 || st.emailer.emails[0].recipient != reg.Email {
			t.Fatalf("expected 1 email to %s, got %d", reg.Email, len(st.emailer.emails))
		}

		if st.emailer.emails[0].template != "confirmar-cuenta" {
			t.Fatalf("unexpected template: %s", st.emailer.emails[0].template)
		}
	})

	t.Run("fail, duplicate email", func(t *testing.T) {
		st := newServiceTest(t)
		reg, _ := st.register()

		err := st.svc.Register(context.Background(), reg)
		if !errors.Is(err, auth.ErrDuplicateAccount) {
			t.Fatalf("expected error %v, got %v", auth.ErrDuplicateAccount, err)
		}

		st.svc.Wait()
		st.errList.assertNoError(t)

		// Only the first registration sent an email.
		if len(st.emailer.emails) != 1 {
			t.Fatalf("expected 1 email, got %d", len(st.emailer.emails))
		}
	})

	for i, dep := range testerr.NewFailingDeps(testerr.Err, 4) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			st.store.dep = &dep

			reg := auth.Registration{
				Name:     "Juan",
				Email:    must(email.ParseAddress("juan@example.com")),
				Password: must(auth.ParsePassword("reallyStrongPassword1")),
			}

			err := st.svc.Register(context.Background(), reg)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("dep %d: expected error %v, got %v (via errors.Is)", i, testerr.Err, err)
			}

			st.svc.Wait()

			if len(st.emailer.emails) != 0 {
				t.Fatalf("expected 0 emails, got %d", len(st.emailer.emails))
			}
		})
	}

	t.Run("fail async, emailer fails", func(t *testing.T) {
		st := newServiceTest(t)
		st.emailer.testErr = testerr.Err

		reg := auth.Registration{
			Name:     "Juan",
			Email:    must(email.ParseAddress("juan@example.com")),
			Password: must(auth.ParsePassword("reallyStrongPassword1")),
		}

		err := st.svc.Register(context.Background(), reg)
		if err != nil {
			t.Fatalf("failed to register: %v", err)
		}

		st.svc.Wait()
		st.errList.assertErrorIs(t, testerr.Err)
	})
}

func Test_Service_Confirm(t *testing.T) {
	t.Run("ok, confirm account", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()

		err := st.svc.Confirm(context.Background(), token)
		if err != nil {
			t.Fatalf("failed to confirm: %v", err)
		}

		// The account should now authenticate.
		_, err = st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: reg.Password,
		})
		if err != nil {
			t.Fatalf("failed to authenticate after confirm: %v", err)
		}
	})

	t.Run("fail, unknown token", func(t *testing.T) {
		st := newServiceTest(t)
		st.register()

		other := must(krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132"))

		err := st.svc.Confirm(context.Background(), other)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}
	})

	t.Run("fail, token already consumed", func(t *testing.T) {
		st := newServiceTest(t)
		_, token := st.register()
		st.confirm(token)

		err := st.svc.Confirm(context.Background(), token)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}
	})

	for i, dep := range testerr.NewFailingDeps(testerr.Err, 3) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			_, token := st.register()
			st.store.dep = &dep

			err := st.svc.Confirm(context.Background(), token)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("dep %d: expected error %v, got %v (via errors.Is)", i, testerr.Err, err)
			}
		})
	}
}

func Test_Service_Authenticate(t *testing.T) {
	t.Run("ok, right credentials", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		account, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: reg.Password,
		})
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if account.Email != reg.Email || account.Name != reg.Name {
			t.Fatalf("unexpected account: %+v", account)
		}
	})

	t.Run("fail, unknown email", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    must(email.ParseAddress("nadie@example.com")),
			Password: reg.Password,
		})
		if !errors.Is(err, auth.ErrNoAccount) {
			t.Fatalf("expected error %v, got %v", auth.ErrNoAccount, err)
		}
	})

	t.Run("fail, account not confirmed", func(t *testing.T) {
		st := newServiceTest(t)
		reg, _ := st.register()

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: reg.Password,
		})
		if !errors.Is(err, auth.ErrNotConfirmed) {
			t.Fatalf("expected error %v, got %v", auth.ErrNotConfirmed, err)
		}
	})

	t.Run("fail, wrong password", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: must(auth.ParsePassword("wrongPassword")),
		})
		if !errors.Is(err, auth.ErrBadPassword) {
			t.Fatalf("expected error %v, got %v", auth.ErrBadPassword, err)
		}
	})

	t.Run("fail, store fails", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		deps := testerr.NewFailingDeps(testerr.Err, 1)
		st.store.dep = &deps[0]

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: reg.Password,
		})
		if !errors.Is(err, testerr.Err) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
		}
	})
}

func Test_Service_PasswordReset(t *testing.T) {
	t.Run("ok, full reset flow", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		err := st.svc.RequestPasswordReset(context.Background(), reg.Email)
		if err != nil {
			t.Fatalf("failed to request reset: %v", err)
		}

		st.svc.Wait()
		st.errList.assertNoError(t)

		resetToken := st.lastEmailToken()

		if err := st.svc.VerifyResetToken(context.Background(), resetToken); err != nil {
			t.Fatalf("failed to verify reset token: %v", err)
		}

		newPwd := must(auth.ParsePassword("evenStrongerPassword2"))
		if err := st.svc.ResetPassword(context.Background(), resetToken, newPwd); err != nil {
			t.Fatalf("failed to reset password: %v", err)
		}

		// Old password no longer works, new one does.
		_, err = st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: reg.Password,
		})
		if !errors.Is(err, auth.ErrBadPassword) {
			t.Fatalf("expected error %v, got %v", auth.ErrBadPassword, err)
		}

		_, err = st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    reg.Email,
			Password: newPwd,
		})
		if err != nil {
			t.Fatalf("failed to authenticate with new password: %v", err)
		}
	})

	t.Run("ok, reset email uses expected template", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		err := st.svc.RequestPasswordReset(context.Background(), reg.Email)
		if err != nil {
			t.Fatalf("failed to request reset: %v", err)
		}

		st.svc.Wait()
		st.errList.assertNoError(t)

		last := st.emailer.emails[len(st.emailer.emails)-1]
		if last.template != "olvide-password" {
			t.Fatalf("unexpected template: %s", last.template)
		}
	})

	t.Run("fail, request for unknown email", func(t *testing.T) {
		st := newServiceTest(t)

		err := st.svc.RequestPasswordReset(context.Background(), must(email.ParseAddress("nadie@example.com")))
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}

		st.svc.Wait()

		if len(st.emailer.emails) != 0 {
			t.Fatalf("expected 0 emails, got %d", len(st.emailer.emails))
		}
	})

	t.Run("fail, new request invalidates previous token", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		if err := st.svc.RequestPasswordReset(context.Background(), reg.Email); err != nil {
			t.Fatalf("failed to request reset: %v", err)
		}
		st.svc.Wait()
		first := st.lastEmailToken()

		if err := st.svc.RequestPasswordReset(context.Background(), reg.Email); err != nil {
			t.Fatalf("failed to request reset: %v", err)
		}
		st.svc.Wait()

		err := st.svc.VerifyResetToken(context.Background(), first)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}
	})

	t.Run("fail, token already consumed", func(t *testing.T) {
		st := newServiceTest(t)
		reg, token := st.register()
		st.confirm(token)

		if err := st.svc.RequestPasswordReset(context.Background(), reg.Email); err != nil {
			t.Fatalf("failed to request reset: %v", err)
		}
		st.svc.Wait()
		resetToken := st.lastEmailToken()

		newPwd := must(auth.ParsePassword("evenStrongerPassword2"))
		if err := st.svc.ResetPassword(context.Background(), resetToken, newPwd); err != nil {
			t.Fatalf("failed to reset password: %v", err)
		}

		err := st.svc.ResetPassword(context.Background(), resetToken, newPwd)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}
	})

	t.Run("fail, verify unknown token", func(t *testing.T) {
		st := newServiceTest(t)

		other := must(krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132"))

		err := st.svc.VerifyResetToken(context.Background(), other)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v", errorz.ErrNotFound, err)
		}
	})
}

type svcTest struct {
	t       *testing.T
	svc     *auth.Service
	store   *testStore
	emailer *testEmailer
	errList *errList
}

func newServiceTest(t *testing.T) *svcTest {
	testDB := testdb.RunWhile(t, true)
	test := &svcTest{
		t: t,
		store: &testStore{
			store: db.New(testDB, testDB),
			dep:   &testerr.FailingDep{FailAtIndex: -1}, // never fails.
		},
		errList: &errList{
			mutex: &sync.Mutex{},
			errs:  make([]error, 0),
		},
		emailer: &testEmailer{},
	}

	cfg := auth.ServiceConfig{
		WorkerTimeout: time.Second,
		BaseURL:       must(url.Parse("https://bienesraices.example.com")),
	}

	svc, err := auth.NewService(test.store, test.emailer, test.errList.AppendErr, cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	test.svc = svc

	return test
}

func (st *svcTest) register() (auth.Registration, krypto.Token) {
	reg := auth.Registration{
		Name:     "Juan",
		Email:    must(email.ParseAddress("juan@example.com")),
		Password: must(auth.ParsePassword("reallyStrongPassword1")),
	}
	err := st.svc.Register(context.Background(), reg)
	if err != nil {
		st.t.Fatalf("failed to register: %v", err)
	}

	// Wait for the email worker to finish.
	st.svc.Wait()
	st.errList.assertNoError(st.t)

	return reg, st.lastEmailToken()
}

func (st *svcTest) confirm(token krypto.Token) {
	err := st.svc.Confirm(context.Background(), token)
	if err != nil {
		st.t.Fatalf("failed to confirm: %v", err)
	}
}

// lastEmailToken extracts the token from the link in the last sent email.
func (st *svcTest) lastEmailToken() krypto.Token {
	st.t.Helper()

	if len(st.emailer.emails) == 0 {
		st.t.Fatalf("no emails were sent")
	}

	data, ok := st.emailer.emails[len(st.emailer.emails)-1].data.(auth.LinkEmail)
	if !ok {
		st.t.Fatalf("unexpected data type: %T", st.emailer.emails[len(st.emailer.emails)-1].data)
	}

	u, err := url.Parse(data.URL)
	if err != nil {
		st.t.Fatalf("failed to parse link: %v", err)
	}

	return must(krypto.ParseToken(path.Base(u.Path)))
}

type errList struct {
	mutex *sync.Mutex
	errs  []error
}

func (e *errList) AppendErr(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.errs = append(e.errs, err)
}

func (e *errList) assertNoError(t *testing.T) {
	t.Helper()

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if len(e.errs) > 0 {
		t.Fatalf("unexpected errors: %v", e.errs)
	}
}

func (e *errList) assertErrorIs(t *testing.T, err error) {
	t.Helper()

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if len(e.errs) != 1 || !errors.Is(e.errs[0], err) {
		t.Fatalf("expected error %v, got %v via errors.Is()", err, e.errs)
	}
}

// testStore wraps a real store but uses a testerr.FailingDep to
// possibly fail on certain method calls.
type testStore struct {
	store auth.Store
	dep   *testerr.FailingDep
}

func (f *testStore) BeginTx(ctx context.Context) (auth.Tx, error) {
	return testerr.MaybeFail(f.dep, func() (auth.Tx, error) {
		realTx, err := f.store.BeginTx(ctx)
		return &testTx{
			store: f,
			tx:    realTx,
		}, err
	})
}

func (f *testStore) FindAccounts(ctx context.Context, filter *auth.AccountFilter) ([]auth.Account, error) {
	return testerr.MaybeFail(f.dep, func() ([]auth.Account, error) {
		return f.store.FindAccounts(ctx, filter)
	})
}

type testTx struct {
	store *testStore
	tx    auth.Tx
}

func (tx *testTx) Commit() error {
	return testerr.MaybeFailErrFunc(tx.store.dep, func() error {
		return tx.tx.Commit()
	})
}

func (tx *testTx) Rollback() error {
	// Always let rollbacks through, the tests assert on the primary error.
	return tx.tx.Rollback()
}

func (tx *testTx) CreateAccount(a *auth.Account) error {
	return testerr.MaybeFailErrFunc(tx.store.dep, func() error {
		return tx.tx.CreateAccount(a)
	})
}

func (tx *testTx) UpdateAccount(a *auth.Account) error {
	return testerr.MaybeFailErrFunc(tx.store.dep, func() error {
		return tx.tx.UpdateAccount(a)
	})
}

func (tx *testTx) FindAccounts(filter *auth.AccountFilter) ([]auth.Account, error) {
	return testerr.MaybeFail(tx.store.dep, func() ([]auth.Account, error) {
		return tx.tx.FindAccounts(filter)
	})
}

func (tx *testTx) RedeemConfirmToken(token krypto.Token, now time.Time) (auth.Account, error) {
	return testerr.MaybeFail(tx.store.dep, func() (auth.Account, error) {
		return tx.tx.RedeemConfirmToken(token, now)
	})
}

func (tx *testTx) RedeemResetToken(token krypto.Token, hash krypto.Argon2Hash, now time.Time) (auth.Account, error) {
	return testerr.MaybeFail(tx.store.dep, func() (auth.Account, error) {
		return tx.tx.RedeemResetToken(token, hash, now)
	})
}

type sendEmail struct {
	template  string
	recipient email.Address
	data      any
}

type testEmailer struct {
	mutex   sync.Mutex
	emails  []sendEmail
	testErr error
}

func (e *testEmailer) Send(_ context.Context, template string, to email.Address, data any) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.emails = append(e.emails, sendEmail{
		template:  template,
		recipient: to,
		data:      data,
	})

	return e.testErr
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
