package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/account"
	"github.com/folkout/folkout/internal/middleware"
)

const (
	AccountServiceName = "folkout.v1.AccountService"

	CreateAccountProcedure = "/" + AccountServiceName + "/CreateAccount"
	LoginProcedure         = "/" + AccountServiceName + "/Login"
	MeProcedure            = "/" + AccountServiceName + "/Me"
	DeleteAccountProcedure = "/" + AccountServiceName + "/DeleteAccount"
)

// AccountService exposes account creation and login over Connect.
type AccountService struct {
	accounts *account.Service

	// secureCookie marks the session cookie Secure.
	secureCookie bool
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts *account.Service, secureCookie bool) *AccountService {
	return &AccountService{accounts: accounts, secureCookie: secureCookie}
}

// Register mounts the service's procedures on mux.
func (s *AccountService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(CreateAccountProcedure, connect.NewUnaryHandler(CreateAccountProcedure, s.CreateAccount, opts...))
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, s.Login, opts...))
	mux.Handle(MeProcedure, unary(MeProcedure, s.Me, opts...))
	mux.Handle(DeleteAccountProcedure, connect.NewUnaryHandler(DeleteAccountProcedure, s.DeleteAccount, opts...))
}

// CreateAccount registers an anonymous member. The secret key in the
// response is shown exactly once.
func (s *AccountService) CreateAccount(ctx context.Context, _ *connect.Request[CreateAccountRequest]) (*connect.Response[CreateAccountResponse], error) {
	acct, err := s.accounts.CreateAccount(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&CreateAccountResponse{
		MemberID:  acct.Member.ID,
		GroupID:   acct.Member.GroupID,
		Nickname:  acct.Member.Nickname,
		SecretKey: acct.SecretKey,
	}), nil
}

// Login exchanges a secret key for a token. The token is returned in the
// body and set as a cookie for browser clients.
func (s *AccountService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, toConnectError(err)
	}

	session, err := s.accounts.Login(ctx, req.Msg.SecretKey)
	if err != nil {
		return nil, toConnectError(err)
	}

	res := connect.NewResponse(&LoginResponse{
		Member:     toMember(session.Member),
		Token:      session.Token,
		ExpiresIn:  int64(session.TTL.Seconds()),
		FirstLogin: session.FirstLogin,
	})
	cookie := &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	res.Header().Add("Set-Cookie", cookie.String())
	return res, nil
}

// Me returns the caller's profile.
func (s *AccountService) Me(ctx context.Context, caller identity, _ *MeRequest) (*Member, error) {
	m, err := s.accounts.Me(ctx, caller.MemberID)
	if err != nil {
		return nil, err
	}
	member := toMember(m)
	return &member, nil
}

// DeleteAccount removes the caller and clears the session cookie.
func (s *AccountService) DeleteAccount(ctx context.Context, _ *connect.Request[DeleteAccountRequest]) (*connect.Response[DeleteAccountResponse], error) {
	caller, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.DeleteAccount(ctx, caller.MemberID); err != nil {
		return nil, toConnectError(err)
	}

	res := connect.NewResponse(&DeleteAccountResponse{})
	cookie := &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	res.Header().Add("Set-Cookie", cookie.String())
	return res, nil
}
