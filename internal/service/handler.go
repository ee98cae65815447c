package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/middleware"
)

// HandlerOptions returns the options every service handler is built with:
// the JSON codec, authentication and request logging. Procedures in public
// are reachable without a token.
func HandlerOptions(jwtManager *auth.JWTManager, members middleware.MemberLookup, logger *slog.Logger, public ...string) []connect.HandlerOption {
	return []connect.HandlerOption{
		Codec(),
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager, members, public...),
			middleware.LoggingInterceptor(logger),
		),
	}
}

// PublicProcedures lists the procedures that do not require a session.
func PublicProcedures() []string {
	return []string{CreateAccountProcedure, LoginProcedure}
}

// identity is the verified caller of a request.
type identity struct {
	MemberID int64
	GroupID  int64
}

func identityFrom(ctx context.Context) (identity, error) {
	id := identity{MemberID: middleware.GetMemberID(ctx), GroupID: middleware.GetGroupID(ctx)}
	if id.MemberID == 0 || id.GroupID == 0 {
		return id, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return id, nil
}

// unary builds a Connect handler for an authenticated procedure. The request
// is validated before fn runs and domain errors are mapped to Connect codes.
func unary[Req, Res any](procedure string, fn func(context.Context, identity, *Req) (*Res, error), opts ...connect.HandlerOption) http.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			caller, err := identityFrom(ctx)
			if err != nil {
				return nil, err
			}
			if err := validateRequest(req.Msg); err != nil {
				return nil, toConnectError(err)
			}

			res, err := fn(ctx, caller, req.Msg)
			if err != nil {
				return nil, toConnectError(err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
}
