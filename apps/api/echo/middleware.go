package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
)

// sessionMiddleware loads the session named by the token claims and signs it in again
// with the latest version of its user.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		sess, err := s.Sessions.Get(claims.SessionID)
		if err != nil {
			if errors.Cause(err) == session.ErrNotFound {
				return errSessionExpired
			}
			return errors.Wrap(err, "getting session")
		}

		usr, err := s.UserSvc.Current(ctx.Request().Context(), claims.Subject)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				s.Sessions.End(sess.ID)
				return errSessionExpired
			}
			return errors.Wrap(err, "getting current user")
		}
		if !usr.IsActive() {
			return user.ErrPendingApproval
		}
		sess.SignIn(usr)

		ctx.Set(contextSessionKey, sess)
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// roleMiddleware restricts a route to the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// announcementGuard blocks students until they read the oldest announcement of their class.
func (s *Server) announcementGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if err := s.DashboardSvc.Guard(usr); err != nil {
			return err
		}
		return next(ctx)
	}
}
