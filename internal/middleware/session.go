package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/database"
	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// SessionKey is the echo context key of the request's database session.
const SessionKey = "db_session"

// SessionMiddleware gives each request that needs the database its own
// session.
type SessionMiddleware struct {
	server *server.Server
}

func NewSessionMiddleware(s *server.Server) *SessionMiddleware {
	return &SessionMiddleware{server: s}
}

// Session acquires a session before the handler runs and releases it when
// the handler returns, fails or panics. Acquisition is not retried.
func (sm *SessionMiddleware) Session() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := sm.server.Sessions.Acquire(c.Request().Context())
			if err != nil {
				return err
			}
			defer sess.Release()

			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}

// GetSession returns the session acquired for this request. Using it on a
// route without the Session middleware is a programming error and yields a
// 500.
func GetSession(c echo.Context) (database.Session, error) {
	if sess, ok := c.Get(SessionKey).(database.Session); ok {
		return sess, nil
	}

	GetLogger(c).Error().Str("route", c.Path()).Msg("no database session on request context")
	return nil, errs.NewInternalServerError()
}
