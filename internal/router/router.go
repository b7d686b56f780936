package router

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"coinlecture/docs"
	"coinlecture/internal/auth"
	"coinlecture/internal/config"
	"coinlecture/internal/handler"
	"coinlecture/internal/model"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth  *handler.AuthHandler
	Books *handler.BookHandler
	Users *handler.UserHandler
	Loans *handler.LoanHandler
	Stats *handler.StatsHandler
	Seed  *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.Validator = NewValidator()

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/images/books", cfg.UploadDir)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.GET("/auth/verify/:token", h.Auth.VerifyEmail)
	api.POST("/auth/resend-verification", h.Auth.ResendVerification)
	api.GET("/books", h.Books.ListBooks)
	api.GET("/books/genres", h.Books.Genres)
	api.GET("/books/:id", h.Books.GetBook)

	// Secured routes (require a valid, non revoked access token)
	secured := api.Group("",
		auth.JWTMiddleware(jwtService.Secret()),
		auth.RequireAccessToken(tokenStore),
	)
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)
	secured.GET("/me/loans", h.Loans.MyLoans)
	secured.POST("/loans", h.Loans.CreateLoan)
	// Owner or admin, checked by the loan service
	secured.GET("/loans/:id", h.Loans.GetLoan)
	secured.GET("/loans/:id/history", h.Loans.History)

	admin := secured.Group("", auth.RequireRole(model.RoleAdmin))
	admin.POST("/books", h.Books.CreateBook)
	admin.POST("/books/upload", h.Books.UploadBook)
	admin.PUT("/books/:id", h.Books.UpdateBook)
	admin.DELETE("/books/:id", h.Books.DeleteBook)

	admin.GET("/users", h.Users.ListUsers)
	admin.POST("/users", h.Users.CreateUser)
	admin.GET("/users/:id", h.Users.GetUser)
	admin.PUT("/users/:id", h.Users.UpdateUser)
	admin.DELETE("/users/:id", h.Users.DeleteUser)

	admin.GET("/loans", h.Loans.ListLoans)
	admin.PUT("/loans/:id", h.Loans.UpdateLoan)
	admin.DELETE("/loans/:id", h.Loans.DeleteLoan)
	admin.POST("/loans/:id/decision", h.Loans.Decide)
	admin.POST("/loans/:id/return", h.Loans.Return)

	admin.GET("/stats", h.Stats.GetStats)
	admin.POST("/seed/books", h.Seed.SeedBooks)
}

// RequestLogger logs one line per request through zap.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Error != nil:
				log.Warn("request", append(fields, zap.Error(v.Error))...)
			default:
				log.Info("request", fields...)
			}
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed on the echo instance.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
