package httpapi

import (
	"net/http"
	"strings"
	"time"

	"memberhub-backend-go/internal/config"
	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/services"
	"memberhub-backend-go/internal/storage"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
)

type Server struct {
	Store        *db.Store
	Config       config.Config
	Tokens       services.TokenService
	Storage      storage.Backend
	Notifier     services.Notifier
	MetricsHub   *services.MetricsHub
	Logger       *charmlog.Logger
	LimiterStore limiter.Store
}

func NewServer(store *db.Store, cfg config.Config, backend storage.Backend, notifier services.Notifier, hub *services.MetricsHub, logger *charmlog.Logger) *Server {
	tokens := services.TokenService{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    time.Duration(cfg.TokenTTLHours) * time.Hour,
	}
	if logger == nil {
		logger = charmlog.Default()
	}
	if notifier == nil {
		notifier = services.LogNotifier{Logger: logger}
	}
	if hub == nil {
		hub = services.NewMetricsHub()
	}
	return &Server{
		Store:      store,
		Config:     cfg,
		Tokens:     tokens,
		Storage:    backend,
		Notifier:   notifier,
		MetricsHub: hub,
		Logger:     logger,
	}
}

// Router builds the full handler tree. It fails only on a malformed rate.
func (s *Server) Router() (http.Handler, error) {
	if s.LimiterStore == nil {
		var err error
		if s.LimiterStore, err = NewLimiterStore(nil, "memberhub"); err != nil {
			return nil, err
		}
	}
	globalLimit, err := RateLimit("global", s.Config.RateLimit, s.LimiterStore, s.Config.TrustProxy)
	if err != nil {
		return nil, err
	}
	authLimit, err := RateLimit("auth", s.Config.AuthRateLimit, s.LimiterStore, s.Config.TrustProxy)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(s.Recoverer)
	r.Use(RequestLogger(s.Logger))
	r.Use(SecureHeaders(s.Config.IsProduction()))
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	optional := OptionalAuth(s.Tokens)
	require := RequireAuth(s.Tokens)

	r.Route("/api", func(api chi.Router) {
		api.Use(globalLimit)
		api.Get("/health", s.Health)
		api.With(optional).Get("/search", s.Search)

		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimit)
			auth.Post("/register", s.Register)
			auth.Post("/login", s.Login)
			auth.Post("/forgot-password", s.ForgotPassword)
			auth.Post("/reset-password", s.ResetPassword)
			auth.With(require).Get("/me", s.Me)
		})

		api.Route("/me", func(me chi.Router) {
			me.Use(require)
			me.Get("/", s.Me)
			me.Put("/profile", s.UpdateProfile)
			me.Put("/password", s.ChangePassword)
			me.Delete("/", s.DeleteAccount)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(require)
			admin.Use(AdminOnly)
			admin.Get("/stats", s.AdminStats)
			admin.Get("/metrics/history", s.MetricsHistory)
			admin.Get("/resources", s.AdminListResources)
			admin.Get("/playbooks", s.AdminListPlaybooks)
			admin.Get("/events", s.AdminListEvents)
			admin.Get("/team", s.AdminListTeam)
			admin.Route("/users", func(users chi.Router) {
				users.Get("/", s.ListUsers)
				users.Get("/{userId}", s.GetUser)
				users.Put("/{userId}/role", s.SetUserRole)
				users.Put("/{userId}/approval", s.SetUserApproval)
				users.Put("/{userId}/ban", s.SetUserBan)
				users.Delete("/{userId}", s.DeleteUser)
			})
		})

		api.Route("/categories", func(categories chi.Router) {
			categories.Get("/", s.ListCategories)
			categories.Group(func(admin chi.Router) {
				admin.Use(require, AdminOnly)
				admin.Post("/", s.CreateCategory)
				admin.Put("/{categoryId}", s.UpdateCategory)
				admin.Delete("/{categoryId}", s.DeleteCategory)
			})
		})

		api.Route("/resources", func(resources chi.Router) {
			resources.With(optional).Get("/", s.ListResources)
			resources.With(optional).Get("/{slug}", s.ResourceDetail)
			resources.Group(func(admin chi.Router) {
				admin.Use(require, AdminOnly)
				admin.Post("/", s.CreateResource)
				admin.Put("/{resourceId}", s.UpdateResource)
				admin.Delete("/{resourceId}", s.DeleteResource)
			})
		})

		api.Route("/playbooks", func(playbooks chi.Router) {
			playbooks.With(optional).Get("/", s.ListPlaybooks)
			playbooks.With(optional).Get("/{slug}", s.PlaybookDetail)
			playbooks.Group(func(admin chi.Router) {
				admin.Use(require, AdminOnly)
				admin.Post("/", s.CreatePlaybook)
				admin.Put("/{playbookId}", s.UpdatePlaybook)
				admin.Delete("/{playbookId}", s.DeletePlaybook)
			})
		})

		api.Route("/team", func(team chi.Router) {
			team.Get("/", s.ListTeam)
			team.Group(func(admin chi.Router) {
				admin.Use(require, AdminOnly)
				admin.Post("/", s.CreateTeamMember)
				admin.Put("/{memberId}", s.UpdateTeamMember)
				admin.Delete("/{memberId}", s.DeleteTeamMember)
			})
		})

		api.Route("/events", func(events chi.Router) {
			events.With(optional).Get("/", s.ListEvents)
			events.With(optional).Get("/{eventId}", s.EventDetail)
			events.Group(func(admin chi.Router) {
				admin.Use(require, AdminOnly)
				admin.Post("/", s.CreateEvent)
				admin.Put("/{eventId}", s.UpdateEvent)
				admin.Delete("/{eventId}", s.DeleteEvent)
			})
		})

		api.Route("/questions", func(questions chi.Router) {
			questions.With(optional).Get("/", s.ListQuestions)
			questions.With(optional).Get("/{questionId}", s.QuestionDetail)
			questions.With(optional).Post("/", s.CreateQuestion)
			questions.With(require).Post("/{questionId}/answers", s.CreateAnswer)
			questions.With(require, AdminOnly).Put("/{questionId}/status", s.SetQuestionStatus)
			questions.With(require).Delete("/{questionId}", s.DeleteQuestion)
		})

		api.Route("/answers", func(answers chi.Router) {
			answers.Use(require)
			answers.Put("/{answerId}/accept", s.AcceptAnswer)
			answers.Delete("/{answerId}", s.DeleteAnswer)
		})

		api.Route("/uploads", func(uploads chi.Router) {
			uploads.Use(require)
			uploads.Post("/", s.Upload)
			uploads.Delete("/{uploadId}", s.DeleteUploadHandler)
		})
	})

	if local, ok := s.Storage.(*storage.Local); ok && strings.HasPrefix(s.Config.PublicUploadBaseURL, "/") {
		prefix := strings.TrimRight(s.Config.PublicUploadBaseURL, "/")
		r.Get(prefix+"/*", s.ServeFile(local))
	}
	r.Get("/ws/metrics", s.MetricsSocket)
	return r, nil
}
