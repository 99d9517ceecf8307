package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/artcontest/judging-system/handlers"
	"github.com/artcontest/judging-system/middleware"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Judge     *handlers.JudgeHandler
	Admin     *handlers.AdminHandler
	Entry     *handlers.EntryHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, auth *middleware.Auth, frontendOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(auth.Authenticate)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/generate-otp", h.Auth.GenerateOTP)
			r.Post("/verify-otp", h.Auth.VerifyOTP)
			r.Get("/callback", h.Auth.MagicLinkCallback)
			r.Post("/reset-password", h.Auth.ResetPassword)
			r.Get("/session", h.Auth.Session)
		})

		// Public reference data.
		r.Get("/contests", h.Entry.ListContests)
		r.Get("/age-categories", h.Entry.ListAgeCategories)
		r.Post("/judges/request-invitation", h.Judge.RequestInvitation)

		r.Route("/entries", func(r chi.Router) {
			r.With(auth.RequireAdmin).Post("/", h.Entry.Create)
			r.With(auth.RequireAdmin).Delete("/{entryID}", h.Entry.Delete)
			r.With(auth.RequireAdminOrActiveJudge).Get("/", h.Entry.List)
			r.With(auth.RequireAdminOrActiveJudge).Get("/{entryID}", h.Entry.Get)
		})

		// Pending judges may only acknowledge the welcome screen.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePendingJudge)
			r.Post("/judges/welcome-ack", h.Judge.WelcomeAck)
		})

		r.Route("/judge", func(r chi.Router) {
			r.Use(auth.RequireActiveJudge)
			r.Get("/entries", h.Judge.Entries)
			r.Get("/scores", h.Judge.Scores)
			r.Post("/scores", h.Judge.SubmitScore)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Route("/judges", func(r chi.Router) {
				r.Get("/", h.Admin.ListJudges)
				r.Post("/invite", h.Admin.InviteJudge)
				r.Post("/resend-invitation", h.Admin.ResendInvitation)
				r.Post("/delete", h.Admin.DeleteJudge)
				r.Post("/status", h.Admin.SetJudgeStatus)
			})

			r.Get("/users", h.Admin.ListUsers)
			r.Post("/users/update-role", h.Admin.UpdateUserRole)
			r.Get("/summary", h.Admin.Summary)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/ws/admin/scores/{contestID}", h.WebSocket.ScoreFeed)
	})

	return r
}
