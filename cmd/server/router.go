package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soluna-labs/mirage-api/internal/api"
	apiMiddleware "github.com/soluna-labs/mirage-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userStore, app.jwtService, app.passwordVerifier)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	aigcHandler, err := api.NewAIGCHandler(app.aigcService)
	if err != nil {
		// Dependencies were validated during newApplication; this is a
		// programming error.
		panic(err)
	}
	publishHandler, err := api.NewPublishHandler(app.aigcService, app.publishService)
	if err != nil {
		panic(err)
	}
	chatHandler, err := api.NewChatHandler(app.chatService)
	if err != nil {
		panic(err)
	}

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", aigcHandler.CreateTask)
			r.Get("/tasks/active", aigcHandler.GetActiveTask)
			r.Get("/tasks/{taskID}", aigcHandler.GetTask)
			r.Patch("/tasks/{taskID}/basic-info", aigcHandler.SetBasicInfo)

			// Generation stage entry points
			r.Post("/tasks/{taskID}/cover", aigcHandler.RequestCover)
			r.Post("/tasks/{taskID}/videos", aigcHandler.RequestVideo)
			r.Post("/tasks/{taskID}/lyrics", aigcHandler.RequestLyrics)
			r.Post("/tasks/{taskID}/music", aigcHandler.RequestMusic)
			r.Post("/tasks/{taskID}/audios", aigcHandler.RequestAudio)

			r.Post("/tasks/{taskID}/publish", publishHandler.Publish)

			// Assistant chat
			r.Post("/chat/conversations", chatHandler.CreateConversation)
			r.Get("/chat/conversations", chatHandler.ListConversations)
			r.Get("/chat/conversations/{conversationID}/messages", chatHandler.GetMessages)
			r.Post("/chat/conversations/{conversationID}/messages", chatHandler.SendMessage)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
