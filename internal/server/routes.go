package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Account
	mux.HandleFunc("/api/account/register", s.app.AccountHandler.RegisterHandler)
	mux.HandleFunc("/api/account/login", s.app.AccountHandler.LoginHandler)
	mux.HandleFunc("/api/account/logout", s.app.AccountHandler.LogoutHandler)

	// API routes - Documents (authenticated)
	mux.HandleFunc("/api/pdf", s.requireAuth(s.app.PDFHandler.CollectionHandler)) // GET (list), POST (upload)
	mux.HandleFunc("/api/pdf/", s.requireAuth(s.app.PDFHandler.ItemHandler))      // GET /{id}, POST /{id}/parse, /{id}/select

	// API routes - Chat (authenticated)
	mux.HandleFunc("/api/chat/message", s.requireAuth(s.app.ChatHandler.MessageHandler))
	mux.HandleFunc("/api/chat/turn/", s.requireAuth(s.app.ChatHandler.TurnHandler))
	mux.HandleFunc("/api/chat/history", s.requireAuth(s.app.ChatHandler.HistoryHandler))

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
