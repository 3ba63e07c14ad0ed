package api

import (
	"github.com/gorilla/mux"

	"github.com/scamwatch/scamwatch-backend/internal/api/recovery"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// NewRouter wires all HTTP routes to handlers.
func NewRouter(chat ChatService, reports ReportService, st store.Store) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	// Conversational intake
	chatHandler := NewChatHandler(chat)
	root.HandleFunc("/api/chat", chatHandler.ProcessChat).Methods("POST")
	root.HandleFunc("/api/conversations/{conversationId}/end", chatHandler.EndConversation).Methods("POST")

	// Conversation history
	convHandler := NewConversationHandler(st)
	root.HandleFunc("/api/conversations/{conversationId}/messages", convHandler.ListMessages).Methods("GET")

	// Scam reports
	reportHandler := NewReportHandler(reports)
	root.HandleFunc("/api/reports", reportHandler.CreateReport).Methods("POST")
	// register before {reportId} so "search" is not swallowed by the id route
	root.HandleFunc("/api/reports/search", reportHandler.SearchReports).Methods("POST")
	root.HandleFunc("/api/reports/{reportId:[0-9]+}", reportHandler.GetReport).Methods("GET")
	root.HandleFunc("/api/reports/{reportId:[0-9]+}", reportHandler.UpdateReport).Methods("PUT")

	// Health
	healthHandler := NewHealthHandler()
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	return root
}
