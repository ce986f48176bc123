package handlers

import (
	"cardiopredict/internal/auth"
	"cardiopredict/internal/chat"
	"cardiopredict/internal/middleware"
	"cardiopredict/internal/prediction"
	"cardiopredict/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB            *gorm.DB
	Tokens        *auth.Service
	Users         repository.UserRepository
	Analyses      repository.AnalysisRepository
	Patients      repository.PatientRepository
	Prediction    *prediction.Service
	Questionnaire *prediction.QuestionnaireService
	Chat          *chat.Service
	Objects       ObjectStore
	Log           *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", Health(d.DB))

	public := r.Group("/api/auth")
	{
		public.POST("/register", Register(d.Users, d.Tokens, d.Log))
		public.POST("/login", Login(d.Users, d.Tokens, d.Log))
		public.POST("/logout", Logout)
	}

	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.Tokens))
	{
		protected.GET("/auth/me", GetProfile(d.Users))

		protected.POST("/predict", Predict(d.Prediction))

		protected.GET("/analysis/history", GetHistory(d.Analyses, d.Log))
		protected.GET("/analysis/stats", GetStats(d.Analyses, d.Log))
		protected.GET("/analysis/:id", GetAnalysis(d.Analyses, d.Objects, d.Log))
		protected.DELETE("/analysis/:id", DeleteAnalysis(d.Analyses, d.Objects, d.Log))
		protected.PUT("/analysis/:id/feedback", UpdateFeedback(d.Analyses, d.Log))

		protected.POST("/chat/session/start", StartChat(d.Chat, d.Log))
		protected.POST("/chat/message", SendMessage(d.Chat, d.Log))
		protected.GET("/chat/session/:sessionId", GetChatSession(d.Chat, d.Log))
		protected.PUT("/chat/session/:sessionId/end", EndChatSession(d.Chat, d.Log))
		protected.GET("/chat/sessions", ListChatSessions(d.Chat, d.Log))
		protected.DELETE("/chat/sessions/:sessionId", DeleteChatSession(d.Chat, d.Log))

		protected.POST("/patients", CreatePatient(d.Patients, d.Log))
		protected.GET("/patients", ListPatients(d.Patients, d.Log))
		protected.POST("/patients/analyze", AnalyzePatient(d.Questionnaire, d.Log))
		protected.GET("/patients/history", PatientHistory(d.Patients, d.Analyses, d.Log))
		protected.GET("/patients/:id", GetPatient(d.Patients, d.Log))
	}
}
