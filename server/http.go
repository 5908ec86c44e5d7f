// Package server exposes the assistant over HTTP: a chat endpoint plus
// the static conversation chrome (welcome text and quick actions).
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/witchaya/calbot/agent/orchestrator"
	statex "github.com/witchaya/calbot/agent/state"
)

const welcomeMessage = "Hello! I'm your Cal.com assistant. I can help you with:\n\n" +
	"1. Booking new events\n" +
	"2. Listing your scheduled events\n" +
	"3. Canceling events\n\n" +
	"How can I assist you today?"

// TurnHandler is the conversational engine behind the chat endpoint.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID string, text string) (string, error)
}

type Config struct {
	Port int    `envconfig:"PORT" default:"8080"`
	Mode string `envconfig:"MODE" default:"release"`
}

type Server struct {
	engine *gin.Engine
	turns  TurnHandler
	port   int
}

func New(cfg Config, turns TurnHandler) (*Server, error) {
	if turns == nil {
		return nil, errors.New("turn handler is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("port %d is invalid", cfg.Port)
	}

	gin.SetMode(cfg.Mode)

	srv := &Server{
		engine: gin.New(),
		turns:  turns,
		port:   cfg.Port,
	}
	srv.engine.Use(gin.Recovery(), requestID())
	srv.registerRoutes()
	return srv, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/api/welcome", s.welcome)
	s.engine.GET("/api/quick-actions", s.quickActions)
	s.engine.POST("/api/chat", s.chat)
}

func (s *Server) Run() error {
	return s.engine.Run(fmt.Sprintf(":%d", s.port))
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "calbot",
	})
}

func (s *Server) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// QuickAction is a canned entry point into the conversation. Prompt
// actions feed the assistant; message actions reply with static text.
type QuickAction struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
	Prompt  string `json:"prompt,omitempty"`
	Message string `json:"message,omitempty"`
}

var quickActions = []QuickAction{
	{
		Name:    "book_event",
		Label:   "Book a new event",
		Tooltip: "Create a new calendar event",
		Message: "Let's book a new event. Please provide the following information:\n\n" +
			"1. The event type ID\n" +
			"2. Date and time for the meeting\n" +
			"3. Your name\n" +
			"4. Your email address",
	},
	{
		Name:    "view_events",
		Label:   "View my events",
		Tooltip: "Show all scheduled events",
		Prompt:  "help me view my scheduled events",
	},
	{
		Name:    "cancel_event",
		Label:   "Cancel an event",
		Tooltip: "Cancel an existing event",
		Prompt:  "list all my scheduled events with their UIDs for me to select one to cancel",
	},
	{
		Name:    "reschedule_event",
		Label:   "Reschedule an event",
		Tooltip: "Reschedule an existing event",
		Prompt:  "list all my scheduled events with their UIDs for me to select one to reschedule",
	},
}

func (s *Server) quickActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": quickActions})
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "default_user"
	}

	reply, err := s.turns.HandleTurn(c.Request.Context(), userID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, orchestratorx.ErrInvalidMessage) || errors.Is(err, statex.ErrInvalidUser) {
			status = http.StatusBadRequest
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("user_id", userID).
			Msg("chat turn failed")
		c.JSON(status, gin.H{"error": fmt.Sprintf("An error occurred: %s", err)})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}
