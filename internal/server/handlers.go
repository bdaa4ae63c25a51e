package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
	"github.com/theakshaypant/gaps/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// calculateRequest overrides the configured window per call. Nil fields keep the defaults.
type calculateRequest struct {
	Username     string  `json:"username"`
	DayStartHour *int    `json:"dayStartHour"`
	DayEndHour   *int    `json:"dayEndHour"`
	HorizonDays  *int    `json:"horizonDays"`
	Timezone     *string `json:"timezone"`
}

type groupRequest struct {
	GroupName string `json:"groupName"`
}

type memberRequest struct {
	Username string `json:"username"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.cfg.Storage.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully"})
	case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrUsernameTaken), errors.Is(err, store.ErrMissingField):
		badRequest(c, err)
	default:
		s.internalError(c, "register", err)
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := s.cfg.Storage.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, "login", err)
		return
	}

	busy, err := s.fetchBusy(c)
	if err != nil {
		s.internalError(c, "fetch events", err)
		return
	}

	if err := s.cfg.Storage.AppendEvents(ctx, user.Username, busy); err != nil {
		s.internalError(c, "store events", err)
		return
	}

	s.log.Info("user logged in", zap.String("user", user.Username), zap.Int("events", len(busy)))
	c.JSON(http.StatusOK, gin.H{"message": "login successful"})
}

func (s *Server) events(c *gin.Context) {
	busy, err := s.fetchBusy(c)
	if err != nil {
		s.internalError(c, "fetch events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": busy})
}

func (s *Server) calculateFreeTime(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Username == "" {
		badRequest(c, store.ErrMissingField)
		return
	}

	ctx := c.Request.Context()
	user, err := s.cfg.Storage.User(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.internalError(c, "load user", err)
		return
	}

	window := s.window(req)
	opts := []freetime.Option{
		freetime.WithSkipHandler(func(e *freetime.MalformedEventError) {
			s.metrics.skipped.Inc()
			s.log.Warn("skipping busy event", zap.String("user", user.Username), zap.Error(e))
		}),
	}
	if s.cfg.BoundsDuration {
		opts = append(opts, freetime.WithBoundsDuration())
	}

	free, err := freetime.Compute(user.Events, window, opts...)
	if err != nil {
		s.metrics.calculations.WithLabelValues("invalid_window").Inc()
		badRequest(c, err)
		return
	}

	if err := s.cfg.Storage.SetFreeTime(ctx, user.Username, free); err != nil {
		s.metrics.calculations.WithLabelValues("error").Inc()
		s.internalError(c, "store free time", err)
		return
	}

	s.metrics.calculations.WithLabelValues("ok").Inc()
	s.metrics.freeMinutes.Observe(float64(freetime.Total(free)))
	c.JSON(http.StatusOK, gin.H{"freeTime": free})
}

func (s *Server) createGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.cfg.Storage.CreateGroup(c.Request.Context(), req.GroupName)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "group created successfully"})
	case errors.Is(err, store.ErrGroupNameRequired), errors.Is(err, store.ErrGroupExists):
		badRequest(c, err)
	default:
		s.internalError(c, "create group", err)
	}
}

func (s *Server) addGroupMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.cfg.Storage.AddGroupMember(c.Request.Context(), c.Param("groupName"), req.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "user added to group successfully"})
	case errors.Is(err, store.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
	case errors.Is(err, store.ErrMissingField):
		badRequest(c, err)
	default:
		s.internalError(c, "add group member", err)
	}
}

// fetchBusy pulls the provider's events over the default horizon starting now.
func (s *Server) fetchBusy(c *gin.Context) ([]freetime.BusyEvent, error) {
	now := s.cfg.Now()
	opts := core.DefaultFetchOptions(now, now.AddDate(0, 0, s.cfg.Window.HorizonDays))

	events, err := s.cfg.Provider.FetchEvents(c.Request.Context(), opts)
	if err != nil {
		return nil, err
	}
	return core.BusyEvents(events), nil
}

func (s *Server) window(req calculateRequest) freetime.PlanningWindow {
	d := s.cfg.Window
	w := freetime.PlanningWindow{
		Reference:    s.cfg.Now(),
		HorizonDays:  d.HorizonDays,
		DayStartHour: d.DayStartHour,
		DayEndHour:   d.DayEndHour,
		Timezone:     d.Timezone,
	}
	if req.DayStartHour != nil {
		w.DayStartHour = *req.DayStartHour
	}
	if req.DayEndHour != nil {
		w.DayEndHour = *req.DayEndHour
	}
	if req.HorizonDays != nil {
		w.HorizonDays = *req.HorizonDays
	}
	if req.Timezone != nil {
		w.Timezone = *req.Timezone
	}
	return w
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	s.log.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
