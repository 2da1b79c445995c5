package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"careboard/internal/core"
	"careboard/internal/session"
	"careboard/pkg"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
	streamKeepAlive  = 15 * time.Second
)

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe or used
// as the handler of an http.Server.
type Server struct {
	Patients core.PatientSource
	Sessions *session.Registry
	Notifier *session.Notifier
	Logger   zerolog.Logger

	echo *echo.Echo
}

// NewServer constructs a Server with its routes, middleware and embedded
// HTML templates.
func NewServer(patients core.PatientSource, sessions *session.Registry, notifier *session.Notifier, logger zerolog.Logger) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{Patients: patients, Sessions: sessions, Notifier: notifier, Logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = r

	e.Use(Recovery(logger))
	e.Use(RequestID())
	e.Use(Logger(logger))
	e.Use(echomw.BodyLimit("64K"))

	s.RegisterRoutes(e)
	s.echo = e
	return s, nil
}

// RegisterRoutes wires every page and API endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/dashboard")
	})
	e.GET("/health", s.Health)

	// Pages
	e.GET("/dashboard", s.DashboardPage)
	e.GET("/chat/doctor", s.DoctorChatPage)
	e.GET("/chat/patient", s.PatientChatPage)

	api := e.Group("/api")
	api.GET("/patients", s.ListPatients)
	api.GET("/patients/:id", s.GetPatient)
	api.GET("/cancer-types", s.ListCancerTypes)
	api.GET("/dashboard/alerts", s.DashboardAlerts)

	api.POST("/doctor-chats", s.CreateDoctorChat)
	api.GET("/doctor-chats/:id", s.GetDoctorChat)
	api.POST("/doctor-chats/:id/messages", s.PostDoctorMessage)
	api.POST("/doctor-chats/:id/analysis", s.TriggerAnalysis)
	api.GET("/doctor-chats/:id/stream", s.StreamDoctorChat)
	api.DELETE("/doctor-chats/:id", s.CloseChat)

	api.POST("/patient-chats", s.CreatePatientChat)
	api.GET("/patient-chats/:id", s.GetPatientChat)
	api.POST("/patient-chats/:id/messages", s.PostPatientMessage)
	api.GET("/patient-chats/:id/stream", s.StreamPatientChat)
	api.DELETE("/patient-chats/:id", s.CloseChat)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Echo exposes the underlying echo instance for startup and shutdown.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// -- Dashboard --

type dashboardPage struct {
	Criteria    pkg.FilterCriteria
	CancerTypes []string
	Patients    []pkg.PatientRecord
	Stats       pkg.DashboardStats
}

// DashboardPage renders the filtered patient list.  Missing query values fall
// back to the default criteria (critical patients of any type).
func (s *Server) DashboardPage(c echo.Context) error {
	criteria, err := criteriaFromQuery(c, core.DefaultCriteria().Alert)
	if err != nil {
		return err
	}
	patients, err := s.Patients.Patients(c.Request().Context())
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}

	d := core.NewDashboard(patients)
	d.SetCriteria(criteria)
	return c.Render(http.StatusOK, "dashboard.html", dashboardPage{
		Criteria:    d.Criteria(),
		CancerTypes: d.CancerTypes(),
		Patients:    d.Visible(),
		Stats:       d.Stats(),
	})
}

// ListPatients returns a filtered, paginated patient list.  Unlike the page,
// the API does not restrict the alert status unless asked to.
func (s *Server) ListPatients(c echo.Context) error {
	criteria, err := criteriaFromQuery(c, pkg.AlertAll)
	if err != nil {
		return err
	}
	limit, offset := defaultPageLimit, 0
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).Int("offset", &offset).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit and offset must be integers")
	}
	if limit < 1 || limit > maxPageLimit {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
	}
	if offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
	}

	patients, err := s.Patients.Patients(c.Request().Context())
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	filtered := core.FilterPatients(patients, criteria)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  core.Paginate(filtered, limit, offset),
		"total": len(filtered),
	})
}

func (s *Server) GetPatient(c echo.Context) error {
	patients, err := s.Patients.Patients(c.Request().Context())
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	p, ok := core.PatientByID(patients, c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) ListCancerTypes(c echo.Context) error {
	patients, err := s.Patients.Patients(c.Request().Context())
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	return c.JSON(http.StatusOK, core.CancerTypes(patients))
}

func (s *Server) DashboardAlerts(c echo.Context) error {
	patients, err := s.Patients.Patients(c.Request().Context())
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	return c.JSON(http.StatusOK, core.Stats(patients))
}

// criteriaFromQuery reads name, type (or cancer_type) and alert.
func criteriaFromQuery(c echo.Context, defaultAlert pkg.AlertStatus) (pkg.FilterCriteria, error) {
	alert, err := core.ParseAlertSelector(c.QueryParam("alert"), defaultAlert)
	if err != nil {
		return pkg.FilterCriteria{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	name := c.QueryParam("name")
	if name == "" {
		name = c.QueryParam("q")
	}
	cancerType := c.QueryParam("type")
	if cancerType == "" {
		cancerType = c.QueryParam("cancer_type")
	}
	if cancerType == "" {
		cancerType = pkg.All
	}
	return pkg.FilterCriteria{Name: name, CancerType: cancerType, Alert: alert}, nil
}

// -- Chat pages --

type chatPage struct {
	APIBase    string
	SelfSender pkg.Sender
	State      pkg.ChatState
}

// DoctorChatPage opens a new doctor chat session and renders it.
func (s *Server) DoctorChatPage(c echo.Context) error {
	id, d := s.Sessions.NewDoctorChat()
	return c.Render(http.StatusOK, "doctor_chat.html", chatPage{
		APIBase:    "/api/doctor-chats/" + id,
		SelfSender: pkg.SenderDoctor,
		State:      d.State(id),
	})
}

// PatientChatPage opens a new patient chat session and renders it.
func (s *Server) PatientChatPage(c echo.Context) error {
	id, p := s.Sessions.NewPatientChat()
	return c.Render(http.StatusOK, "patient_chat.html", chatPage{
		APIBase:    "/api/patient-chats/" + id,
		SelfSender: pkg.SenderPatient,
		State:      p.State(id),
	})
}

// -- Doctor chat API --

func (s *Server) CreateDoctorChat(c echo.Context) error {
	id, d := s.Sessions.NewDoctorChat()
	return c.JSON(http.StatusCreated, d.State(id))
}

func (s *Server) GetDoctorChat(c echo.Context) error {
	id := c.Param("id")
	d, err := s.Sessions.DoctorChat(id)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, d.State(id))
}

// PostDoctorMessage submits the doctor's text.  Blank text is accepted and
// ignored; the response is the current state either way.
func (s *Server) PostDoctorMessage(c echo.Context) error {
	id := c.Param("id")
	d, err := s.Sessions.DoctorChat(id)
	if err != nil {
		return sessionError(err)
	}
	var req pkg.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d.Submit(req.Text)
	return c.JSON(http.StatusOK, d.State(id))
}

func (s *Server) TriggerAnalysis(c echo.Context) error {
	id := c.Param("id")
	d, err := s.Sessions.DoctorChat(id)
	if err != nil {
		return sessionError(err)
	}
	d.TriggerAnalysis()
	return c.JSON(http.StatusAccepted, d.State(id))
}

func (s *Server) StreamDoctorChat(c echo.Context) error {
	id := c.Param("id")
	d, err := s.Sessions.DoctorChat(id)
	if err != nil {
		return sessionError(err)
	}
	return s.stream(c, id, func() pkg.ChatState { return d.State(id) })
}

// -- Patient chat API --

func (s *Server) CreatePatientChat(c echo.Context) error {
	id, p := s.Sessions.NewPatientChat()
	return c.JSON(http.StatusCreated, p.State(id))
}

func (s *Server) GetPatientChat(c echo.Context) error {
	id := c.Param("id")
	p, err := s.Sessions.PatientChat(id)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, p.State(id))
}

// PostPatientMessage submits the patient's text; the automatic reply arrives
// later through the stream.
func (s *Server) PostPatientMessage(c echo.Context) error {
	id := c.Param("id")
	p, err := s.Sessions.PatientChat(id)
	if err != nil {
		return sessionError(err)
	}
	var req pkg.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.Submit(req.Text)
	return c.JSON(http.StatusOK, p.State(id))
}

func (s *Server) StreamPatientChat(c echo.Context) error {
	id := c.Param("id")
	p, err := s.Sessions.PatientChat(id)
	if err != nil {
		return sessionError(err)
	}
	return s.stream(c, id, func() pkg.ChatState { return p.State(id) })
}

// CloseChat tears down a chat session of either kind.
func (s *Server) CloseChat(c echo.Context) error {
	if err := s.Sessions.Close(c.Param("id")); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// stream sends the current state as a "state" event and then one event per
// controller change, named after the change kind, until the client goes away
// or the session is closed.
func (s *Server) stream(c echo.Context, id string, state func() pkg.ChatState) error {
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	events := s.Notifier.Listen(ctx, id)
	// A close that ran before Listen found no subscriber to end.
	if !s.Sessions.Exists(id) {
		return sessionError(session.ErrNotFound)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", state()); err != nil {
		return nil
	}
	w.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, string(e.Kind), state()); err != nil {
				s.Logger.Debug().Err(err).Str("session_id", id).Msg("stream write failed")
				return nil
			}
			w.Flush()
		case <-keepAlive.C:
			s.Sessions.Touch(id)
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, name string, state pkg.ChatState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return err
}
