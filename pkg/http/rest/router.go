package rest

import (
	"net/http"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/recording"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP API. A nil scheduler disables scheduling.
func NewRouter(service recording.Service, scheduler Scheduler, gatherer prometheus.Gatherer) *echo.Echo {
	meetings := NewMeetingController(service)
	schedules := NewScheduleController(scheduler)

	e := echo.New()
	e.HideBanner = true

	// Attach middlewares
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "(${host}) ${time_rfc3339} ${level}: ${method} ${uri} ${status} ${error}\n",
	}))
	e.Use(middleware.Recover())

	// Attach handlers
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome to meet-recorder")
	})
	e.GET("/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	e.POST("/meetings/start", meetings.StartMeeting)
	e.POST("/meetings/schedule", schedules.ScheduleMeeting)
	e.GET("/meetings", meetings.ListMeetings)
	e.GET("/meetings/:id", meetings.GetMeeting)
	e.POST("/meetings/:id/stop", meetings.StopMeeting)
	e.DELETE("/meetings/:id", meetings.ForgetMeeting)

	return e
}
