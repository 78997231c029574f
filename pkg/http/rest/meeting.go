package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/recording"
	"github.com/labstack/echo/v4"
)

type meetingController struct {
	recording.Service
}

type StartMeetingRequest struct {
	MeetingLink string `json:"meeting_link"`
	Filename    string `json:"filename"`
	// Minutes
	Duration int `json:"duration"`
}

func NewMeetingController(service recording.Service) meetingController {
	return meetingController{service}
}

var ErrEmptyFields = errors.New("one or more fields is empty")

func httpError(err error) error {
	switch {
	case errors.Is(err, recording.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, recording.ErrSessionRunning):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, recording.ErrInvalidLink),
		errors.Is(err, recording.ErrInvalidDuration),
		errors.Is(err, recording.ErrInvalidFilename):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, recording.ErrShuttingDown):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (mc *meetingController) StartMeeting(c echo.Context) error {
	// Bind request data
	data := new(StartMeetingRequest)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	// Sanitise request
	if data.MeetingLink == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields.Error())
	}
	if data.Duration < 0 || data.Duration > int(recording.MaxDuration/time.Minute) {
		return echo.NewHTTPError(http.StatusBadRequest, recording.ErrInvalidDuration.Error())
	}

	// Call service
	session, err := mc.Service.StartMeeting(c.Request().Context(), recording.StartMeetingRequest{
		MeetingLink: data.MeetingLink,
		Filename:    data.Filename,
		Duration:    time.Duration(data.Duration) * time.Minute,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (mc *meetingController) StopMeeting(c echo.Context) error {
	session, err := mc.Service.StopMeeting(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (mc *meetingController) GetMeeting(c echo.Context) error {
	session, err := mc.Service.GetMeeting(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (mc *meetingController) ListMeetings(c echo.Context) error {
	return c.JSON(http.StatusOK, mc.Service.ListMeetings())
}

func (mc *meetingController) ForgetMeeting(c echo.Context) error {
	if err := mc.Service.Forget(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
