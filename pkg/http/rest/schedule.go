package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/schedule"
	"github.com/labstack/echo/v4"
)

type Scheduler interface {
	CreateMeeting(ctx context.Context, input schedule.MeetingInput) (string, error)
}

type scheduleController struct {
	scheduler Scheduler
}

type ScheduleMeetingRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	TeacherEmail string   `json:"teacher_email"`
	Attendees    []string `json:"attendees"`
}

type ScheduleMeetingResponse struct {
	MeetURL string `json:"meet_url"`
}

var ErrSchedulingDisabled = errors.New("meeting scheduling is not configured")

func NewScheduleController(scheduler Scheduler) scheduleController {
	return scheduleController{scheduler}
}

func (sc *scheduleController) ScheduleMeeting(c echo.Context) error {
	if sc.scheduler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, ErrSchedulingDisabled.Error())
	}

	data := new(ScheduleMeetingRequest)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if data.StartTime == "" || data.EndTime == "" || data.TeacherEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields.Error())
	}

	start, err := time.Parse(time.RFC3339, data.StartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_time: "+err.Error())
	}
	end, err := time.Parse(time.RFC3339, data.EndTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_time: "+err.Error())
	}

	link, err := sc.scheduler.CreateMeeting(c.Request().Context(), schedule.MeetingInput{
		Title:        data.Title,
		Description:  data.Description,
		Start:        start,
		End:          end,
		TeacherEmail: data.TeacherEmail,
		Attendees:    data.Attendees,
	})
	switch {
	case errors.Is(err, schedule.ErrInvalidTimes), errors.Is(err, schedule.ErrNoTeacher):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ScheduleMeetingResponse{MeetURL: link})
}
