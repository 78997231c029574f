package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var (
	ErrInvalidTimes  = errors.New("end time must be after start time")
	ErrNoTeacher     = errors.New("empty teacher email")
	ErrNoMeetingLink = errors.New("calendar event has no meeting link")
)

type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
}

type MeetingInput struct {
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	TeacherEmail string
	Attendees    []string
}

type Scheduler struct {
	svc        *calendar.Service
	calendarID string
}

func New(svc *calendar.Service) *Scheduler {
	return &Scheduler{svc: svc, calendarID: "primary"}
}

// NewFromConfig builds a scheduler authorised with the stored token.
func NewFromConfig(ctx context.Context, config Config, opts ...option.ClientOption) (*Scheduler, error) {
	store := FileTokenStore{Path: config.TokenFile}
	token, err := store.Load()
	if err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	client := oauth2.NewClient(ctx, tokenSource(ctx, conf, store, token))

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return New(svc), nil
}

// tokenSource refreshes the token when it has expired and saves the result.
func tokenSource(ctx context.Context, conf *oauth2.Config, store FileTokenStore, token *oauth2.Token) oauth2.TokenSource {
	return &savingTokenSource{
		base:  conf.TokenSource(ctx, token),
		store: store,
		last:  token.AccessToken,
	}
}

// attendees returns the teacher followed by the extra attendees, without
// duplicates.
func attendees(teacher string, extra []string) []*calendar.EventAttendee {
	seen := make(map[string]bool)
	var out []*calendar.EventAttendee
	for _, email := range append([]string{teacher}, extra...) {
		email = strings.TrimSpace(email)
		key := strings.ToLower(email)
		if email == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &calendar.EventAttendee{Email: email})
	}
	return out
}

// CreateMeeting schedules a calendar event with a Google Meet conference and
// returns the meeting link.
func (s *Scheduler) CreateMeeting(ctx context.Context, input MeetingInput) (string, error) {
	if input.TeacherEmail == "" {
		return "", ErrNoTeacher
	}
	if !input.End.After(input.Start) {
		return "", ErrInvalidTimes
	}
	if input.Title == "" {
		input.Title = "Auto Class"
	}
	if input.Description == "" {
		input.Description = "Scheduled class"
	}

	event := &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: attendees(input.TeacherEmail, input.Attendees),
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: fmt.Sprintf("meet-%d", time.Now().Unix()),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}

	created, err := s.svc.Events.Insert(s.calendarID, event).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	link := meetingLink(created)
	if link == "" {
		return "", ErrNoMeetingLink
	}
	log.Infof("scheduled meeting | event: %s, link: %s, attendees: %d", created.Id, link, len(event.Attendees))
	return link, nil
}

func meetingLink(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return ep.Uri
			}
		}
	}
	return ""
}
