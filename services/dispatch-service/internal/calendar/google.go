package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultGoogleBaseURL = "https://www.googleapis.com/calendar/v3"

type GoogleConfig struct {
	BaseURL string
	// Token is an OAuth2 access token with calendar scope.
	Token   string
	Timeout time.Duration
}

// GoogleClient talks to the Google Calendar v3 REST API.
type GoogleClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("google calendar token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &GoogleClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type freeBusyRequest struct {
	TimeMin string         `json:"timeMin"`
	TimeMax string         `json:"timeMax"`
	Items   []freeBusyItem `json:"items"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"calendars"`
}

func (c *GoogleClient) FreeBusy(ctx context.Context, calendarIDs []string, start, end time.Time) (map[string][]availability.Interval, error) {
	out := make(map[string][]availability.Interval, len(calendarIDs))
	if len(calendarIDs) == 0 {
		return out, nil
	}
	req := freeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
	}
	for _, id := range calendarIDs {
		req.Items = append(req.Items, freeBusyItem{ID: id})
	}

	var resp freeBusyResponse
	if err := c.do(ctx, http.MethodPost, "/freeBusy", req, &resp); err != nil {
		return nil, err
	}
	for id, cal := range resp.Calendars {
		if len(cal.Errors) > 0 {
			return nil, fmt.Errorf("freebusy %s: %s", id, cal.Errors[0].Reason)
		}
		for _, b := range cal.Busy {
			out[id] = append(out[id], availability.Interval{Start: b.Start.UTC(), End: b.End.UTC()})
		}
	}
	return out, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventBody struct {
	Summary        string          `json:"summary,omitempty"`
	Description    string          `json:"description,omitempty"`
	Location       string          `json:"location,omitempty"`
	Start          eventTime       `json:"start"`
	End            eventTime       `json:"end"`
	Status         string          `json:"status"`
	Attendees      []attendee      `json:"attendees,omitempty"`
	ConferenceData *conferenceData `json:"conferenceData,omitempty"`
}

type attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type conferenceData struct {
	CreateRequest *conferenceCreateRequest `json:"createRequest,omitempty"`
	EntryPoints   []conferenceEntryPoint   `json:"entryPoints,omitempty"`
}

type conferenceCreateRequest struct {
	RequestID             string             `json:"requestId"`
	ConferenceSolutionKey conferenceSolution `json:"conferenceSolutionKey"`
}

type conferenceSolution struct {
	Type string `json:"type"`
}

type conferenceEntryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

type eventResponse struct {
	ID             string          `json:"id"`
	HangoutLink    string          `json:"hangoutLink"`
	ConferenceData *conferenceData `json:"conferenceData"`
}

func (c *GoogleClient) UpsertEvent(ctx context.Context, calendarID string, ev Event) (EventResult, error) {
	body := eventBody{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       eventTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         eventTime{DateTime: ev.End.UTC().Format(time.RFC3339), TimeZone: ev.TimeZone},
		Status:      "confirmed",
	}
	if ev.Tentative {
		body.Status = "tentative"
	}
	for _, a := range ev.Attendees {
		body.Attendees = append(body.Attendees, attendee{Email: a.Email, DisplayName: a.DisplayName})
	}

	method := http.MethodPatch
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	if ev.ID == "" {
		method = http.MethodPost
		body.ConferenceData = &conferenceData{CreateRequest: &conferenceCreateRequest{
			RequestID:             uuid.NewString(),
			ConferenceSolutionKey: conferenceSolution{Type: "hangoutsMeet"},
		}}
	} else {
		path += "/" + url.PathEscape(ev.ID)
	}
	path += "?conferenceDataVersion=1"

	var resp eventResponse
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return EventResult{}, err
	}
	return EventResult{ID: resp.ID, MeetingLink: meetingLink(resp)}, nil
}

// meetingLink prefers hangoutLink and falls back to the first video entry point.
func meetingLink(resp eventResponse) string {
	if resp.HangoutLink != "" {
		return resp.HangoutLink
	}
	if resp.ConferenceData == nil {
		return ""
	}
	for _, ep := range resp.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" && ep.URI != "" {
			return ep.URI
		}
	}
	return ""
}

// DeleteEvent treats an event that is already gone as deleted.
func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusGone) {
		return nil
	}
	return err
}

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google calendar: status %d: %s", e.Code, e.Body)
}

func (c *GoogleClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
