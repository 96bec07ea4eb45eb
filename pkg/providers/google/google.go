package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/providers"
)

const (
	// Read-only access: the grid never writes to Google Calendar.
	CalendarReadOnlyScope = "https://www.googleapis.com/auth/calendar.readonly"
	UserInfoEmailScope    = "https://www.googleapis.com/auth/userinfo.email"
	UserInfoProfileScope  = "https://www.googleapis.com/auth/userinfo.profile"

	apiBase     = "https://www.googleapis.com/calendar/v3"
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Config holds the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuthConfig builds the oauth2 config used by both the loopback
// authorize flow and the server callback endpoint.
func NewOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{CalendarReadOnlyScope, UserInfoEmailScope, UserInfoProfileScope},
		Endpoint:     googleoauth.Endpoint,
	}
}

// AuthURL returns the consent URL for the offline flow.
func AuthURL(oauth *oauth2.Config, state string) string {
	return oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// UserInfo identifies the account that granted access.
type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchUserInfo resolves the granting account after a code exchange.
func FetchUserInfo(ctx context.Context, oauth *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	client := oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed: %s", resp.Status)
	}

	info := &UserInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return info, nil
}

// Client reads one connected account's Google Calendar data. The
// underlying oauth2 transport refreshes the access token as needed.
type Client struct {
	account    *planner.GoogleAccount
	httpClient *http.Client
}

// NewClient creates a client for a stored account.
func NewClient(ctx context.Context, account *planner.GoogleAccount, oauth *oauth2.Config) *Client {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	}
	return &Client{
		account:    account,
		httpClient: oauth.Client(ctx, token),
	}
}

// Name returns the account identity for logs.
func (c *Client) Name() string {
	return "google:" + c.account.Email
}

// Calendars lists the account's calendars.
func (c *Client) Calendars(ctx context.Context) ([]providers.Calendar, error) {
	var result struct {
		Items []struct {
			ID              string `json:"id"`
			Summary         string `json:"summary"`
			BackgroundColor string `json:"backgroundColor"`
			Primary         bool   `json:"primary"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, apiBase+"/users/me/calendarList", &result); err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []providers.Calendar
	for _, item := range result.Items {
		calendars = append(calendars, providers.Calendar{
			ID:      item.ID,
			Name:    item.Summary,
			Color:   item.BackgroundColor,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

// Events returns one calendar's concrete occurrences in the date range,
// converted to grid fields. singleEvents expands recurring series
// server-side, so only concrete occurrences ever reach the grid.
func (c *Client) Events(ctx context.Context, calendarID, dateFrom, dateTo string) ([]planner.RemoteEvent, error) {
	from, err := time.ParseInLocation("2006-01-02", dateFrom, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad date_from %q: %w", dateFrom, err)
	}
	to, err := time.ParseInLocation("2006-01-02", dateTo, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad date_to %q: %w", dateTo, err)
	}

	reqURL := fmt.Sprintf(
		"%s/calendars/%s/events?timeMin=%s&timeMax=%s&singleEvents=true&orderBy=startTime",
		apiBase,
		url.PathEscape(calendarID),
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.AddDate(0, 0, 1).Format(time.RFC3339)),
	)

	var result struct {
		Items []struct {
			ID          string `json:"id"`
			Summary     string `json:"summary"`
			Status      string `json:"status"`
			HangoutLink string `json:"hangoutLink"`
			Start       struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, reqURL, &result); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	var events []planner.RemoteEvent
	for _, item := range result.Items {
		if item.Status == "cancelled" {
			continue
		}

		var start, end time.Time
		allDay := false
		if item.Start.DateTime != "" {
			// RFC3339 with the event's own offset: the wall clock
			// survives the parse, which is all the grid needs.
			start, err = time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				continue
			}
			if end, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
				end = start
			}
		} else if item.Start.Date != "" {
			allDay = true
			if start, err = time.Parse("2006-01-02", item.Start.Date); err != nil {
				continue
			}
			end = start
		} else {
			continue
		}

		date, startMinutes, durationMinutes := providers.GridTimes(start, end, allDay)
		events = append(events, planner.RemoteEvent{
			ID:              item.ID,
			CalendarID:      calendarID,
			Title:           item.Summary,
			Date:            date,
			StartMinutes:    startMinutes,
			DurationMinutes: durationMinutes,
			AllDay:          allDay,
			MeetLink:        item.HangoutLink,
		})
	}
	return events, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ensure Client implements Source
var _ providers.Source = (*Client)(nil)
