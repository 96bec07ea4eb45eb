package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/stivan622/jarvis-system/internal/config"
	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/providers"
	"github.com/stivan622/jarvis-system/pkg/providers/caldav"
	"github.com/stivan622/jarvis-system/pkg/providers/google"
	"github.com/stivan622/jarvis-system/pkg/timegrid"
)

// googleService owns the Google Calendar endpoints and the cached copy
// of the current week's external events. Config-defined CalDAV accounts
// feed the same event aggregate. The cache exists so a provider outage
// degrades the week view to slightly stale events instead of an empty
// grid.
type googleService struct {
	cfg   *config.Config
	store *planner.Store

	// newSource is swappable in tests.
	newSource func(ctx context.Context, acct *planner.GoogleAccount) providers.Source
	caldav    []caldavFeed

	mu    sync.Mutex
	state string
	cache eventCache
}

// caldavFeed pairs a CalDAV source with the account identity its
// events are labelled with.
type caldavFeed struct {
	src      providers.Source
	username string
}

type eventCache struct {
	dateFrom, dateTo string
	events           []planner.RemoteEvent
	fetchedAt        time.Time
}

func newGoogleService(cfg *config.Config, store *planner.Store) *googleService {
	g := &googleService{cfg: cfg, store: store}
	g.newSource = func(ctx context.Context, acct *planner.GoogleAccount) providers.Source {
		return google.NewClient(ctx, acct, g.oauthConfig())
	}
	for _, acct := range cfg.CalDAVAccounts {
		src, err := caldav.NewSource(caldav.Config{
			Name:      acct.Name,
			ServerURL: acct.ServerURL,
			Username:  acct.Username,
			Password:  acct.Password,
		})
		if err != nil {
			log.Printf("skipping caldav account %s: %v", acct.Name, err)
			continue
		}
		g.caldav = append(g.caldav, caldavFeed{src: src, username: acct.Username})
	}
	return g
}

func (g *googleService) oauthConfig() *oauth2.Config {
	return google.NewOAuthConfig(google.Config{
		ClientID:     g.cfg.GoogleClientID,
		ClientSecret: g.cfg.GoogleClientSecret,
		RedirectURL:  g.cfg.APIBaseURL + "/api/v1/google_calendar/callback",
	})
}

func (g *googleService) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if g.cfg.GoogleClientID == "" || g.cfg.GoogleClientSecret == "" {
		badRequest(w, fmt.Errorf("google oauth credentials are not configured"))
		return
	}

	b := make([]byte, 16)
	rand.Read(b)
	state := hex.EncodeToString(b)

	g.mu.Lock()
	g.state = state
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"url": google.AuthURL(g.oauthConfig(), state),
	})
}

func (g *googleService) handleCallback(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	expected := g.state
	g.state = ""
	g.mu.Unlock()

	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	oauth := g.oauthConfig()
	token, err := oauth.Exchange(ctx, code)
	if err != nil {
		log.Printf("google code exchange failed: %v", err)
		http.Error(w, "Authorization failed", http.StatusBadGateway)
		return
	}

	info, err := google.FetchUserInfo(ctx, oauth, token)
	if err != nil {
		log.Printf("google user info fetch failed: %v", err)
		http.Error(w, "Authorization failed", http.StatusBadGateway)
		return
	}

	acct := &planner.GoogleAccount{
		Email:        info.Email,
		Name:         info.Name,
		PictureURL:   info.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	}
	if err := g.store.SaveGoogleAccount(acct); err != nil {
		writeError(w, err)
		return
	}

	// Seed the account's calendar list right away so the settings UI
	// has something to toggle.
	if err := g.syncCalendars(ctx, acct); err != nil {
		log.Printf("calendar list sync for %s failed: %v", acct.Email, err)
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, google.SuccessPage)
}

func (g *googleService) syncCalendars(ctx context.Context, acct *planner.GoogleAccount) error {
	cals, err := g.newSource(ctx, acct).Calendars(ctx)
	if err != nil {
		return err
	}
	for _, cal := range cals {
		err := g.store.SaveGoogleCalendar(&planner.GoogleCalendar{
			AccountID:  acct.ID,
			CalendarID: cal.ID,
			Name:       cal.Name,
			Color:      cal.Color,
			Enabled:    cal.Primary, // only the primary calendar starts enabled
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *googleService) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := g.store.GoogleAccounts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(accounts))
}

func (g *googleService) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := g.store.DeleteGoogleAccount(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *googleService) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	acct, err := g.store.GetGoogleAccount(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Refresh the listing opportunistically; stored rows still serve if
	// Google is unreachable.
	if err := g.syncCalendars(r.Context(), acct); err != nil {
		log.Printf("calendar list refresh for %s failed: %v", acct.Email, err)
	}

	cals, err := g.store.GoogleCalendars(acct.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(cals))
}

func (g *googleService) handleToggleCalendar(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeRoot(r, "calendar", &patch); err != nil {
		badRequest(w, err)
		return
	}
	if patch.Enabled == nil {
		badRequest(w, fmt.Errorf("enabled is required"))
		return
	}
	accountID := r.PathValue("id")
	calendarID := r.PathValue("calendarID")
	if err := g.store.SetGoogleCalendarEnabled(accountID, calendarID, *patch.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":  accountID,
		"calendar_id": calendarID,
		"enabled":     *patch.Enabled,
	})
}

// handleEvents aggregates events over every enabled calendar of every
// account. It never fails the week view: a fetch problem falls back to
// the cache, and failing that an empty list.
func (g *googleService) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dateFrom, dateTo := q.Get("date_from"), q.Get("date_to")
	if dateFrom == "" || dateTo == "" {
		week := timegrid.WeekStart(time.Now())
		dateFrom = timegrid.DateStr(week)
		dateTo = timegrid.DateStr(week.AddDate(0, 0, 6))
	}

	events, err := g.fetchEvents(r.Context(), dateFrom, dateTo)
	if err != nil {
		log.Printf("external event fetch failed: %v", err)
		events = g.cachedEvents(dateFrom, dateTo)
	}
	writeJSON(w, http.StatusOK, emptyList(events))
}

// fetchEvents errors only when nothing could be fetched at all;
// individual calendar failures are logged and skipped.
func (g *googleService) fetchEvents(ctx context.Context, dateFrom, dateTo string) ([]planner.RemoteEvent, error) {
	accounts, err := g.store.GoogleAccounts()
	if err != nil {
		return nil, err
	}

	var events []planner.RemoteEvent
	var failures int
	var attempted int
	for _, acct := range accounts {
		cals, err := g.store.GoogleCalendars(acct.ID)
		if err != nil {
			return nil, err
		}
		src := g.newSource(ctx, acct)
		for _, cal := range cals {
			if !cal.Enabled {
				continue
			}
			attempted++
			evs, err := src.Events(ctx, cal.CalendarID, dateFrom, dateTo)
			if err != nil {
				log.Printf("events fetch for %s calendar %s failed: %v", acct.Email, cal.CalendarID, err)
				failures++
				continue
			}
			for i := range evs {
				evs[i].CalendarName = cal.Name
				evs[i].CalendarColor = cal.Color
				evs[i].AccountEmail = acct.Email
			}
			events = append(events, evs...)
		}
	}
	for _, feed := range g.caldav {
		cals, err := feed.src.Calendars(ctx)
		if err != nil {
			log.Printf("calendar discovery for %s failed: %v", feed.src.Name(), err)
			attempted++
			failures++
			continue
		}
		for _, cal := range cals {
			attempted++
			evs, err := feed.src.Events(ctx, cal.ID, dateFrom, dateTo)
			if err != nil {
				log.Printf("events fetch for %s calendar %s failed: %v", feed.src.Name(), cal.ID, err)
				failures++
				continue
			}
			for i := range evs {
				evs[i].CalendarName = cal.Name
				evs[i].CalendarColor = cal.Color
				evs[i].AccountEmail = feed.username
			}
			events = append(events, evs...)
		}
	}
	if attempted > 0 && failures == attempted {
		return nil, fmt.Errorf("all %d calendar fetches failed", attempted)
	}

	g.mu.Lock()
	g.cache = eventCache{dateFrom: dateFrom, dateTo: dateTo, events: events, fetchedAt: time.Now()}
	g.mu.Unlock()

	return events, nil
}

func (g *googleService) cachedEvents(dateFrom, dateTo string) []planner.RemoteEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cache.dateFrom == dateFrom && g.cache.dateTo == dateTo {
		return g.cache.events
	}
	return nil
}

// refreshCache is the cron target: keep the current week warm.
func (g *googleService) refreshCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	week := timegrid.WeekStart(time.Now())
	dateFrom := timegrid.DateStr(week)
	dateTo := timegrid.DateStr(week.AddDate(0, 0, 6))
	if _, err := g.fetchEvents(ctx, dateFrom, dateTo); err != nil {
		log.Printf("external event cache refresh failed: %v", err)
	}
}
