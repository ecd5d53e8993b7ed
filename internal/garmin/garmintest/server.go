// Package garmintest runs an in-process stand-in for the Garmin Connect
// endpoints the exporter uses, counting every request it serves.
package garmintest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sstent/garminexport/internal/config"
)

// Response is a canned HTTP answer.
type Response struct {
	Status int
	Body   []byte
}

// JSON builds a 200 response with v encoded as JSON.
func JSON(v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Response{Status: http.StatusOK, Body: b}
}

// Status builds an empty response with the given code.
func Status(code int) Response {
	return Response{Status: code}
}

// Server is a fake Garmin Connect.
type Server struct {
	*httptest.Server

	Username string
	Password string
	Ticket   string

	// Activities are returned by the list endpoint, newest first.
	Activities []map[string]any
	// TotalActivities overrides len(Activities) in the user stats when non-zero.
	TotalActivities int
	// PageCap, when positive, caps how many entries one list call returns.
	PageCap int

	ActivityTypes string
	EventTypes    string

	mu        sync.Mutex
	hits      map[string]int
	details   map[string][]Response
	devices   map[string]Response
	gear      map[string]Response
	downloads map[string]Response
}

// NewServer starts a fake Garmin Connect that is closed with the test.
func NewServer(t testing.TB) *Server {
	s := &Server{
		Username:      "runner@example.com",
		Password:      "secret",
		Ticket:        "ST-0123-abcDEF-cas",
		ActivityTypes: "activity_type_running=Running\nactivity_type_cycling=Cycling\n",
		EventTypes:    "uncategorized=Uncategorized\nrace=Race\n",
		hits:          make(map[string]int),
		details:       make(map[string][]Response),
		devices:       make(map[string]Response),
		gear:          make(map[string]Response),
		downloads:     make(map[string]Response),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sso/signin", s.count("login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>sign in</html>"))
	}))
	mux.HandleFunc("POST /sso/signin", s.count("login", s.handleLoginPost))
	mux.HandleFunc("GET /modern/", s.count("postauth", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("GET /stats", s.count("stats", s.handleStats))
	mux.HandleFunc("GET /list", s.count("list", s.handleList))
	mux.HandleFunc("GET /activity/{id}", s.count("activity", s.handleDetail))
	mux.HandleFunc("GET /device/{id}", s.count("device", s.keyed(&s.devices, Status(http.StatusNotFound))))
	mux.HandleFunc("GET /gear/{id}", s.count("gear", s.keyed(&s.gear, Response{Status: http.StatusOK, Body: []byte("[]")})))
	mux.HandleFunc("GET /props/activity", s.count("props", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(s.ActivityTypes))
	}))
	mux.HandleFunc("GET /props/event", s.count("props", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(s.EventTypes))
	}))
	mux.HandleFunc("GET /download/{format}/{id}", s.count("download", s.handleDownload))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// URLs points every endpoint at this server.
func (s *Server) URLs() config.URLs {
	base := s.URL
	return config.URLs{
		Login:            base + "/sso/signin",
		PostAuth:         base + "/modern/",
		UserStats:        base + "/stats",
		List:             base + "/list",
		Activity:         base + "/activity",
		Device:           base + "/device",
		Gear:             base + "/gear",
		ActivityTypes:    base + "/props/activity",
		EventTypes:       base + "/props/event",
		OriginalActivity: base + "/download/original",
		GPXActivity:      base + "/download/gpx",
		TCXActivity:      base + "/download/tcx",
		ActivityPage:     base + "/modern/activity",
		SSO:              base + "/sso",
		WebHost:          base,
		Signin:           base + "/signin",
		CSS:              base + "/gauth.css",
	}
}

// Config returns a configuration aimed at this server.
func (s *Server) Config() config.Config {
	return config.Config{
		Username:    s.Username,
		Password:    s.Password,
		URLs:        s.URLs(),
		HTTPTimeout: 5 * time.Second,
		MaxTries:    3,
		PageSize:    config.MaxPageSize,
	}
}

// SetDetail queues detail responses for an activity. Each request consumes
// one; the last one is repeated.
func (s *Server) SetDetail(id string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[id] = responses
}

// SetDevice sets the answer for a device installation id.
func (s *Server) SetDevice(id string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[id] = r
}

// SetGear sets the answer for an activity's gear.
func (s *Server) SetGear(activityID string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gear[activityID] = r
}

// SetDownload sets the answer for downloading activityID in format.
func (s *Server) SetDownload(format, activityID string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads[format+"/"+activityID] = r
}

// Hits returns how many requests reached an endpoint group ("list",
// "activity", "device", "gear", "download", ...).
func (s *Server) Hits(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[group]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

func (s *Server) count(group string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[group]++
		s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != s.Username || r.PostForm.Get("password") != s.Password {
		_, _ = w.Write([]byte("<html>Invalid sign in.</html>"))
		return
	}
	fmt.Fprintf(w, "<script>\nvar response_url = \"%s/modern/?ticket=%s\";\n</script>", s.URL, s.Ticket)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total := s.TotalActivities
	if total == 0 {
		total = len(s.Activities)
	}
	write(w, JSON(map[string]any{
		"userMetrics": []any{map[string]any{"totalActivities": total}},
	}))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if s.PageCap > 0 && limit > s.PageCap {
		limit = s.PageCap
	}
	page := []map[string]any{}
	for i := start; i < start+limit && i < len(s.Activities); i++ {
		page = append(page, s.Activities[i])
	}
	write(w, JSON(page))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	queue, ok := s.details[id]
	var resp Response
	if ok && len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			s.details[id] = queue[1:]
		}
	}
	s.mu.Unlock()
	if !ok {
		resp = JSON(map[string]any{"activityId": json.Number(id), "summaryDTO": map[string]any{"duration": 60.0}})
	}
	write(w, resp)
}

func (s *Server) keyed(m *map[string]Response, fallback Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		resp, ok := (*m)[r.PathValue("id")]
		s.mu.Unlock()
		if !ok {
			resp = fallback
		}
		write(w, resp)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("format") + "/" + r.PathValue("id")
	s.mu.Lock()
	resp, ok := s.downloads[key]
	s.mu.Unlock()
	if !ok {
		if r.PathValue("format") == "original" {
			resp = Status(http.StatusNotFound)
		} else {
			resp = Response{Status: http.StatusOK, Body: []byte("<?xml version=\"1.0\"?><gpx></gpx>")}
		}
	}
	write(w, resp)
}

func write(w http.ResponseWriter, r Response) {
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}
