// Package intelapitest provides an in-process fake of the threat indicator
// backend for use in tests.
package intelapitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is a fake backend. Indicator endpoints, count endpoints, the source
// count endpoint and the token endpoint are served; every route except the
// token endpoint requires one of the accepted bearer tokens.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	tokens     map[string]bool
	admins     map[string]bool
	users      map[string]login
	indicators map[string][]threat.Indicator
	failures   map[string]int
	sources    []threat.SourceCount
	recent     []threat.Record
	locations  map[string]threat.Location
	refreshes  int
	requests   []Request
}

type login struct {
	password string
	token    string
	role     string
}

// Request records what the fake saw for one call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// NewServer starts a fake which accepts the given bearer tokens.
func NewServer(tokens ...string) *Server {
	s := &Server{
		tokens:     make(map[string]bool),
		admins:     make(map[string]bool),
		users:      make(map[string]login),
		locations:  make(map[string]threat.Location),
		indicators: make(map[string][]threat.Indicator),
		failures:   make(map[string]int),
	}
	for _, tok := range tokens {
		s.tokens[tok] = true
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	r.Handle("/source_count", s.authorized(s.handleSources)).Methods(http.MethodGet)
	r.Handle("/threats", s.authorized(s.handleRecent)).Methods(http.MethodGet)
	r.Handle("/geocode/{ip}", s.authorized(s.handleGeocode)).Methods(http.MethodGet)
	r.Handle("/refresh_feeds", s.admin(s.handleRefresh)).Methods(http.MethodPost)
	r.Handle("/users", s.admin(s.handleCreateUser)).Methods(http.MethodPost)
	r.Handle("/{name:threat_[a-z]+_count}", s.authorized(s.handleCount)).Methods(http.MethodGet)
	r.Handle("/{name:threat_[a-z]+}", s.authorized(s.handleIndicators)).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// SetValues replaces the collection served at endpoint.
func (s *Server) SetValues(endpoint string, values ...string) {
	indicators := make([]threat.Indicator, len(values))
	for i, v := range values {
		indicators[i] = threat.Indicator{Value: v}
	}
	s.mu.Lock()
	s.indicators[endpoint] = indicators
	s.mu.Unlock()
}

// SetGenerated serves n values built from format, which receives the index.
func (s *Server) SetGenerated(endpoint, format string, n int) {
	values := make([]string, n)
	for i := range values {
		values[i] = fmt.Sprintf(format, i)
	}
	s.SetValues(endpoint, values...)
}

// SetSources replaces the source counts.
func (s *Server) SetSources(sources ...threat.SourceCount) {
	s.mu.Lock()
	s.sources = sources
	s.mu.Unlock()
}

// Fail makes endpoint answer with status until Recover is called.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	s.failures[endpoint] = status
	s.mu.Unlock()
}

// Recover undoes Fail.
func (s *Server) Recover(endpoint string) {
	s.mu.Lock()
	delete(s.failures, endpoint)
	s.mu.Unlock()
}

// SetRecent replaces the records served by the recent threats route.
func (s *Server) SetRecent(records ...threat.Record) {
	s.mu.Lock()
	s.recent = records
	s.mu.Unlock()
}

// SetLocation makes the geocode route answer for ip.
func (s *Server) SetLocation(ip string, lat, lon float64) {
	s.mu.Lock()
	s.locations[ip] = threat.Location{IP: ip, Lat: &lat, Lon: &lon}
	s.mu.Unlock()
}

// AddUser registers a login which is issued token.
func (s *Server) AddUser(username, password, token string) {
	s.addUser(username, login{password: password, token: token, role: "user"})
}

// AddAdmin registers an admin login which is issued token.
func (s *Server) AddAdmin(username, password, token string) {
	s.addUser(username, login{password: password, token: token, role: "admin"})
}

func (s *Server) addUser(username string, entry login) {
	s.mu.Lock()
	s.users[username] = entry
	s.tokens[entry.token] = true
	s.admins[entry.token] = entry.role == "admin"
	s.mu.Unlock()
}

// HasUser reports whether username can log in.
func (s *Server) HasUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok
}

// Refreshes returns how many feed refreshes were triggered.
func (s *Server) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// Requests returns the requests made to path so far.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, req := range s.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		status, failing := s.failures[r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
			return
		}
		next(w, r)
	})
}

// admin lets through only tokens issued to admin logins
func (s *Server) admin(next http.HandlerFunc) http.Handler {
	return s.authorized(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		ok := s.admins[tok]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Admins only"})
			return
		}
		next(w, r)
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	records := append([]threat.Record{}, s.recent...)
	s.mu.Unlock()
	if len(records) > 50 {
		records = records[:50]
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	ip := mux.Vars(r)["ip"]
	s.mu.Lock()
	loc, ok := s.locations[ip]
	s.mu.Unlock()
	if !ok {
		loc = threat.Location{IP: ip}
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.refreshes++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "Feed refresh triggered"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil || user.Username == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "Invalid user"})
		return
	}
	if s.HasUser(user.Username) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username exists"})
		return
	}
	s.addUser(user.Username, login{
		password: user.Password,
		token:    "token-" + user.Username,
		role:     user.Role,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "User created"})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	indicators, ok := s.indicators[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		indicators = []threat.Indicator{}
	}
	writeJSON(w, http.StatusOK, indicators)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	for _, name := range threat.Names() {
		kind, _ := threat.Lookup(name)
		if kind.CountEndpoint != r.URL.Path {
			continue
		}
		s.mu.Lock()
		n := len(s.indicators[kind.Endpoint])
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int{kind.CountField: n})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sources := append([]threat.SourceCount{}, s.sources...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	entry, ok := s.users[r.PostForm.Get("username")]
	s.mu.Unlock()

	if !ok || entry.password != r.PostForm.Get("password") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": entry.token, "token_type": "bearer"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
