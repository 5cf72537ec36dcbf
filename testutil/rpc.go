package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockServer serves canned responses to RPC clients under test. Response
// is either a single string served for every request or a []string
// served in order; Counter reports how many requests arrived. Setting
// ForceError fails every subsequent request with a 500.
type MockServer struct {
	*httptest.Server
	Response   interface{}
	Counter    int
	ForceError string
	StatusCode int

	t  *testing.T
	mu sync.Mutex
}

// MockJSONRPC starts a server answering JSON-RPC posts with the canned
// response(s). The second return value shuts the server down.
func MockJSONRPC(t *testing.T, response interface{}) (*MockServer, func()) {
	return mockServer(t, response, http.StatusOK)
}

// MockHTTP is MockJSONRPC with an explicit status code, for plain REST
// endpoints.
func MockHTTP(t *testing.T, response interface{}, status int) (*MockServer, func()) {
	return mockServer(t, response, status)
}

func mockServer(t *testing.T, response interface{}, status int) (*MockServer, func()) {
	t.Helper()
	mock := &MockServer{
		Response:   response,
		StatusCode: status,
		t:          t,
	}
	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock, mock.Server.Close
}

func (s *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ForceError != "" {
		http.Error(w, s.ForceError, http.StatusInternalServerError)
		return
	}
	var body string
	switch response := s.Response.(type) {
	case string:
		body = response
	case []string:
		if s.Counter >= len(response) {
			s.t.Errorf("no canned response for request %d", s.Counter+1)
			http.Error(w, "out of canned responses", http.StatusInternalServerError)
			return
		}
		body = response[s.Counter]
	default:
		s.t.Errorf("unsupported canned response type %T", s.Response)
		http.Error(w, "bad canned response", http.StatusInternalServerError)
		return
	}
	s.Counter++

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.StatusCode)
	_, _ = w.Write([]byte(body))
}
