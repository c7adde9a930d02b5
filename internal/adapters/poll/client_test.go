package poll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roommate/roomlink/internal/domain"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"wss://relay.example.com/ws", "https://relay.example.com/ws"},
		{"ws://localhost:8080/ws", "http://localhost:8080/ws"},
		{"ws://localhost:8080/ws/", "http://localhost:8080/ws"},
		{"https://relay.example.com", "https://relay.example.com"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{"relay.example.com", "http://relay.example.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeBaseURL(tc.in), "input %q", tc.in)
	}
}

// fakeServer is an in-process stand-in for the signaling server's REST
// surface, just enough surface for client and poller tests.
type fakeServer struct {
	mu        sync.Mutex
	events    map[domain.SigningPubkey][]domain.HouseEvent
	hints     map[domain.SigningPubkey]domain.HouseHint
	acks      []string
	ackFail   bool
	fetches   int
	lastSince string

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		events: make(map[domain.SigningPubkey][]domain.HouseEvent),
		hints:  make(map[domain.SigningPubkey]domain.HouseHint),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/houses/{spk}/events", f.handleFetch)
	mux.HandleFunc("POST /api/houses/{spk}/events", f.handlePost)
	mux.HandleFunc("POST /api/houses/{spk}/events/ack", f.handleAck)
	mux.HandleFunc("GET /api/houses/{spk}/hint", f.handleHint)
	mux.HandleFunc("POST /api/houses/{spk}/register", f.handleRegister)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) client() *Client { return NewClient(f.srv.URL) }

func (f *fakeServer) addEvent(house domain.SigningPubkey, id string) {
	f.mu.Lock()
	f.events[house] = append(f.events[house], domain.HouseEvent{
		EventID:       id,
		SigningPubkey: house,
		EventType:     "note",
	})
	f.mu.Unlock()
}

func (f *fakeServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	house := domain.SigningPubkey(r.PathValue("spk"))
	since := r.URL.Query().Get("since")
	f.mu.Lock()
	f.fetches++
	f.lastSince = since
	all := f.events[house]
	out := make([]domain.HouseEvent, 0)
	include := since == ""
	for _, ev := range all {
		if include {
			out = append(out, ev)
		}
		if ev.EventID == since {
			include = true
		}
	}
	f.mu.Unlock()
	json.NewEncoder(w).Encode(out)
}

func (f *fakeServer) handlePost(w http.ResponseWriter, r *http.Request) {
	var ev domain.HouseEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.events[ev.SigningPubkey] = append(f.events[ev.SigningPubkey], ev)
	f.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeServer) handleAck(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.ackFail
	f.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	var body struct {
		UserID      string `json:"user_id"`
		LastEventID string `json:"last_event_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.acks = append(f.acks, body.LastEventID)
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeServer) handleHint(w http.ResponseWriter, r *http.Request) {
	house := domain.SigningPubkey(r.PathValue("spk"))
	f.mu.Lock()
	hint, ok := f.hints[house]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(hint)
}

func (f *fakeServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var hint domain.HouseHint
	if err := json.NewDecoder(r.Body).Decode(&hint); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.hints[hint.SigningPubkey] = hint
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestFetchEventsSinceCursor(t *testing.T) {
	srv := newFakeServer(t)
	srv.addEvent("spk1", "e1")
	srv.addEvent("spk1", "e2")
	srv.addEvent("spk1", "e3")
	c := srv.client()

	all, err := c.FetchEvents(context.Background(), "spk1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	tail, err := c.FetchEvents(context.Background(), "spk1", "e1")
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "e2", tail[0].EventID)
}

func TestFetchHintNotFound(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.client()

	_, found, err := c.FetchHint(context.Background(), "spk-unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterThenFetchHint(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.client()

	hint := domain.HouseHint{SigningPubkey: "spk1", EncryptedState: "blob", Signature: "sig"}
	require.NoError(t, c.RegisterHint(context.Background(), hint))

	got, found, err := c.FetchHint(context.Background(), "spk1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "blob", got.EncryptedState)
}

func TestPostEventAppends(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.client()

	ev := domain.HouseEvent{EventID: "e1", SigningPubkey: "spk1", EventType: "note", EncryptedPayload: "x"}
	require.NoError(t, c.PostEvent(context.Background(), ev))

	got, err := c.FetchEvents(context.Background(), "spk1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].EventID)
}
