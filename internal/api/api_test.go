package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBoard struct {
	mu       sync.Mutex
	status   engine.Status
	stopped  bool
	newGames []string
	notes    chan engine.Notification
	subbed   chan struct{}
}

func newFakeBoard(st engine.Status) *fakeBoard {
	return &fakeBoard{
		status: st,
		notes:  make(chan engine.Notification, 8),
		subbed: make(chan struct{}, 1),
	}
}

func (b *fakeBoard) Status() engine.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *fakeBoard) RequestNewGame(source string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.newGames = append(b.newGames, source)
	return true
}

func (b *fakeBoard) Subscribe(int) (<-chan engine.Notification, func()) {
	b.subbed <- struct{}{}
	return b.notes, func() {}
}

type fakeHinter struct {
	hint search.Hint
	err  error
	fen  string
}

func (h *fakeHinter) BestMove(fen string) (search.Hint, error) {
	h.fen = fen
	return h.hint, h.err
}

func activeStatus() engine.Status {
	return engine.Status{
		State:     engine.StateActive,
		Indicator: engine.LevelGreen,
		Session:   "sess-1",
		Seq:       3,
		Turn:      board.White,
		FEN:       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Snapshot:  board.StartPosition,
	}
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestGetStatus(t *testing.T) {
	s := New(newFakeBoard(activeStatus()))

	rec, body := do(t, s, http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, "green", body["indicator"])
	assert.Equal(t, "white", body["turn"])
	assert.Equal(t, "sess-1", body["session"])
	assert.Equal(t, "ffff00000000ffff", body["snapshot"])
}

func TestPostNewGame(t *testing.T) {
	b := newFakeBoard(activeStatus())
	s := New(b)

	rec, body := do(t, s, http.MethodPost, "/game/new")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, []string{"api"}, b.newGames)

	b.stopped = true
	rec, _ = do(t, s, http.MethodPost, "/game/new")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetHint(t *testing.T) {
	t.Run("no engine", func(t *testing.T) {
		rec, _ := do(t, New(newFakeBoard(activeStatus())), http.MethodGet, "/hint")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("not active", func(t *testing.T) {
		st := activeStatus()
		st.State = engine.StateDesynced
		h := &fakeHinter{}
		rec, body := do(t, New(newFakeBoard(st), WithHinter(h)), http.MethodGet, "/hint")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "desynced", body["state"])
		assert.Empty(t, h.fen, "engine must not be asked")
	})

	t.Run("game over", func(t *testing.T) {
		st := activeStatus()
		st.GameOver = true
		rec, _ := do(t, New(newFakeBoard(st), WithHinter(&fakeHinter{})), http.MethodGet, "/hint")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		h := &fakeHinter{hint: search.Hint{Move: "e2e4", SAN: "e4", ScoreCP: 30, Depth: 12}}
		rec, body := do(t, New(newFakeBoard(activeStatus()), WithHinter(h)), http.MethodGet, "/hint")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, activeStatus().FEN, h.fen)

		hint := body["hint"].(map[string]any)
		assert.Equal(t, "e2e4", hint["move"])
		assert.Equal(t, "e4", hint["san"])
		assert.Equal(t, "white", body["turn"])
	})

	t.Run("no legal move", func(t *testing.T) {
		h := &fakeHinter{err: search.ErrNoMove}
		rec, _ := do(t, New(newFakeBoard(activeStatus()), WithHinter(h)), http.MethodGet, "/hint")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("engine failure", func(t *testing.T) {
		h := &fakeHinter{err: errors.New("engine crashed")}
		rec, body := do(t, New(newFakeBoard(activeStatus()), WithHinter(h)), http.MethodGet, "/hint")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "engine crashed", body["error"])
	})
}

func TestKindFilter(t *testing.T) {
	assert.Nil(t, kindFilter(""))
	assert.Equal(t, map[engine.NotificationKind]bool{
		engine.NotifyMove:  true,
		engine.NotifyState: true,
	}, kindFilter("move, state,"))
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestEvents_StreamsNarratedNotifications(t *testing.T) {
	b := newFakeBoard(activeStatus())
	srv := httptest.NewServer(New(b).Handler())
	defer srv.Close()

	conn := dial(t, srv, "?kinds=move,state")
	<-b.subbed

	b.notes <- engine.Notification{Kind: engine.NotifyScan, Seq: 1, Snapshot: board.StartPosition}
	b.notes <- engine.Notification{Kind: engine.NotifyState, Seq: 1, State: engine.StateActive, Reason: "start_position"}
	b.notes <- engine.Notification{
		Kind:  engine.NotifyMove,
		Seq:   3,
		State: engine.StateActive,
		Move: &engine.MoveEvent{
			Move:  board.Move{From: board.MustParseSquare("e2"), To: board.MustParseSquare("e4")},
			SAN:   "e4",
			Mover: board.Piece{Kind: board.Pawn, Color: board.White},
			Turn:  board.Black,
		},
	}

	ev := readEvent(t, conn)
	assert.Equal(t, "state", ev["kind"], "scan notifications are filtered out")
	assert.Equal(t, "active", ev["state"])
	assert.Equal(t, "Board recognised. Ready to play.", ev["text"])

	ev = readEvent(t, conn)
	assert.Equal(t, "move", ev["kind"])
	assert.Equal(t, float64(3), ev["seq"])
	assert.Equal(t, "White pawn e2 to e4.", ev["text"])
	move := ev["move"].(map[string]any)
	assert.Equal(t, "e4", move["san"])
}

func TestEvents_ClosesWhenEngineStops(t *testing.T) {
	b := newFakeBoard(activeStatus())
	srv := httptest.NewServer(New(b).Handler())
	defer srv.Close()

	conn := dial(t, srv, "")
	<-b.subbed
	close(b.notes)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestEvents_RejectsPlainHTTP(t *testing.T) {
	s := New(newFakeBoard(activeStatus()))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
