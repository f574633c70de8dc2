package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragchat-backend/guard"
	"ragchat-backend/models"
	"ragchat-backend/service"
	"ragchat-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRetriever replays queued search results and dialogue replies.
type fakeRetriever struct {
	searchResults   [][]models.Document
	searchCalls     int
	dialogueReplies []string
	dialogueCalls   int
}

func (f *fakeRetriever) Search(_ context.Context, _, _ string, _ int) ([]models.Document, error) {
	f.searchCalls++
	if len(f.searchResults) == 0 {
		return []models.Document{}, nil
	}
	result := f.searchResults[0]
	f.searchResults = f.searchResults[1:]
	return result, nil
}

func (f *fakeRetriever) Dialogue(_ context.Context, _ string) (string, error) {
	i := f.dialogueCalls
	f.dialogueCalls++
	if i < len(f.dialogueReplies) {
		return f.dialogueReplies[i], nil
	}
	return "", nil
}

func sourced(source, content string) models.Document {
	return models.Document{
		Content:  content,
		Metadata: map[string]interface{}{"source": source},
	}
}

func newTestRouter(f *fakeRetriever, cs store.ConversationStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewChatService(
		service.WithRetriever(f),
		service.WithConversationStore(cs),
		service.WithGuard(guard.New(zap.NewNop())),
		service.WithDatabase("testdb"),
		service.WithMaxContextLength(2000),
	)
	h := NewChatHandler(svc, cs, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatEndpointSQLInjectionRejected(t *testing.T) {
	f := &fakeRetriever{}
	r := newTestRouter(f, store.NewMemoryStore())

	w := postJSON(t, r, "/chat", gin.H{"message": "SELECT * FROM users"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.searchCalls)
	assert.Equal(t, 0, f.dialogueCalls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestChatEndpointIntentRejection(t *testing.T) {
	f := &fakeRetriever{dialogueReplies: []string{"malicious"}}
	cs := store.NewMemoryStore()
	r := newTestRouter(f, cs)

	w := postJSON(t, r, "/chat", gin.H{"message": "你好"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.searchCalls)

	list, _ := cs.List(context.Background())
	assert.Empty(t, list)
}

func TestChatEndpointSuccess(t *testing.T) {
	f := &fakeRetriever{
		dialogueReplies: []string{"benign", "草稿", "最终回答"},
		searchResults: [][]models.Document{
			{sourced("a", "一"), sourced("b", "二"), sourced("c", "三")},
			{sourced("c", "三·精"), sourced("d", "四"), sourced("e", "五"), sourced("f", "六"), sourced("g", "七")},
		},
	}
	cs := store.NewMemoryStore()
	r := newTestRouter(f, cs)

	w := postJSON(t, r, "/chat", gin.H{"message": "什么是防火墙?", "enable_evaluation": false})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Response       string            `json:"response"`
		Citations      []models.Citation `json:"citations"`
		ConversationID string            `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "最终回答", body.Response)
	assert.Len(t, body.Citations, 7)
	assert.NotEmpty(t, body.ConversationID)

	conv, err := cs.Get(context.Background(), body.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 2)
}

func TestChatEndpointObjectMessage(t *testing.T) {
	f := &fakeRetriever{
		dialogueReplies: []string{"benign", "回答"},
		searchResults:   [][]models.Document{{}, {}},
	}
	r := newTestRouter(f, store.NewMemoryStore())

	w := postJSON(t, r, "/chat", gin.H{"message": gin.H{"text": "你好"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatEndpointEmptyMessage(t *testing.T) {
	r := newTestRouter(&fakeRetriever{}, store.NewMemoryStore())

	for _, body := range []gin.H{
		{},
		{"message": ""},
		{"message": gin.H{"other": "x"}},
	} {
		w := postJSON(t, r, "/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	cs := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, cs.Create(ctx, "b", "second"))
	require.NoError(t, cs.Create(ctx, "a", "first"))
	require.NoError(t, cs.Append(ctx, "a", models.ConversationTurn{Role: models.RoleUser, Content: "q"}))

	r := newTestRouter(&fakeRetriever{}, cs)

	w := getPath(r, "/history")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.ConversationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	w = getPath(r, "/history/a")
	require.Equal(t, http.StatusOK, w.Code)
	var conv struct {
		Messages []models.ConversationTurn `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "q", conv.Messages[0].Content)

	w = getPath(r, "/history/ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearEndpoint(t *testing.T) {
	cs := store.NewMemoryStore()
	require.NoError(t, cs.Create(context.Background(), "a", "first"))

	r := newTestRouter(&fakeRetriever{}, cs)

	w := postJSON(t, r, "/clear", gin.H{})
	assert.Equal(t, http.StatusOK, w.Code)

	list, _ := cs.List(context.Background())
	assert.Empty(t, list)
}
