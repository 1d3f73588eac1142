package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/db"
	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
	"github.com/sportlens/sportlens-backend/internal/rss"
	"github.com/sportlens/sportlens-backend/internal/services"
	"github.com/sportlens/sportlens-backend/internal/sse"
	"github.com/sportlens/sportlens-backend/internal/types"
)

const handlerFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Wire</title>
    <link>https://example.com</link>
    <item>
      <title>Season opener recap</title>
      <link>https://example.com/articles/opener</link>
      <description>Strong start for the favorites.</description>
      <pubDate>Mon, 10 Mar 2025 18:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

type stubOllama struct{}

func (stubOllama) Generate(ctx context.Context, req services.GenerateRequest) (string, error) {
	return `{"tags":["sports"],"summary":"ok","score":0.5}`, nil
}

func (stubOllama) GenerateStream(ctx context.Context, req services.GenerateRequest) (<-chan services.StreamChunk, error) {
	out := make(chan services.StreamChunk)
	go func() {
		defer close(out)
		out <- services.StreamChunk{Text: "ok"}
		out <- services.StreamChunk{Done: true}
	}()
	return out, nil
}

func (stubOllama) ListModels(ctx context.Context) ([]string, error) { return []string{"llava:13b"}, nil }
func (stubOllama) CheckHealth(ctx context.Context) bool             { return true }

type handlerEnv struct {
	router   *gin.Engine
	feeds    repos.FeedRepo
	articles repos.ArticleRepo
	manager  *services.JobManager
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	return newHandlerEnvWith(t, stubOllama{})
}

func newHandlerEnvWith(t *testing.T, ollama services.OllamaClient) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	feedRepo := repos.NewFeedRepo(gdb, log)
	articleRepo := repos.NewArticleRepo(gdb, log)
	insightRepo := repos.NewInsightRepo(gdb, log)
	analysisRepo := repos.NewAnalysisRepo(gdb, log)
	jobRepo := repos.NewJobRepo(gdb, log)

	hub := sse.NewHub(log)
	rssService := rss.NewService(log)
	analysis := services.NewAnalysisService(log, ollama)
	manager := services.NewJobManager(
		log,
		jobRepo, feedRepo, articleRepo, insightRepo, analysisRepo,
		rssService, ollama, analysis, services.NewJobNotifier(hub),
	)
	chat := services.NewChatService(log, ollama, analysis)

	router := gin.New()
	router.GET("/healthcheck", NewHealthHandler(gdb, ollama).HealthCheck)
	api := router.Group("/api")
	feedsHandler := NewFeedsHandler(log, feedRepo, rssService, manager)
	articlesHandler := NewArticlesHandler(log, articleRepo, insightRepo)
	api.GET("/feeds", feedsHandler.ListFeeds)
	api.POST("/feeds", feedsHandler.CreateFeed)
	api.DELETE("/feeds/:id", feedsHandler.DeleteFeed)
	api.GET("/articles", articlesHandler.ListArticles)
	api.GET("/articles/count", articlesHandler.CountArticles)
	api.GET("/articles/:id", articlesHandler.GetArticle)
	api.POST("/articles/delete", articlesHandler.DeleteArticles)
	analysisHandler := NewAnalysisHandler(log, articleRepo, analysisRepo, manager)
	api.POST("/reasoning/stream", analysisHandler.ReasonStream)
	api.GET("/jobs/:id", NewJobsHandler(manager).GetJobByID)
	api.POST("/chat", NewChatHandler(chat).Chat)

	return &handlerEnv{router: router, feeds: feedRepo, articles: articleRepo, manager: manager}
}

func (e *handlerEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthcheck(t *testing.T) {
	env := newHandlerEnv(t)
	w := env.do(t, http.MethodGet, "/healthcheck", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"database":"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCreateFeedValidatesURL(t *testing.T) {
	env := newHandlerEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, handlerFeedXML)
	}))
	defer srv.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	w := env.do(t, http.MethodPost, "/api/feeds", fmt.Sprintf(`{"url":%q}`, srv.URL))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	// Same URL again conflicts.
	w = env.do(t, http.MethodPost, "/api/feeds", fmt.Sprintf(`{"url":%q}`, srv.URL))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}

	// A URL that does not serve a feed is rejected up front.
	w = env.do(t, http.MethodPost, "/api/feeds", fmt.Sprintf(`{"url":%q}`, dead.URL))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid url status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/feeds", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listResp struct {
		Feeds []types.Feed `json:"feeds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Feeds) != 1 {
		t.Fatalf("feed count = %d, want 1", len(listResp.Feeds))
	}
}

func TestDeleteFeedNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	w := env.do(t, http.MethodDelete, "/api/feeds/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/feeds/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	w := env.do(t, http.MethodGet, "/api/jobs/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestArticlesEndpoints(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	feed, err := env.feeds.Create(ctx, nil, &types.Feed{URL: "https://example.com/rss"})
	if err != nil {
		t.Fatalf("create feed: %v", err)
	}
	article, err := env.articles.Create(ctx, nil, &types.Article{
		FeedID:      feed.ID,
		Title:       "Opener",
		Link:        "https://example.com/articles/opener",
		Fingerprint: "fp-opener",
	})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/articles/count", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("count: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/articles/"+article.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get article status = %d", w.Code)
	}

	// Deleting requires exactly one selector.
	w = env.do(t, http.MethodPost, "/api/articles/delete", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty selector status = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/articles/delete",
		fmt.Sprintf(`{"ids":[%q],"search":"x"}`, article.ID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("double selector status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/articles/delete", fmt.Sprintf(`{"ids":[%q]}`, article.ID))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"deleted":1`) {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
}

// stallingOllama emits one chunk, then holds the stream open until released,
// regardless of the caller's context.
type stallingOllama struct {
	stubOllama
	release chan struct{}
}

func (s *stallingOllama) GenerateStream(ctx context.Context, req services.GenerateRequest) (<-chan services.StreamChunk, error) {
	out := make(chan services.StreamChunk)
	go func() {
		defer close(out)
		out <- services.StreamChunk{Text: "early "}
		<-s.release
		out <- services.StreamChunk{Text: "late"}
		out <- services.StreamChunk{Done: true}
	}()
	return out, nil
}

func TestReasonStreamSurvivesClientDisconnect(t *testing.T) {
	stub := &stallingOllama{release: make(chan struct{})}
	env := newHandlerEnvWith(t, stub)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/reasoning/stream",
		strings.NewReader(`{"prompt":"Who wins tonight?"}`)).WithContext(reqCtx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handlerDone := make(chan struct{})
	go func() {
		env.router.ServeHTTP(w, req)
		close(handlerDone)
	}()

	// The client drops the connection mid-stream; only afterwards does the
	// model produce the rest of the output.
	cancelReq()
	close(stub.release)

	select {
	case <-handlerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after stream completion")
	}

	// The first SSE frame carries the job id.
	var frame struct {
		Data struct {
			JobID uuid.UUID `json:"jobId"`
		} `json:"data"`
	}
	firstLine := strings.SplitN(w.Body.String(), "\n", 2)[0]
	if err := json.Unmarshal([]byte(strings.TrimPrefix(firstLine, "data: ")), &frame); err != nil {
		t.Fatalf("decode first frame %q: %v", firstLine, err)
	}

	// The job finished server-side despite the disconnect.
	job, err := env.manager.GetJob(context.Background(), frame.Data.JobID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != types.JobStatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Fatalf("progress = %d, want 100", job.Progress)
	}
}

func TestChatEndpoint(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"role":"assistant"`) {
		t.Fatalf("body = %s", w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/chat", `{"messages":[]}`)
	if w.Code == http.StatusOK {
		t.Fatal("empty conversation accepted")
	}
}
