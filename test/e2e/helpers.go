//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelf-works/shelf/internal/api/handlers"
	"github.com/shelf-works/shelf/internal/chat"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/identity"
	"github.com/shelf-works/shelf/internal/processor"
	"github.com/shelf-works/shelf/internal/repository"
	"github.com/shelf-works/shelf/internal/server"
	"github.com/shelf-works/shelf/internal/service"
	"github.com/shelf-works/shelf/internal/storage"
	"github.com/shelf-works/shelf/internal/testutil"
)

const (
	testToken  = "e2e-token"
	testUserID = "e2e-user"
)

// TestEnv holds all resources needed for end-to-end tests
type TestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client
}

type s3Adapter struct {
	client *storage.S3Client
}

func (a *s3Adapter) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return a.client.PutObject(ctx, key, contentType, data)
}

func (a *s3Adapter) GetObject(ctx context.Context, key string) ([]byte, error) {
	return a.client.GetObject(ctx, key)
}

func (a *s3Adapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *s3Adapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

// SetupTestEnv starts containers and a fully wired server. Extraction runs
// in-process, chat uses the canned responder with no delay.
func SetupTestEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-files",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	fileRepo := repository.NewFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	chatRepo := repository.NewChatRepository(pool)

	bus := events.NewBus()
	storageClient := &s3Adapter{client: s3Client}

	processingSvc := service.NewProcessingService(fileRepo, chunkRepo, bus)
	dispatcher := processor.NewLocalDispatcher(storageClient, processingSvc)

	responder := chat.NewCannedResponder()
	responder.Delay = 0

	fileSvc := service.NewFileService(fileRepo, chunkRepo, storageClient, bus)
	uploadSvc := service.NewUploadService(fileRepo, storageClient, dispatcher, bus)
	chunkSvc := service.NewChunkService(fileRepo, chunkRepo, bus)
	chatSvc := service.NewChatService(chatRepo, fileRepo, chunkRepo, responder)

	router := server.NewRouter(server.RouterConfig{
		TokenResolver:   &identity.StaticResolver{Token: testToken, UserID: testUserID},
		FileHandler:     handlers.NewFileHandler(fileSvc, uploadSvc),
		ChunkHandler:    handlers.NewChunkHandler(chunkSvc),
		CallbackHandler: handlers.NewCallbackHandler(processingSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		EventsHandler:   handlers.NewEventsHandler(fileSvc),
	})

	return &TestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *TestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse mirrors the server's response envelope
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Do sends a JSON request with the given auth token ("" omits the header)
func (e *TestEnv) Do(method, path string, body interface{}, token string) (int, *APIResponse) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeResponse(e.T, resp)
}

// Upload sends one named document through the multipart upload endpoint
func (e *TestEnv) Upload(filename string, content []byte) (int, *APIResponse) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		e.T.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		e.T.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest("POST", e.Server.URL+"/files", &buf)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeResponse(e.T, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) *APIResponse {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if len(body) == 0 {
		return &APIResponse{}
	}
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		t.Fatalf("failed to parse response %q: %v", string(body), err)
	}
	return &apiResp
}

// WaitForFileStatus polls until the file reaches the wanted status
func (e *TestEnv) WaitForFileStatus(fileID, want string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		code, resp := e.Do("GET", "/files/"+fileID, nil, testToken)
		if code == http.StatusOK {
			var file struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(resp.Data, &file); err == nil && file.Status == want {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("file %s did not reach status %q within %s", fileID, want, timeout)
}

func unmarshalData(t *testing.T, resp *APIResponse, v interface{}) {
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("failed to unmarshal data %q: %v", string(resp.Data), err)
	}
}
