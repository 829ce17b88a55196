package presentations

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/shared/server/respond"
)

const testUser = "guest:test-guest"

func setupRouter(t *testing.T, pl *fakePipeline) (*gin.Engine, *Service, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, repo, _, _ := newTestService(pl)
	h := NewHandler(svc, 1<<20)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-Test-User"))
		c.Next()
	})
	h.RegisterRoutes(api)
	h.RegisterGenerationRoutes(api)
	return router, svc, repo
}

func do(router *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Test-User", testUser)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestOutlineFromPromptReturnsCreated(t *testing.T) {
	router, _, repo := setupRouter(t, &fakePipeline{})

	body := []byte(`{"topic":"Go Concurrency","preferences":{"slideCount":2}}`)
	resp := do(router, http.MethodPost, "/api/v1/presentations/outline", body, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var got outlineResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PresentationID == "" || got.Status != "awaiting_user_edit" {
		t.Fatalf("unexpected response: %+v", got)
	}
	if loc := resp.Header().Get("Location"); loc != "/api/v1/presentations/"+got.PresentationID {
		t.Fatalf("unexpected Location %q", loc)
	}
	if got.RemainingCredits != 9 {
		t.Fatalf("expected remainingCredits 9, got %d", got.RemainingCredits)
	}
	if _, err := repo.GetByID(context.Background(), got.PresentationID); err != nil {
		t.Fatalf("expected stored presentation: %v", err)
	}
}

func TestOutlineFromPromptRejectsBadJSON(t *testing.T) {
	router, _, _ := setupRouter(t, &fakePipeline{})

	resp := do(router, http.MethodPost, "/api/v1/presentations/outline", []byte(`{`), "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOutlineFromDocumentParsesForm(t *testing.T) {
	router, _, _ := setupRouter(t, &fakePipeline{advisory: true})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "deck.pptx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("PK\x03\x04"))
	_ = w.WriteField("slideCount", "6")
	_ = w.WriteField("strict", "true")
	_ = w.Close()

	resp := do(router, http.MethodPost, "/api/v1/presentations/outline/from-document", buf.Bytes(), w.FormDataContentType())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var got outlineResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Advisory {
		t.Fatalf("expected advisory flag")
	}
}

func TestOutlineFromDocumentRejectsBadSlideCount(t *testing.T) {
	router, _, _ := setupRouter(t, &fakePipeline{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "notes.txt")
	_, _ = part.Write([]byte("hello"))
	_ = w.WriteField("slideCount", "many")
	_ = w.Close()

	resp := do(router, http.MethodPost, "/api/v1/presentations/outline/from-document", buf.Bytes(), w.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestFinalizeReturnsAcceptedThenConflict(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	p := createAwaiting(t, svc, testUser)

	path := "/api/v1/presentations/" + p.ID + "/finalize"
	resp := do(router, http.MethodPost, path, []byte(`{"title":"Final","slideCountHint":4}`), "application/json")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"expanding_slides"`) {
		t.Fatalf("expected expanding_slides status, got %s", resp.Body.String())
	}

	resp = do(router, http.MethodPost, path, nil, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var errResp respond.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error.Code != respond.CodeConflict {
		t.Fatalf("expected CONFLICT, got %q", errResp.Error.Code)
	}
}

func TestFinalizeWithoutCreditsIs402(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	svc.Credits = balanceStub{remaining: 0}
	p := createAwaiting(t, svc, testUser)

	resp := do(router, http.MethodPost, "/api/v1/presentations/"+p.ID+"/finalize", nil, "")
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.Code)
	}
}

func TestUpdateOutlineRejectsGap(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	p := createAwaiting(t, svc, testUser)

	edited := sampleOutline()
	edited.Outline[1].SlideNumber = 5
	body, _ := json.Marshal(edited)
	resp := do(router, http.MethodPut, "/api/v1/presentations/"+p.ID+"/outline", body, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetPresentationNotFoundForOtherUser(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	p := createAwaiting(t, svc, "user-other")

	resp := do(router, http.MethodGet, "/api/v1/presentations/"+p.ID, nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestPreviewServesSVGAfterProcessing(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	p := createAwaiting(t, svc, testUser)
	if _, err := svc.Finalize(context.Background(), testUser, p.ID, "", 0); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if state, err := svc.ProcessFinalize(context.Background(), p.ID); err != nil || state != pipeline.StateDone {
		t.Fatalf("ProcessFinalize: %v %v", state, err)
	}

	resp := do(router, http.MethodGet, "/api/v1/presentations/"+p.ID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "/api/v1/presentations/"+p.ID+"/slides/1/preview.svg") {
		t.Fatalf("expected preview url in %s", resp.Body.String())
	}

	resp = do(router, http.MethodGet, "/api/v1/presentations/"+p.ID+"/slides/1/preview.svg", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp = do(router, http.MethodGet, "/api/v1/presentations/"+p.ID+"/slides/zero/preview.svg", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestFinalizeAndGetReportRemainingCredits(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	svc.Credits = balanceStub{remaining: 3}
	p := createAwaiting(t, svc, testUser)

	resp := do(router, http.MethodPost, "/api/v1/presentations/"+p.ID+"/finalize", nil, "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var accepted struct {
		RemainingCredits *int `json:"remainingCredits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.RemainingCredits == nil || *accepted.RemainingCredits != 3 {
		t.Fatalf("expected remainingCredits=3, got %v", accepted.RemainingCredits)
	}

	resp = do(router, http.MethodGet, "/api/v1/presentations/"+p.ID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got presentationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RemainingCredits == nil || *got.RemainingCredits != 3 {
		t.Fatalf("expected remainingCredits=3, got %v", got.RemainingCredits)
	}
}

func TestGetOmitsCreditsWhenUntracked(t *testing.T) {
	router, svc, _ := setupRouter(t, &fakePipeline{})
	p := createAwaiting(t, svc, testUser)
	svc.Credits = nil

	resp := do(router, http.MethodGet, "/api/v1/presentations/"+p.ID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "remainingCredits") {
		t.Fatalf("expected no remainingCredits, got %s", resp.Body.String())
	}
}
