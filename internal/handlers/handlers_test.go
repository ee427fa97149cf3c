package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/auth"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/config"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/email"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/ratelimit"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/upload"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
)

type fakeImageStore struct {
	uploads int
	deleted []string
}

func (f *fakeImageStore) Upload(ctx context.Context, data []byte) (*upload.Image, error) {
	f.uploads++
	return &upload.Image{
		URL:      fmt.Sprintf("https://images.example.com/%d.png", f.uploads),
		PublicID: fmt.Sprintf("fit-check/wardrobe/test-%d", f.uploads),
	}, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateModelImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	return "data:image/png;base64,bW9kZWw=", nil
}

func (fakeGenerator) VirtualTryOn(ctx context.Context, modelImage string, garment []byte, garmentMIME string) (string, error) {
	return "data:image/png;base64,dHJ5b24=", nil
}

func (fakeGenerator) PoseVariation(ctx context.Context, image, poseInstruction string) (string, error) {
	return "data:image/png;base64,cG9zZQ==", nil
}

func (fakeGenerator) Closeup(ctx context.Context, image, outfitDescription string) (string, error) {
	return "data:image/png;base64,Y2xvc2U=", nil
}

func (fakeGenerator) PostCopy(ctx context.Context, image, outfitDescription, sceneDescription, brandName string) (string, error) {
	return "Fresh looks for the weekend. #style", nil
}

type testServer struct {
	router *gin.Engine
	db     *sql.DB
	images *fakeImageStore
}

func setupTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatal("Failed to open test database:", err)
	}
	t.Cleanup(func() { db.Close() })

	// An in-memory database exists per connection, so the pool must not
	// open a second one.
	db.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}

	cfg := &config.Config{
		Environment:    "development",
		AllowedOrigins: "http://localhost:3000",
		JWTSecret:      "handlers-test-secret",
	}

	images := &fakeImageStore{}
	r := gin.New()
	SetupRoutes(r, db, cfg, &Services{
		Tokens:    auth.NewTokenService(cfg.JWTSecret),
		Limiter:   ratelimit.New(),
		Images:    images,
		Generator: fakeGenerator{},
		Email:     email.NewService(cfg),
	})

	return &testServer{router: r, db: db, images: images}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal("Failed to marshal request body:", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

// registerUser registers an account through the API and returns its token.
func (s *testServer) registerUser(t *testing.T, emailAddr string) string {
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    emailAddr,
		"password": "Sup3rSecret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from register, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	token, _ := data["accessToken"].(string)
	if token == "" {
		t.Fatal("Expected an access token in the register response")
	}
	return token
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal("Failed to write form field:", err)
		}
	}

	if fileField != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, fileName)}
		header["Content-Type"] = []string{"image/png"}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatal("Failed to create file part:", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatal("Failed to write file data:", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatal("Failed to close multipart writer:", err)
	}
	return buf, writer.FormDataContentType()
}

func (s *testServer) createItem(t *testing.T, token, name string) string {
	buf, contentType := multipartBody(t, map[string]string{
		"name":     name,
		"category": "TOP",
		"tags":     `["casual"]`,
	}, "image", "item.png", []byte("fake-png"))

	req := httptest.NewRequest(http.MethodPost, "/api/wardrobe", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from item create, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	return body["data"].(map[string]any)["id"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "Jane@Example.com",
		"password": "Sup3rSecret",
		"name":     "Jane",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "Sup3rSecret") || strings.Contains(w.Body.String(), "passwordHash") {
		t.Error("Expected password material to be absent from the response")
	}

	body := decodeBody(t, w)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["email"] != "jane@example.com" {
		t.Errorf("Expected lowercased email, got %v", user["email"])
	}

	// Duplicate registration, different case.
	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "JANE@example.com",
		"password": "Sup3rSecret",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}

	// Wrong password and unknown user produce the same message.
	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "jane@example.com",
		"password": "WrongPass1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	wrongPassMsg := decodeBody(t, w)["message"]

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "nobody@example.com",
		"password": "WrongPass1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if decodeBody(t, w)["message"] != wrongPassMsg {
		t.Error("Expected identical messages for unknown user and wrong password")
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "jane@example.com",
		"password": "Sup3rSecret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "not-an-email",
		"password": "ab",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	body := decodeBody(t, w)
	errors, _ := body["errors"].([]any)
	if len(errors) < 4 {
		t.Errorf("Expected every violation to be reported, got %v", errors)
	}
}

func TestProfile(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")

	w := s.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/auth/profile", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a bad token, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if _, ok := data["stats"]; !ok {
		t.Error("Expected resource counts in the profile response")
	}

	w = s.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{"name": "New Name"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty update, got %d", w.Code)
	}
}

func TestWardrobeOwnership(t *testing.T) {
	s := setupTestServer(t)
	owner := s.registerUser(t, "owner@b.com")
	intruder := s.registerUser(t, "intruder@b.com")

	itemID := s.createItem(t, owner, "Blue shirt")

	w := s.do(t, http.MethodGet, "/api/wardrobe/"+itemID, owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the owner, got %d", w.Code)
	}

	// Someone else's item is a 403, an unknown id a 404. The order matters:
	// existence is checked before ownership.
	w = s.do(t, http.MethodGet, "/api/wardrobe/"+itemID, intruder, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign item, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/wardrobe/does-not-exist", intruder, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown item, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/wardrobe/bad..id", owner, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed id, got %d", w.Code)
	}

	w = s.do(t, http.MethodDelete, "/api/wardrobe/"+itemID, intruder, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 deleting a foreign item, got %d", w.Code)
	}

	w = s.do(t, http.MethodDelete, "/api/wardrobe/"+itemID, owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 deleting own item, got %d: %s", w.Code, w.Body.String())
	}
	if len(s.images.deleted) != 1 {
		t.Errorf("Expected the hosted image to be deleted, got %v", s.images.deleted)
	}
}

func TestWardrobeListAndStats(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")

	s.createItem(t, token, "Blue shirt")
	s.createItem(t, token, "White shirt")

	w := s.do(t, http.MethodGet, "/api/wardrobe?page=1&limit=1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	pagination := data["pagination"].(map[string]any)
	if pagination["total"].(float64) != 2 || pagination["hasNext"] != true {
		t.Errorf("Unexpected pagination: %v", pagination)
	}

	w = s.do(t, http.MethodGet, "/api/wardrobe?limit=101", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for limit over 100, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/wardrobe/stats", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	stats := decodeBody(t, w)["data"].(map[string]any)
	if stats["totalItems"].(float64) != 2 {
		t.Errorf("Expected 2 items in stats, got %v", stats["totalItems"])
	}
}

func TestRegisterRateLimit(t *testing.T) {
	s := setupTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
			"email":    fmt.Sprintf("user%d@b.com", i),
			"password": "Sup3rSecret",
		})
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on the sixth registration, got %d", last.Code)
	}
	body := decodeBody(t, last)
	if retryAfter, ok := body["retryAfter"].(float64); !ok || retryAfter <= 0 {
		t.Errorf("Expected a positive retryAfter, got %v", body["retryAfter"])
	}
}

func TestAIRateLimit(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")

	var last *httptest.ResponseRecorder
	for i := 0; i < 21; i++ {
		last = s.do(t, http.MethodPost, "/api/ai/generate-pose", token, map[string]any{
			"imageUrl":        "data:image/png;base64,aW1n",
			"poseInstruction": "side profile",
		})
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on the 21st generation, got %d", last.Code)
	}
	body := decodeBody(t, last)
	if retryAfter, ok := body["retryAfter"].(float64); !ok || retryAfter <= 0 {
		t.Errorf("Expected a positive retryAfter, got %v", body["retryAfter"])
	}
}

func TestProjectSharing(t *testing.T) {
	s := setupTestServer(t)
	owner := s.registerUser(t, "owner@b.com")
	other := s.registerUser(t, "other@b.com")

	w := s.do(t, http.MethodPost, "/api/projects", owner, map[string]any{
		"name":          "Summer looks",
		"modelImageUrl": "https://images.example.com/model.png",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	projectID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	// Private project: other users are rejected, missing projects come back
	// as 404 even to strangers.
	w = s.do(t, http.MethodGet, "/api/projects/"+projectID, other, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a private project, got %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/api/projects/no-such-project", other, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing project, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/projects/"+projectID+"/share", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from share, got %d: %s", w.Code, w.Body.String())
	}
	shareToken := decodeBody(t, w)["data"].(map[string]any)["shareToken"].(string)
	if shareToken == "" {
		t.Fatal("Expected a share token")
	}

	// The token admits anyone, even anonymous callers.
	w = s.do(t, http.MethodGet, "/api/projects/"+projectID+"?token="+shareToken, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with a share token, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/api/projects/"+projectID+"?token=wrong", "", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 with a bad token, got %d", w.Code)
	}

	// Flipping the project public opens it without a token.
	w = s.do(t, http.MethodPut, "/api/projects/"+projectID, owner, map[string]any{"isPublic": true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from update, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/api/projects/"+projectID, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for a public project, got %d", w.Code)
	}

	// Only the owner can update or delete, regardless of visibility.
	w = s.do(t, http.MethodPut, "/api/projects/"+projectID, other, map[string]any{"name": "Hijacked"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 updating a foreign project, got %d", w.Code)
	}
	w = s.do(t, http.MethodDelete, "/api/projects/"+projectID, owner, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 deleting own project, got %d", w.Code)
	}
}

func TestAIEndpoints(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")

	w := s.do(t, http.MethodPost, "/api/ai/generate-pose", token, map[string]any{
		"imageUrl":        "data:image/png;base64,aW1n",
		"poseInstruction": "side profile",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["imageUrl"] == "" {
		t.Error("Expected an imageUrl in the response")
	}

	w = s.do(t, http.MethodPost, "/api/ai/generate-pose", token, map[string]any{
		"imageUrl": "data:image/png;base64,aW1n",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a pose instruction, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/ai/generate-post-copy", token, map[string]any{
		"imageUrl": "data:image/png;base64,aW1n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["postCopy"] == "" {
		t.Error("Expected a postCopy in the response")
	}

	w = s.do(t, http.MethodPost, "/api/ai/generate-video", token, map[string]any{})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 for video generation, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/ai/generate-pose", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", w.Code)
	}
}

func TestWardrobeUpdateKeepsTagsOnEmptyField(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")
	itemID := s.createItem(t, token, "Blue shirt")

	// A blank tags value means the field was left alone, not an empty list.
	buf, contentType := multipartBody(t, map[string]string{
		"name": "Navy shirt",
		"tags": "",
	}, "", "", nil)

	req := httptest.NewRequest(http.MethodPut, "/api/wardrobe/"+itemID, buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	data := decodeBody(t, w)["data"].(map[string]any)
	if data["name"] != "Navy shirt" {
		t.Errorf("Expected the name to change, got %v", data["name"])
	}
	tags, _ := data["tags"].([]any)
	if len(tags) != 1 || tags[0] != "casual" {
		t.Errorf("Expected tags to be untouched, got %v", data["tags"])
	}
}

func TestDeleteDerivesPublicIDFromURL(t *testing.T) {
	s := setupTestServer(t)
	token := s.registerUser(t, "a@b.com")

	user, err := database.GetUserByEmail(s.db, "a@b.com")
	if err != nil {
		t.Fatal("Failed to load user:", err)
	}

	// Imported rows carry only the delivery URL.
	item, err := database.CreateItem(s.db, models.WardrobeItem{
		UserID:   user.ID,
		Name:     "Imported coat",
		Category: models.CategoryOuterwear,
		ImageURL: "https://res.cloudinary.com/demo/image/upload/v1700000000/fit-check/wardrobe/coat.jpg",
	})
	if err != nil {
		t.Fatal("Failed to create item:", err)
	}

	w := s.do(t, http.MethodDelete, "/api/wardrobe/"+item.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(s.images.deleted) != 1 || s.images.deleted[0] != "fit-check/wardrobe/coat" {
		t.Errorf("Expected the public id derived from the URL, got %v", s.images.deleted)
	}
}

func TestRecoveryEnvelope(t *testing.T) {
	s := setupTestServer(t)
	s.router.GET("/explode", func(c *gin.Context) {
		panic("exploded")
	})

	w := s.do(t, http.MethodGet, "/explode", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["success"] != false || body["message"] != "Internal server error" {
		t.Errorf("Expected the error envelope, got %v", body)
	}
	// The test config runs in development, where the stack is exposed.
	if stack, _ := body["stack"].(string); stack == "" {
		t.Error("Expected a stack trace outside production")
	}
}

func TestNoRouteEnvelope(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("Expected an error envelope, got %v", body)
	}
}
