package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/STS-Engineer/Skill-Matrix/internal/middleware"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/storage"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *errorBody             `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminPrincipal = &models.Principal{UserID: "admin-1", Username: "root", Role: models.RoleAdmin}
	userPrincipal  = &models.Principal{UserID: "user-1", Username: "ana", Role: models.RoleUser}
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asPrincipal(c *gin.Context, principal *models.Principal) {
	c.Set(middleware.ContextPrincipalKey, principal)
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func newMultipartContext(t *testing.T, method, path string, fields map[string]string, files ...formFile) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

// flashMessages returns the flash texts carried in meta.messages.
func flashMessages(envelope responseEnvelope) []string {
	raw, ok := envelope.Meta["messages"].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m["message"].(string))
		}
	}
	return out
}

type memoryStager struct {
	files map[string][]byte
	limit int
}

func (s *memoryStager) Stage(prefix string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.limit > 0 && len(data) > s.limit {
		return "", storage.ErrTooLarge
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	name := prefix + "-staged"
	s.files[name] = data
	return name, nil
}

func (s *memoryStager) Delete(name string) error {
	delete(s.files, name)
	return nil
}
