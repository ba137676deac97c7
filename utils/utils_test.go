package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "creme-brulee-set", GenerateSlug("  Crème Brûlée  Set!"))
	assert.Equal(t, "", GenerateSlug("***"))
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("Waterproof\r\n\n  USB-C charging \n")
	assert.Equal(t, []string{"Waterproof", "USB-C charging"}, got)
	assert.Empty(t, SplitLines("  \n"))
}

func TestParseIntDefault(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"4", 4},
		{" 5 ", 5},
		{"-2", -2},
		{"", 7},
		{"four", 7},
		{"4.5", 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseIntDefault(tt.raw, 7), tt.raw)
	}
}

func TestStringsToObjectIDs_SkipsInvalid(t *testing.T) {
	id := bson.NewObjectID()
	got := StringsToObjectIDs([]string{id.Hex(), "nope"})
	assert.Equal(t, []bson.ObjectID{id}, got)
}

func TestIsDuplicateKey(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	assert.True(t, IsDuplicateKey(fmt.Errorf("wrapped: %w", dup)))
	assert.True(t, IsDuplicateKey(mongo.CommandError{Code: 11000}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "s3cret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", "user-1", "a@x.com", TokenPurposeAccess, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, TokenPurposeAccess, claims.Purpose)

	_, err = ValidateToken(tok, "other")
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "user-1", "a@x.com", TokenPurposeAccess, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, "secret")
	assert.Error(t, err)
}

func TestFlashStore_SetThenPop(t *testing.T) {
	fs := NewFlashStore("flash-secret", false, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/cart", nil)
	require.NoError(t, fs.Set(c, Flash{Message: "Added to cart", Type: FlashSuccess}))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, FlashCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.AddCookie(cookies[0])

	f := fs.Pop(c2)
	require.NotNil(t, f)
	assert.Equal(t, Flash{Message: "Added to cart", Type: FlashSuccess}, *f)

	cleared := w2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestFlashStore_RejectsForgedCookie(t *testing.T) {
	forged := NewFlashStore("attacker", false, "")
	fs := NewFlashStore("flash-secret", false, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, forged.Set(c, Flash{Message: "hi", Type: FlashInfo}))

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.AddCookie(w.Result().Cookies()[0])

	assert.Nil(t, fs.Pop(c2))
}

func TestFlashStore_NoCookie(t *testing.T) {
	fs := NewFlashStore("flash-secret", false, "")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Nil(t, fs.Pop(c))
	assert.Empty(t, w.Result().Cookies())
}

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		MaxUploadSizeMB: 1,
		AllowedExt:      []string{".png", ".jpg"},
		AllowedMime:     []string{"image/png", "image/jpeg"},
	}
}

func TestFileValidator(t *testing.T) {
	v := NewImageValidator(testStorageConfig())

	mime, err := v.ValidateFile(fileHeader(t, "lamp.PNG", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = v.ValidateFile(fileHeader(t, "lamp.gif", pngHeader))
	assert.ErrorContains(t, err, "extension")

	_, err = v.ValidateFile(fileHeader(t, "lamp.png", []byte("plain text pretending")))
	assert.ErrorContains(t, err, "file type")

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2<<20)...)
	_, err = v.ValidateFile(fileHeader(t, "lamp.png", big))
	assert.ErrorContains(t, err, "too large")
}

func TestObjectNameFromGCSPublicURL(t *testing.T) {
	obj, err := ObjectNameFromGCSPublicURL("shop", "https://storage.googleapis.com/shop/products/lamp/1-a.png")
	require.NoError(t, err)
	assert.Equal(t, "products/lamp/1-a.png", obj)

	obj, err = ObjectNameFromGCSPublicURL("shop", "https://shop.storage.googleapis.com/products/x.png")
	require.NoError(t, err)
	assert.Equal(t, "products/x.png", obj)

	_, err = ObjectNameFromGCSPublicURL("shop", "https://storage.googleapis.com/other/x.png")
	assert.Error(t, err)
	_, err = ObjectNameFromGCSPublicURL("shop", "https://example.com/x.png")
	assert.Error(t, err)
}

func TestProductObjectName(t *testing.T) {
	name := productObjectName("Desk Lamp", ".png")
	assert.True(t, strings.HasPrefix(name, "products/desk-lamp/"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)

	assert.True(t, strings.HasPrefix(productObjectName("!!!", ""), "products/product/"))
}

func TestR2Uploader_UploadAndDelete(t *testing.T) {
	var gotMethods, gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		gotMethods = append(gotMethods, r.Method)
		gotPaths = append(gotPaths, r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testStorageConfig()
	cfg.R2Bucket = "images"
	cfg.R2AccessKey = "key"
	cfg.R2SecretKey = "secret"
	cfg.R2Endpoint = srv.URL
	cfg.R2PublicDomain = "https://cdn.example.com/"

	up, err := NewR2Uploader(t.Context(), cfg)
	require.NoError(t, err)

	url, err := up.Upload(t.Context(), "Desk Lamp", fileHeader(t, "lamp.png", pngHeader), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/images/products/desk-lamp/"), url)

	require.NoError(t, up.Delete(t.Context(), url))
	require.Equal(t, []string{http.MethodPut, http.MethodDelete}, gotMethods)
	assert.True(t, strings.HasPrefix(gotPaths[0], "/images/products/desk-lamp/"), gotPaths[0])
	assert.Equal(t, gotPaths[0], gotPaths[1])

	assert.Error(t, up.Delete(t.Context(), "https://elsewhere.com/x.png"))
}
