package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, productName string, fh *multipart.FileHeader, contentType string) (string, error) {
	args := m.Called(ctx, productName, fh, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockUploader) Delete(ctx context.Context, publicURL string) error {
	args := m.Called(ctx, publicURL)
	return args.Error(0)
}

func seedProduct(t *testing.T, s *store.MemoryStore, name, category string, price float64) models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Category:    category,
		Price:       price,
		Stock:       10,
		Status:      models.ProductStatusActive,
		Description: name + " description",
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return *p
}

func seedUser(t *testing.T, s *store.MemoryStore, id string, cart ...models.CartItem) {
	t.Helper()
	ctx := context.Background()
	_, err := s.EnsureUser(ctx, id, id+"@example.com")
	require.NoError(t, err)
	if len(cart) > 0 {
		require.NoError(t, s.ReplaceCart(ctx, id, 0, cart))
	}
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func imageHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
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
