package handler

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
)

func gzipBytes(t *testing.T, p []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(p)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func gunzipBody(t *testing.T, r io.Reader) []byte {
	t.Helper()

	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()

	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return data
}

func gzipRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Accept-Encoding", "gzip")
	return req
}

func TestRouter_GzipPaymentBody(t *testing.T) {
	svc := &stubService{receipt: &service.Receipt{
		Payment: model.Payment{ID: 12, DealID: 7, Amount: 8000, Date: day(2024, 3, 15)},
		Deal:    testView().Deal,
	}}
	h := newTestRouter(t, svc)

	req := gzipRequest(http.MethodPost, "/api/deals/7/payments", gzipBytes(t, []byte(`{"kind":"rent","amount":8000}`)))
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))

	assert.Equal(t, int64(7), svc.gotPayment.DealID)
	assert.Equal(t, model.PaymentKindRent, svc.gotPayment.Kind)
	require.NotNil(t, svc.gotPayment.Amount)
	assert.Equal(t, 8000.0, *svc.gotPayment.Amount)

	var got receiptResponse
	require.NoError(t, json.Unmarshal(gunzipBody(t, res.Body), &got))
	assert.Equal(t, int64(12), got.Payment.ID)
}

func TestRouter_GzipWorkbook(t *testing.T) {
	workbook := append([]byte("PK\x03\x04"), bytes.Repeat([]byte("row;"), 256)...)
	h := newTestRouter(t, &stubService{report: workbook})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gzipRequest(http.MethodGet, "/api/reports/deals.xlsx", nil))
	res := rec.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))
	assert.Equal(t, xlsxContentType, res.Header.Get("Content-Type"))
	assert.Empty(t, res.Header.Get("Content-Length"))
	assert.Equal(t, workbook, gunzipBody(t, res.Body))
}

func TestRouter_NoContentIsNotCompressed(t *testing.T) {
	h := newTestRouter(t, &stubService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gzipRequest(http.MethodGet, "/api/deals?status=buyout", nil))
	res := rec.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, res.Header.Get("Content-Encoding"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestRouter_MalformedGzipBody(t *testing.T) {
	svc := &stubService{}
	h := newTestRouter(t, svc)

	req := gzipRequest(http.MethodPost, "/api/deals/7/payments", []byte(`{"kind":"rent"}`))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.gotPayment.DealID)
}
