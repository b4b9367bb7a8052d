package sysconfig

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/storage"
)

func newService(t *testing.T) (*Service, *storage.LocalStorage) {
	t.Helper()
	blobs, errNew := storage.NewLocalStorage(t.TempDir(), "http://portal.test")
	require.NoError(t, errNew)
	svc := New(blobs)
	svc.now = func() time.Time { return time.UnixMilli(1000) }
	return svc, blobs
}

func TestLoadMissingDocumentReturnsDefaults(t *testing.T) {
	svc, _ := newService(t)
	cfg, errLoad := svc.Load(context.Background())
	require.NoError(t, errLoad)
	assert.Equal(t, DefaultBaseCases, cfg.MarketingBaseCases)
	assert.Equal(t, DefaultBaseProcessing, cfg.MarketingBaseProcessing)
	assert.Equal(t, DefaultSuccessRate, cfg.MarketingSuccessRate)
}

func TestSaveThenLoad(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Save(ctx, SystemConfig{ContactInfo: "wechat: zy", MarketingBaseCases: 100, MarketingSuccessRate: " 97.5 "}))

	cfg, errLoad := svc.Load(ctx)
	require.NoError(t, errLoad)
	assert.Equal(t, "wechat: zy", cfg.ContactInfo)
	assert.Equal(t, 100, cfg.MarketingBaseCases)
	assert.Equal(t, "97.5", cfg.MarketingSuccessRate)
	assert.Equal(t, DefaultBaseProcessing, cfg.MarketingBaseProcessing)
}

func TestSaveRejectsNonNumericRate(t *testing.T) {
	svc, _ := newService(t)
	errSave := svc.Save(context.Background(), SystemConfig{MarketingSuccessRate: "high"})
	assert.True(t, apperr.IsKind(errSave, apperr.KindValidation), "got %v", errSave)
}

func TestSaveQRUpdatesURL(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Save(ctx, SystemConfig{ContactInfo: "c"}))

	cfg, errSave := svc.SaveQR(ctx, "pay.png", "image/png", strings.NewReader("qr"))
	require.NoError(t, errSave)
	assert.Equal(t, "http://portal.test/files/qr/qr_1000.png", cfg.PaymentQRURL)

	reloaded, errLoad := svc.Load(ctx)
	require.NoError(t, errLoad)
	assert.Equal(t, "c", reloaded.ContactInfo)
	assert.Equal(t, cfg.PaymentQRURL, reloaded.PaymentQRURL)
}

type flakyStorage struct {
	storage.Storage
	fail bool
}

func (f *flakyStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.fail {
		return nil, errors.New("network unreachable")
	}
	return f.Storage.Open(ctx, key)
}

func TestLoadFailureServesLastGood(t *testing.T) {
	_, blobs := newService(t)
	flaky := &flakyStorage{Storage: blobs}
	svc := New(flaky)
	ctx := context.Background()

	_, errLoad := svc.Load(ctx)
	require.NoError(t, errLoad)
	flaky.fail = true
	_, errLoad = svc.Load(ctx)
	assert.True(t, apperr.IsKind(errLoad, apperr.KindPersistence), "no snapshot yet: %v", errLoad)

	flaky.fail = false
	require.NoError(t, svc.Save(ctx, SystemConfig{ContactInfo: "kept"}))
	flaky.fail = true
	cfg, errLoad := svc.Load(ctx)
	require.NoError(t, errLoad)
	assert.Equal(t, "kept", cfg.ContactInfo)
}
