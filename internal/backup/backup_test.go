package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/fairshare/internal/database"
)

// mockS3Client implements s3Client in memory.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(input.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(m.objects[k])))})
	}
	return out, nil
}

func (m *mockS3Client) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var testCfg = Config{
	S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	Prefix:     "fairshare/",
	Passphrase: "correct horse",
	Retention:  7 * 24 * time.Hour,
}

func newTestManager(t *testing.T) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`INSERT INTO partners (id, name) VALUES ('minji', 'Minji')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mock := newMockS3()
	m := NewManager(testCfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.client = mock
	m.now = func() time.Time { return time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC) }
	return m, mock, db
}

func TestDisabledWithoutPassphrase(t *testing.T) {
	cfg := testCfg
	cfg.Passphrase = ""
	m := NewManager(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if m.Enabled() {
		t.Error("expected disabled manager")
	}
	if _, err := m.Run(context.Background()); err == nil {
		t.Error("expected error from disabled manager")
	}
	var nilManager *Manager
	if nilManager.Enabled() {
		t.Error("nil manager should be disabled")
	}
}

func TestRunUploadsEncryptedSnapshot(t *testing.T) {
	m, mock, _ := newTestManager(t)

	snap, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Key != "fairshare/backup-2026-10-19T040000Z.db.enc" {
		t.Errorf("key = %q", snap.Key)
	}
	data := mock.objects[snap.Key]
	if int64(len(data)) != snap.Size {
		t.Errorf("stored %d bytes, reported %d", len(data), snap.Size)
	}
	if bytes.Contains(data, []byte("SQLite format 3")) {
		t.Error("snapshot is not encrypted")
	}
}

func TestListAndPrune(t *testing.T) {
	m, mock, _ := newTestManager(t)
	ctx := context.Background()

	m.now = func() time.Time { return time.Date(2026, 10, 1, 4, 0, 0, 0, time.UTC) }
	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("run old: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC) }
	if err := m.RunAndPrune(ctx); err != nil {
		t.Fatalf("run and prune: %v", err)
	}
	mock.objects["fairshare/notes.txt"] = []byte("not a snapshot")

	snaps, err := m.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 1 || !snaps[0].TakenAt.Equal(time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("snapshots = %+v", snaps)
	}
	if keys := mock.keys(); len(keys) != 2 {
		t.Errorf("keys = %v, foreign objects must be kept", keys)
	}
}

func TestPruneKeepsGoingAfterDeleteError(t *testing.T) {
	m, mock, _ := newTestManager(t)
	ctx := context.Background()
	m.now = func() time.Time { return time.Date(2026, 9, 1, 4, 0, 0, 0, time.UTC) }
	m.Run(ctx)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC) }

	mock.delErr = errors.New("access denied")
	n, err := m.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
}

func TestRestore(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	snap, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Restore(ctx, snap.Key, dst); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var name string
	if err := restored.QueryRow(`SELECT name FROM partners WHERE id = 'minji'`).Scan(&name); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if name != "Minji" {
		t.Errorf("name = %q", name)
	}

	if err := m.Restore(ctx, snap.Key, dst); err == nil {
		t.Error("expected error when the target exists")
	}
}

func TestRestoreRejectsWrongPassphrase(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	snap, _ := m.Run(ctx)

	m.cfg.Passphrase = "battery staple"
	if err := m.Restore(ctx, snap.Key, filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("expected error for wrong passphrase")
	}
}

func TestRunReportsUploadError(t *testing.T) {
	m, mock, _ := newTestManager(t)
	mock.putErr = errors.New("bucket gone")
	if _, err := m.Run(context.Background()); err == nil {
		t.Error("expected upload error")
	}
}
