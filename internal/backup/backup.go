// Package backup takes encrypted snapshots of the SQLite database and keeps
// them in S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

const keyLayout = "2006-01-02T150405Z"

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3         S3Config
	Prefix     string
	Passphrase string
	Retention  time.Duration
}

// Enabled reports whether storage and a passphrase are configured.
func (c Config) Enabled() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != "" && c.Passphrase != ""
}

// Snapshot is one stored backup.
type Snapshot struct {
	Key     string
	Size    int64
	TakenAt time.Time
}

// Manager writes, lists, prunes and restores snapshots. Runs are serialized.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	db     *sql.DB
	client s3Client
	now    func() time.Time
	logger *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, db: db, now: time.Now, logger: logger}
	if cfg.Enabled() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m != nil && m.client != nil
}

func (m *Manager) key(t time.Time) string {
	return m.cfg.Prefix + "backup-" + t.UTC().Format(keyLayout) + ".db.enc"
}

// takenAt recovers the snapshot time from a key written by key.
func (m *Manager) takenAt(key string) (time.Time, bool) {
	name, ok := strings.CutPrefix(key, m.cfg.Prefix+"backup-")
	if !ok {
		return time.Time{}, false
	}
	name, ok = strings.CutSuffix(name, ".db.enc")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(keyLayout, name)
	return t, err == nil
}

// Run snapshots the live database with VACUUM INTO, encrypts it and uploads
// it.
func (m *Manager) Run(ctx context.Context) (Snapshot, error) {
	if !m.Enabled() {
		return Snapshot{}, fmt.Errorf("backup not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := os.MkdirTemp("", "fairshare-backup-")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	copyPath := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", copyPath); err != nil {
		return Snapshot{}, fmt.Errorf("vacuum into: %w", err)
	}
	plaintext, err := os.ReadFile(copyPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Seal(plaintext, m.cfg.Passphrase)
	if err != nil {
		return Snapshot{}, err
	}

	taken := m.now().UTC().Truncate(time.Second)
	snap := Snapshot{Key: m.key(taken), Size: int64(len(sealed)), TakenAt: taken}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(snap.Key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(snap.Size),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload to s3: %w", err)
	}
	m.logger.Info("backup uploaded", "key", snap.Key, "bytes", snap.Size)
	return snap, nil
}

// List returns stored snapshots, oldest first. Objects under the prefix
// that were not written by Run are ignored.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("backup not configured")
	}
	var out []Snapshot
	var token *string
	for {
		page, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.cfg.S3.Bucket),
			Prefix:            aws.String(m.cfg.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			taken, ok := m.takenAt(key)
			if !ok {
				continue
			}
			out = append(out, Snapshot{Key: key, Size: aws.ToInt64(obj.Size), TakenAt: taken})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}
	slices.SortFunc(out, func(a, b Snapshot) int { return a.TakenAt.Compare(b.TakenAt) })
	return out, nil
}

// Prune deletes snapshots older than the retention. A failed delete is
// logged and the rest are still attempted.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	snaps, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-m.cfg.Retention)
	deleted := 0
	for _, s := range snaps {
		if !s.TakenAt.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(s.Key),
		}); err != nil {
			m.logger.Error("delete s3 object", "key", s.Key, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// RunAndPrune is the scheduled job: take a snapshot, then apply retention.
func (m *Manager) RunAndPrune(ctx context.Context) error {
	if _, err := m.Run(ctx); err != nil {
		return err
	}
	n, err := m.Prune(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.Info("pruned old backups", "count", n)
	}
	return nil
}

// Restore downloads the snapshot at key, decrypts it, checks its integrity
// and writes it to dst. dst must not exist; the live database is never
// touched.
func (m *Manager) Restore(ctx context.Context, key, dst string) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured")
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore target %s already exists", dst)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()
	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	plaintext, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move snapshot into place: %w", err)
	}
	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
