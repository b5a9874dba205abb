// Package s3store is a remote.Store on an S3-compatible bucket (AWS S3, MinIO,
// R2). Each record is one object whose body is the payload; the
// denormalized fields ride in object metadata.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/remote"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
	// ShareBaseURL prefixes share links handed out to other devices.
	ShareBaseURL string
}

const (
	metaUpdatedAt     = "updated-at"
	metaHouseholdID   = "household-id"
	metaHouseholdName = "household-name"
)

// Store implements remote.Store on a single bucket.
type Store struct {
	client       s3Client
	bucket       string
	shareBaseURL string
	now          func() time.Time
}

// New creates a store from cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	return newStore(newS3Client(cfg), cfg.Bucket, cfg.ShareBaseURL), nil
}

func newStore(client s3Client, bucket, shareBaseURL string) *Store {
	if shareBaseURL == "" {
		shareBaseURL = "s3://" + bucket + "/share/"
	}
	if !strings.HasSuffix(shareBaseURL, "/") {
		shareBaseURL += "/"
	}
	return &Store{client: client, bucket: bucket, shareBaseURL: shareBaseURL, now: time.Now}
}

func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Records live in one namespace; the scope only gates shared access.
func recordKey(name string) string {
	return "records/" + name
}

func subscriptionKey(scope remote.Scope, id string) string {
	return "subscriptions/" + string(scope) + "/" + id + ".json"
}

func shareKey(recordName string) string {
	return "shares/" + recordName + ".json"
}

func tokenKey(token string) string {
	return "share-tokens/" + token
}

func acceptedKey(recordName string) string {
	return "accepted/" + recordName
}

// isNotFound reports whether err is S3's missing-object error.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, out.Metadata, nil
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	data, _, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.put(ctx, key, data, "application/json", nil)
}

func (s *Store) sharedAccessible(ctx context.Context, scope remote.Scope, name string) (bool, error) {
	if scope != remote.ScopeShared {
		return true, nil
	}
	return s.exists(ctx, acceptedKey(name))
}

func (s *Store) FetchRecord(ctx context.Context, scope remote.Scope, name string) (*remote.Record, error) {
	ok, err := s.sharedAccessible(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, remote.ErrNotFound
	}

	payload, meta, err := s.get(ctx, recordKey(name))
	if err != nil {
		return nil, err
	}
	rec := &remote.Record{Name: name, Payload: payload}
	if v, ok := meta[metaUpdatedAt]; ok {
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	rec.HouseholdID = meta[metaHouseholdID]
	rec.HouseholdName, _ = url.QueryUnescape(meta[metaHouseholdName])
	return rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, scope remote.Scope, rec *remote.Record) error {
	ok, err := s.sharedAccessible(ctx, scope, rec.Name)
	if err != nil {
		return err
	}
	if !ok {
		return remote.ErrNotFound
	}
	return s.putRecord(ctx, rec)
}

func (s *Store) putRecord(ctx context.Context, rec *remote.Record) error {
	// S3 metadata must be ASCII, so the free-text name is query-escaped.
	meta := map[string]string{
		metaUpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		metaHouseholdID:   rec.HouseholdID,
		metaHouseholdName: url.QueryEscape(rec.HouseholdName),
	}
	return s.put(ctx, recordKey(rec.Name), rec.Payload, "application/json", meta)
}

func (s *Store) FetchSubscription(ctx context.Context, scope remote.Scope, id string) (*remote.Subscription, error) {
	var sub remote.Subscription
	if err := s.getJSON(ctx, subscriptionKey(scope, id), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveSubscription emulates create-only with a HEAD first. Two racing
// creators may both succeed, which is harmless for identical subscriptions.
func (s *Store) SaveSubscription(ctx context.Context, sub *remote.Subscription) error {
	key := subscriptionKey(sub.Scope, sub.ID)
	found, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if found {
		return remote.ErrAlreadyExists
	}

	saved := *sub
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = s.now().UTC()
	}
	return s.putJSON(ctx, key, saved)
}

func (s *Store) FetchShare(ctx context.Context, recordName string) (*remote.Share, error) {
	var sh remote.Share
	if err := s.getJSON(ctx, shareKey(recordName), &sh); err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Store) SaveShare(ctx context.Context, root *remote.Record, share *remote.Share) (*remote.Share, error) {
	if err := s.putRecord(ctx, root); err != nil {
		return nil, err
	}

	saved := *share
	saved.RecordName = root.Name

	existing, err := s.FetchShare(ctx, root.Name)
	switch {
	case err == nil:
		saved.URL = existing.URL
		saved.CreatedAt = existing.CreatedAt
	case errors.Is(err, remote.ErrNotFound):
		token := uuid.NewString()
		saved.URL = s.shareBaseURL + token
		saved.CreatedAt = s.now().UTC()
		if err := s.put(ctx, tokenKey(token), []byte(root.Name), "text/plain", nil); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.putJSON(ctx, shareKey(root.Name), saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) FetchShareMetadata(ctx context.Context, shareURL string) (*remote.ShareMetadata, error) {
	if !strings.HasPrefix(shareURL, s.shareBaseURL) {
		return nil, remote.ErrNotFound
	}
	token := strings.TrimPrefix(shareURL, s.shareBaseURL)
	if _, err := uuid.Parse(token); err != nil {
		return nil, remote.ErrNotFound
	}

	name, _, err := s.get(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}
	sh, err := s.FetchShare(ctx, string(name))
	if err != nil {
		return nil, err
	}
	return &remote.ShareMetadata{
		URL:            sh.URL,
		RootRecordName: sh.RecordName,
		Permission:     sh.Permission,
		Title:          sh.Title,
	}, nil
}

func (s *Store) AcceptShare(ctx context.Context, meta *remote.ShareMetadata) error {
	if _, err := s.FetchShare(ctx, meta.RootRecordName); err != nil {
		return err
	}
	return s.put(ctx, acceptedKey(meta.RootRecordName), []byte(s.now().UTC().Format(time.RFC3339)), "text/plain", nil)
}
