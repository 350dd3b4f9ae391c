// Package receipts writes a JSON receipt per committed transaction to S3
// compatible object storage and hands out presigned download links.
package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

const (
	DefaultURLExpiry = 15 * time.Minute
	uploadTimeout    = 30 * time.Second
)

type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	URLExpiry    time.Duration
}

// Receipt is the stored document.
type Receipt struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      wallet.Kind       `json:"kind"`
	Token     wallet.Token      `json:"token"`
	Amount    string            `json:"amount"`
	Status    wallet.Status     `json:"status"`
	Reference string            `json:"reference,omitempty"`
	Label     string            `json:"label"`
	SubLabel  string            `json:"sub_label,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewReceipt(rec wallet.Record) Receipt {
	return Receipt{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		Kind:      rec.Kind,
		Token:     rec.Token,
		Amount:    rec.Amount.String(),
		Status:    rec.Status,
		Reference: rec.Reference,
		Label:     rec.Label,
		SubLabel:  rec.SubLabel,
		Metadata:  rec.Metadata,
		Timestamp: rec.Timestamp,
	}
}

// Key is the object key of a record's receipt.
func Key(accountID, recordID string) string {
	return fmt.Sprintf("receipts/%s/%s.json", accountID, recordID)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

type Store struct {
	client  objectPutter
	presign getPresigner
	bucket  string
	expiry  time.Duration
	logger  logging.Logger
	wg      sync.WaitGroup
}

func New(ctx context.Context, cfg Config, logger logging.Logger) (*Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newStore(client, s3.NewPresignClient(client), cfg, logger), nil
}

func newStore(client objectPutter, presign getPresigner, cfg Config, logger logging.Logger) *Store {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &Store{client: client, presign: presign, bucket: cfg.Bucket, expiry: expiry, logger: logger}
}

// Put uploads the receipt of rec.
func (s *Store) Put(ctx context.Context, rec wallet.Record) error {
	body, err := json.MarshalIndent(NewReceipt(rec), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(Key(rec.AccountID, rec.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put receipt %s: %w", rec.ID, err)
	}
	return nil
}

// URL returns a presigned GET link for a receipt.
func (s *Store) URL(ctx context.Context, accountID, recordID string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(accountID, recordID)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign receipt %s: %w", recordID, err)
	}
	return req.URL, nil
}

// RecordCommitted implements engine.Observer; the upload runs in the
// background.
func (s *Store) RecordCommitted(ctx context.Context, rec wallet.Record) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
		defer cancel()
		if err := s.Put(ctx, rec); err != nil {
			s.logger.Error(ctx, "receipt upload failed", "id", rec.ID, "error", err)
		}
	}()
}

// Close waits for pending uploads.
func (s *Store) Close() {
	s.wg.Wait()
}
