package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// On-wire layout of an encrypted object:
// magic(8) + salt(16) + nonce(12) + ciphertext||tag. The magic number lets
// Download keep accepting plain objects written before encryption existed.
const encMagic = "GCM3NCR0"

const (
	saltLen      = 16
	nonceLen     = 12
	pbkdf2Rounds = 100000
	pbkdf2KeyLen = 32
)

// S3Client stores rendered results and fetches source documents. Objects are
// optionally encrypted with a password-derived AES-GCM key.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
}

// FileMetadata carries user metadata alongside an object.
type FileMetadata struct {
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Encrypted    bool              `json:"encrypted"`
	Metadata     map[string]string `json:"metadata"`
}

// NewS3Client builds a client from the default AWS config chain. When
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY are set explicitly they take
// precedence over the chain, which matters in container deployments where
// an instance profile would otherwise win.
func NewS3Client(ctx context.Context, bucket string) (*S3Client, error) {
	var opts []func(*awscfg.LoadOptions) error
	if ak, sk := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); ak != "" && sk != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, os.Getenv("AWS_SESSION_TOKEN"))))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		downloader: manager.NewDownloader(cli),
		bucket:     bucket,
	}, nil
}

// Download fetches an object and decrypts it when the payload carries the
// encryption magic. password is only consulted for encrypted payloads.
func (s *S3Client) Download(ctx context.Context, key, password string) ([]byte, *FileMetadata, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", key, err)
	}
	raw := buf.Bytes()

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("head %s: %w", key, err)
	}

	meta := &FileMetadata{Metadata: make(map[string]string)}
	for k, v := range head.Metadata {
		meta.Metadata[strings.ToLower(k)] = v
	}
	if name, ok := meta.Metadata["name"]; ok {
		meta.OriginalName = name
	}
	if head.ContentLength != nil {
		meta.Size = *head.ContentLength
	}

	data := raw
	if len(raw) >= len(encMagic) && string(raw[:len(encMagic)]) == encMagic {
		meta.Encrypted = true
		data, err = decryptGCM(raw, password)
		if err != nil {
			return nil, nil, fmt.Errorf("decrypt %s: %w", key, err)
		}
	}

	log.Info().
		Str("key", key).
		Bool("encrypted", meta.Encrypted).
		Int("size", len(data)).
		Msg("downloaded object")
	return data, meta, nil
}

// Upload stores an object, encrypting it when password is non-empty.
func (s *S3Client) Upload(ctx context.Context, key string, data []byte, password string, meta *FileMetadata) error {
	payload := data
	encrypted := false
	if password != "" {
		var err error
		payload, err = encryptGCM(data, password)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", key, err)
		}
		encrypted = true
	}

	s3Meta := make(map[string]string)
	if meta != nil {
		s3Meta["name"] = meta.OriginalName
		s3Meta["content-type"] = meta.ContentType
		for k, v := range meta.Metadata {
			s3Meta[k] = v
		}
	}
	s3Meta["encrypted"] = strconv.FormatBool(encrypted)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(payload),
		Metadata: s3Meta,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	log.Info().
		Str("key", key).
		Bool("encrypted", encrypted).
		Int("size", len(payload)).
		Msg("uploaded object")
	return nil
}

// ListNextVersion returns the next integer suffix for keys of the form
// baseKey_v{N}.
func (s *S3Client) ListNextVersion(ctx context.Context, baseKey string) (int, error) {
	if baseKey == "" {
		return 1, nil
	}

	prefix := baseKey + "_v"
	maxVersion := 0

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 1, fmt.Errorf("list versions: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimPrefix(*obj.Key, prefix)); err == nil && n > maxVersion {
				maxVersion = n
			}
		}
	}
	return maxVersion + 1, nil
}

// IsEncrypted reports whether a payload carries the encryption magic.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(encMagic) && string(data[:len(encMagic)]) == encMagic
}

// Decrypt decrypts a payload produced by Upload with a password.
func Decrypt(data []byte, password string) ([]byte, error) {
	return decryptGCM(data, password)
}

func encryptGCM(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, len(encMagic)+saltLen+nonceLen+len(ciphertext))
	out = append(out, encMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func decryptGCM(payload []byte, password string) ([]byte, error) {
	headerLen := len(encMagic) + saltLen + nonceLen
	if len(payload) < headerLen+16 {
		return nil, fmt.Errorf("encrypted payload too short: %d bytes", len(payload))
	}

	salt := payload[len(encMagic) : len(encMagic)+saltLen]
	nonce := payload[len(encMagic)+saltLen : headerLen]
	ciphertext := payload[headerLen:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, pbkdf2KeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
