package blobstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
)

// DomainBlob separates blob digests from other hashes of the same bytes.
const DomainBlob = "traitsmith/blob/v1"

// Digest returns the content address of an encoding of a value of type
// typeExpr: hex BLAKE3 over the domain, the type expression and the data,
// each separated by a zero byte.
func Digest(typeExpr string, data []byte) string {
	h := blake3.New()
	h.Write([]byte(DomainBlob))
	h.Write([]byte{0x00})
	h.Write([]byte(typeExpr))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Info describes a stored blob without its payload.
type Info struct {
	Digest      string
	TypeExpr    string
	Compression Compression
	// Size is the length of the encoding; StoredSize the length on disk.
	Size       int
	StoredSize int
	CreatedAt  time.Time
}

// Blob is a stored encoding.
type Blob struct {
	Info
	Data []byte
}

// NotFoundError reports a digest with no stored blob.
type NotFoundError struct {
	Digest string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("blob %s not found", e.Digest)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// CorruptError reports a blob whose payload no longer matches its digest.
type CorruptError struct {
	Digest string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("blob %s is corrupt: %s", e.Digest, e.Reason)
}

// IsCorrupt reports whether err is or wraps a CorruptError.
func IsCorrupt(err error) bool {
	var target *CorruptError
	return errors.As(err, &target)
}

// Put archives data as an encoding of typeExpr and returns its digest.
// Storing an existing digest again leaves the first row untouched.
func (s *Store) Put(ctx context.Context, typeExpr string, data []byte) (string, error) {
	digest := Digest(typeExpr, data)
	stored, tag, err := compress(data, s.compression)
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", digest, err)
	}
	if stored == nil {
		// A nil slice would bind as NULL.
		stored = []byte{}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (digest, type_expr, compression, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, digest, typeExpr, int(tag), len(data), stored, s.clock.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", digest, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("blob stored",
			"digest", digest,
			"type", typeExpr,
			"size", len(data),
			"stored", len(stored),
			"compression", tag.String())
	}
	return digest, nil
}

// Get reads and verifies a blob.
func (s *Store) Get(ctx context.Context, digest string) (Blob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT digest, type_expr, compression, size, length(data), created_at, data
		FROM blobs WHERE digest = ?
	`, digest)

	var (
		b      Blob
		stored []byte
	)
	info, err := scanInfo(row, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, &NotFoundError{Digest: digest}
	}
	if err != nil {
		return Blob{}, fmt.Errorf("read blob %s: %w", digest, err)
	}
	b.Info = info

	b.Data, err = decompress(stored, info.Compression, info.Size)
	if err != nil {
		return Blob{}, &CorruptError{Digest: digest, Reason: err.Error()}
	}
	if got := Digest(info.TypeExpr, b.Data); got != digest {
		return Blob{}, &CorruptError{Digest: digest, Reason: "content hashes to " + got}
	}
	return b, nil
}

// Has reports whether digest is stored.
func (s *Store) Has(ctx context.Context, digest string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE digest = ?`, digest).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query blob %s: %w", digest, err)
	}
	return n > 0, nil
}

// List returns the blobs of typeExpr in insertion order, or every blob
// when typeExpr is empty.
func (s *Store) List(ctx context.Context, typeExpr string) ([]Info, error) {
	query := `
		SELECT digest, type_expr, compression, size, length(data), created_at
		FROM blobs`
	var args []any
	if typeExpr != "" {
		query += ` WHERE type_expr = ?`
		args = append(args, typeExpr)
	}
	query += ` ORDER BY created_at ASC, digest ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		info, err := scanInfo(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanInfo reads the Info columns, plus the payload when data is non-nil.
func scanInfo(row scanner, data *[]byte) (Info, error) {
	var (
		info    Info
		tag     int
		created int64
	)
	dest := []any{&info.Digest, &info.TypeExpr, &tag, &info.Size, &info.StoredSize, &created}
	if data != nil {
		dest = append(dest, data)
	}
	if err := row.Scan(dest...); err != nil {
		return Info{}, err
	}
	info.Compression = Compression(tag)
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, nil
}
