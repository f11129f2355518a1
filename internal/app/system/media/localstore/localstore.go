// Package localstore keeps media objects on the local filesystem and issues
// expiring links that are HS256-signed JWTs. The links point at GET
// /media/{token}, which verifies the token and serves the file.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/media"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "meraki-media"

var (
	// ErrInvalidLink is returned for tokens that are malformed, forged or expired.
	ErrInvalidLink = errors.New("invalid or expired media link")
	// ErrBadPath is returned for object paths that escape the storage root.
	ErrBadPath = errors.New("invalid object path")
)

// Store implements media.ObjectStore on a directory.
type Store struct {
	root    string
	key     []byte
	baseURL string
	now     func() time.Time
}

var _ media.ObjectStore = (*Store)(nil)

// New returns a Store rooted at root. Links are signed with signingKey and
// prefixed with baseURL (for example "https://meraki.example.org").
func New(root string, signingKey []byte, baseURL string) (*Store, error) {
	if len(signingKey) < 32 {
		return nil, fmt.Errorf("media signing key must be at least 32 bytes")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{
		root:    abs,
		key:     signingKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// GetFullPath maps an object path to a file under the storage root.
func (s *Store) GetFullPath(p string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(p))
	if clean == string(filepath.Separator) {
		return "", ErrBadPath
	}
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrBadPath
	}
	return full, nil
}

// Put writes the object atomically by renaming a temp file into place.
func (s *Store) Put(ctx context.Context, p string, r io.Reader, _ *media.PutOptions) error {
	full, err := s.GetFullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

// Delete removes the object. Missing objects are ignored.
func (s *Store) Delete(_ context.Context, p string) error {
	full, err := s.GetFullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type linkClaims struct {
	jwt.RegisteredClaims
}

// PresignedURL signs a link to p that expires after opts.Expires.
func (s *Store) PresignedURL(_ context.Context, p string, opts *media.PresignOptions) (string, error) {
	if _, err := s.GetFullPath(p); err != nil {
		return "", err
	}
	ttl := media.DefaultURLTTL
	if opts != nil && opts.Expires > 0 {
		ttl = opts.Expires
	}
	now := s.now()
	claims := linkClaims{jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   p,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign media link: %w", err)
	}
	return s.baseURL + "/media/" + tok, nil
}

// Verify checks a link token and returns the object path it grants.
func (s *Store) Verify(token string) (string, error) {
	var claims linkClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidLink
	}
	return claims.Subject, nil
}

// Open verifies token and returns the path of the file it grants.
func (s *Store) Open(token string) (string, error) {
	p, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	return s.GetFullPath(p)
}

// SetClock overrides the time source. For tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
