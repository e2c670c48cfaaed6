package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hostrate/apiserver/internal/auth"
	"github.com/hostrate/apiserver/internal/storage"
	"github.com/hostrate/apiserver/internal/store"
	"github.com/hostrate/apiserver/types"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxAvatarBytes = 2 << 20
	eventPublishTimeout   = 5 * time.Second

	// dummyPassword is hashed once at construction. Logins for unknown
	// emails are compared against it so they take as long as real ones.
	dummyPassword = "hostrate-login-timing-equalizer"
)

var avatarContentTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// HostRepository defines persistence operations for hosts.
type HostRepository interface {
	GetByID(ctx context.Context, id int) (types.Host, error)
	GetByEmail(ctx context.Context, email string) (types.Host, error)
	Create(ctx context.Context, host types.Host) (types.Host, error)
	Update(ctx context.Context, id int, patch types.HostPatch) (types.Host, error)
	SetAvatar(ctx context.Context, id int, key, contentType string) (string, error)
	Delete(ctx context.Context, id int) (types.Host, error)
}

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	Create(ctx context.Context, rating types.Rating) (types.Rating, error)
}

// PasswordHasher turns passwords into irreversible hashes and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenSigner issues session tokens bound to a host.
type TokenSigner interface {
	Sign(host types.Host) (string, error)
}

// EventPublisher publishes JSON events to a channel.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// ObjectStorage stores avatar images.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// HostServiceOption configures optional collaborators of a HostService.
type HostServiceOption func(*HostService)

// WithLogger sets the logger used for side-effect failures.
func WithLogger(logger logrus.FieldLogger) HostServiceOption {
	return func(s *HostService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents enables event publishing.
func WithEvents(events EventPublisher) HostServiceOption {
	return func(s *HostService) {
		s.events = events
	}
}

// WithAvatars enables avatar uploads. A non-positive maxBytes uses 2 MiB.
func WithAvatars(objects ObjectStorage, maxBytes int64) HostServiceOption {
	return func(s *HostService) {
		s.avatars = objects
		if maxBytes > 0 {
			s.maxAvatarBytes = maxBytes
		}
	}
}

// HostService encapsulates host identity and profile use-cases.
type HostService struct {
	hosts          HostRepository
	ratings        RatingRepository
	hasher         PasswordHasher
	signer         TokenSigner
	events         EventPublisher
	avatars        ObjectStorage
	maxAvatarBytes int64
	dummyHash      string
	logger         logrus.FieldLogger
	now            func() time.Time
}

// NewHostService constructs a HostService. Repositories, hasher and signer are required.
func NewHostService(
	hosts HostRepository,
	ratings RatingRepository,
	hasher PasswordHasher,
	signer TokenSigner,
	opts ...HostServiceOption,
) (*HostService, error) {
	if hosts == nil || ratings == nil {
		return nil, errors.New("host service: repositories are required")
	}
	if hasher == nil {
		return nil, errors.New("host service: password hasher is required")
	}
	if signer == nil {
		return nil, errors.New("host service: token signer is required")
	}

	s := &HostService{
		hosts:          hosts,
		ratings:        ratings,
		hasher:         hasher,
		signer:         signer,
		maxAvatarBytes: defaultMaxAvatarBytes,
		logger:         logrus.StandardLogger(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("host service: %w", hashFailure(err))
	}
	s.dummyHash = dummy

	return s, nil
}

// Register persists a new host from draft and returns it with its assigned id.
func (s *HostService) Register(ctx context.Context, draft types.HostDraft) (types.Host, error) {
	if draft.ID != 0 {
		return types.Host{}, ErrAlreadyRegistered
	}

	email, err := normalizeEmail(draft.Email)
	if err != nil {
		return types.Host{}, err
	}
	if draft.Password == "" {
		return types.Host{}, invalidInput("password is required")
	}

	hash, err := s.hasher.Hash(draft.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return types.Host{}, invalidInput("password is too long")
		}
		return types.Host{}, hashFailure(err)
	}

	host, err := s.hosts.Create(ctx, types.Host{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(draft.Name),
		Phone:        strings.TrimSpace(draft.Phone),
		Bio:          draft.Bio,
		City:         strings.TrimSpace(draft.City),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Host{}, ErrDuplicateCredential
		}
		return types.Host{}, storeFailure("create host", err)
	}

	s.publish(ctx, types.ChannelHostRegistered, types.HostEvent{HostID: host.ID, OccurredAt: s.now().UTC()})

	host.PasswordHash = ""
	return host, nil
}

// Login authenticates email and password and returns a signed session
// carrying the host's public view. Unknown emails and wrong passwords fail
// with the same error.
func (s *HostService) Login(ctx context.Context, email, password string) (types.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	host, err := s.hosts.GetByEmail(ctx, email)
	targetHash := host.PasswordHash
	switch {
	case errors.Is(err, store.ErrNotFound):
		targetHash = s.dummyHash
	case err != nil:
		return types.Session{}, storeFailure("get host by email", err)
	}

	if cmpErr := s.hasher.Compare(targetHash, password); cmpErr != nil || err != nil {
		return types.Session{}, ErrAuthenticationFailed
	}

	token, err := s.signer.Sign(host)
	if err != nil {
		return types.Session{}, tokenFailure(host.ID, err)
	}

	host.PasswordHash = ""
	return types.Session{Token: token, Host: host.Public()}, nil
}

// GetHost returns the host with id. Private fields are cleared unless includePrivate is set.
func (s *HostService) GetHost(ctx context.Context, id int, includePrivate bool) (types.Host, error) {
	if id < 1 {
		return types.Host{}, ErrNotFound
	}

	host, err := s.hosts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Host{}, ErrNotFound
		}
		return types.Host{}, storeFailure("get host", err)
	}

	host.PasswordHash = ""
	if !includePrivate {
		return host.Public(), nil
	}
	return host, nil
}

// UpdateHost applies patch to the caller's own host and returns the merged result.
func (s *HostService) UpdateHost(ctx context.Context, who types.Identity, patch types.HostPatch) (types.Host, error) {
	if who.HostID < 1 {
		return types.Host{}, ErrUnauthorized
	}
	if patch.Empty() {
		return s.GetHost(ctx, who.HostID, true)
	}

	patch.Name.Value = strings.TrimSpace(patch.Name.Value)
	patch.Phone.Value = strings.TrimSpace(patch.Phone.Value)
	patch.City.Value = strings.TrimSpace(patch.City.Value)

	host, err := s.hosts.Update(ctx, who.HostID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Host{}, ErrNotFound
		}
		return types.Host{}, storeFailure("update host", err)
	}

	host.PasswordHash = ""
	return host, nil
}

// RemoveHost deletes the caller's own host. Deleting a missing host reports ErrNotFound.
func (s *HostService) RemoveHost(ctx context.Context, who types.Identity) error {
	if who.HostID < 1 {
		return ErrUnauthorized
	}

	removed, err := s.hosts.Delete(ctx, who.HostID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storeFailure("delete host", err)
	}

	if removed.AvatarKey != "" {
		s.deleteObject(ctx, removed.AvatarKey)
	}
	s.publish(ctx, types.ChannelHostDeleted, types.HostEvent{HostID: removed.ID, OccurredAt: s.now().UTC()})
	return nil
}

// SubmitRating records a rating by the caller against hostID.
// The host is not looked up first; the store rejects unknown hosts.
func (s *HostService) SubmitRating(ctx context.Context, who types.Identity, hostID int, in types.RatingInput) (types.Rating, error) {
	if who.HostID < 1 {
		return types.Rating{}, ErrUnauthorized
	}
	if hostID < 1 {
		return types.Rating{}, ErrNotFound
	}
	if in.Score < types.MinRatingScore || in.Score > types.MaxRatingScore {
		return types.Rating{}, invalidInput("score must be between %d and %d", types.MinRatingScore, types.MaxRatingScore)
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > types.MaxRatingComment {
		return types.Rating{}, invalidInput("comment must be at most %d characters", types.MaxRatingComment)
	}

	rating, err := s.ratings.Create(ctx, types.Rating{
		HostID:  hostID,
		RaterID: who.HostID,
		Score:   in.Score,
		Comment: comment,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Rating{}, ErrNotFound
		}
		return types.Rating{}, storeFailure("create rating", err)
	}

	s.publish(ctx, types.ChannelRatingSubmitted, types.RatingEvent{
		RatingID:   rating.ID,
		HostID:     rating.HostID,
		RaterID:    rating.RaterID,
		Score:      rating.Score,
		OccurredAt: rating.CreatedAt,
	})
	return rating, nil
}

// SetAvatar uploads an avatar image for the caller and replaces any previous one.
func (s *HostService) SetAvatar(ctx context.Context, who types.Identity, contentType string, r io.Reader, size int64) error {
	if s.avatars == nil {
		return ErrAvatarsDisabled
	}
	if who.HostID < 1 {
		return ErrUnauthorized
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return invalidInput("invalid content type")
	}
	ext, ok := avatarContentTypes[mediaType]
	if !ok {
		return invalidInput("unsupported avatar type %s", mediaType)
	}
	if size <= 0 || size > s.maxAvatarBytes {
		return invalidInput("avatar must be between 1 and %d bytes", s.maxAvatarBytes)
	}

	key := fmt.Sprintf("hosts/%d/avatar-%s.%s", who.HostID, uuid.NewString(), ext)
	if err := s.avatars.Put(ctx, key, r, size, mediaType); err != nil {
		return oops.Code("AVATAR_UPLOAD_FAILED").With("host_id", who.HostID).Wrap(err)
	}

	previous, err := s.hosts.SetAvatar(ctx, who.HostID, key, mediaType)
	if err != nil {
		s.deleteObject(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storeFailure("set avatar", err)
	}

	if previous != "" && previous != key {
		s.deleteObject(ctx, previous)
	}
	return nil
}

// OpenAvatar returns a reader for the avatar of hostID and its content type.
// The caller must close the reader.
func (s *HostService) OpenAvatar(ctx context.Context, hostID int) (io.ReadCloser, string, error) {
	if s.avatars == nil {
		return nil, "", ErrAvatarsDisabled
	}

	host, err := s.GetHost(ctx, hostID, false)
	if err != nil {
		return nil, "", err
	}
	if host.AvatarKey == "" {
		return nil, "", ErrNotFound
	}

	rc, err := s.avatars.Get(ctx, host.AvatarKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", oops.Code("AVATAR_READ_FAILED").With("host_id", hostID).Wrap(err)
	}
	return rc, host.AvatarContentType, nil
}

func (s *HostService) publish(ctx context.Context, channel string, event any) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if _, err := s.events.PublishJSON(ctx, channel, event); err != nil {
		s.logger.WithError(oops.Code("EVENT_FAILED").With("channel", channel).Wrap(err)).
			WithField("channel", channel).
			Warn("failed to publish event")
	}
}

func (s *HostService) deleteObject(ctx context.Context, key string) {
	if s.avatars == nil {
		return
	}
	if err := s.avatars.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to delete avatar object")
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidInput("email is not a valid address")
	}
	return email, nil
}
